package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/upwatch/pkg/cli/config"
	"github.com/m-mizutani/upwatch/pkg/infra/memory"
)

func TestStore_Build(t *testing.T) {
	ctx := context.Background()

	t.Run("file store saves on close", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "targets.toml")
		gt.NoError(t, os.WriteFile(path, []byte(`
[[target]]
id = "1"
name = "libfoo"
vcs = "git"
location = "https://example.com/libfoo.git"
`), 0o600))

		cfg := config.Store{Kind: config.StoreFile, TargetsFile: path}
		gateway, closer, err := cfg.Build(ctx)
		gt.NoError(t, err)

		commit := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		gt.NoError(t, gateway.SetBaseline(ctx, "1", commit))
		closer()

		reloaded, err := memory.LoadFile(path)
		gt.NoError(t, err)
		baseline, ok := reloaded.Baseline("1")
		gt.True(t, ok)
		gt.True(t, baseline.Equal(commit))
	})

	for _, tt := range []config.Store{
		{Kind: config.StorePostgres},
		{Kind: config.StoreFirestore},
		{Kind: config.StoreFile},
		{Kind: "mysql"},
	} {
		t.Run("missing settings for "+tt.Kind, func(t *testing.T) {
			_, _, err := tt.Build(ctx)
			gt.Error(t, err)
		})
	}
}
