package memory_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
	"github.com/m-mizutani/upwatch/pkg/infra/memory"
)

func newTarget(t *testing.T, id, name, vcs string) *model.Target {
	t.Helper()
	rev, err := model.NewRevisionDescriptor(id, model.RevisionBranch, "")
	gt.NoError(t, err)
	return &model.Target{
		ID:       model.TargetID(id),
		Name:     name,
		VCSTag:   vcs,
		Location: "https://example.com/" + name + ".git",
		Revision: rev,
	}
}

func TestGatewayLedger(t *testing.T) {
	ctx := context.Background()
	g := memory.New()
	g.PutTarget(newTarget(t, "1", "zlib", "git"), time.Time{})
	g.PutTarget(newTarget(t, "2", "apr", "svn"), time.Time{})
	g.PutTarget(newTarget(t, "3", "curl", "git"), time.Time{})

	t.Run("record before begin fails", func(t *testing.T) {
		gt.Error(t, g.RecordUpdate(ctx, "1"))
	})

	gt.NoError(t, g.BeginUpdateLedger(ctx))

	t.Run("second begin fails", func(t *testing.T) {
		gt.Error(t, g.BeginUpdateLedger(ctx))
	})

	gt.NoError(t, g.RecordUpdate(ctx, "1"))
	gt.NoError(t, g.RecordUpdate(ctx, "2"))
	gt.NoError(t, g.RecordUpdate(ctx, "1"))

	t.Run("unknown target", func(t *testing.T) {
		err := g.RecordUpdate(ctx, "404")
		gt.True(t, errors.Is(err, types.ErrTargetNotFound))
	})

	entries, err := g.SummarizeLedger(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 2)
	gt.Equal(t, entries[0].Name, "apr")
	gt.Equal(t, entries[0].VCS, "svn")
	gt.Equal(t, entries[1].Name, "zlib")

	gt.NoError(t, g.EndUpdateLedger(ctx))
	gt.NoError(t, g.EndUpdateLedger(ctx))

	t.Run("ledger can be prepared again", func(t *testing.T) {
		gt.NoError(t, g.BeginUpdateLedger(ctx))
		entries, err := g.SummarizeLedger(ctx)
		gt.NoError(t, err)
		gt.Equal(t, len(entries), 0)
		gt.NoError(t, g.EndUpdateLedger(ctx))
	})
}

func TestGatewayTargets(t *testing.T) {
	ctx := context.Background()
	g := memory.New()
	baseline := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g.PutTarget(newTarget(t, "1", "zlib", "git"), baseline)
	g.PutTarget(newTarget(t, "2", "apr", "svn"), time.Time{})

	targets, err := g.ListTrackedTargets(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(targets), 2)
	gt.Equal(t, targets[0].Name, "apr")
	gt.Equal(t, targets[1].Name, "zlib")

	got, err := g.LatestBaseline(ctx, "1")
	gt.NoError(t, err)
	gt.True(t, got.Equal(baseline))

	got, err = g.LatestBaseline(ctx, "2")
	gt.NoError(t, err)
	gt.True(t, got.IsZero())

	_, err = g.GetTarget(ctx, "404")
	gt.True(t, errors.Is(err, types.ErrTargetNotFound))

	updated := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	gt.NoError(t, g.SetBaseline(ctx, "2", updated))
	gt.NoError(t, g.SetNote(ctx, "2", "[r1234] fix build"))

	ts, ok := g.Baseline("2")
	gt.True(t, ok)
	gt.True(t, ts.Equal(updated))
	note, ok := g.Note("2")
	gt.True(t, ok)
	gt.Equal(t, note, "[r1234] fix build")

	gt.True(t, errors.Is(g.SetNote(ctx, "404", "x"), types.ErrTargetNotFound))
}

func TestTargetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.toml")
	gt.NoError(t, os.WriteFile(path, []byte(`
[[target]]
id = "10"
name = "libfoo"
vcs = "git"
location = "https://example.com/libfoo.git"
revision = "tag"
value = "v1.2.0"
baseline = 2024-01-01T00:00:00Z

[[target]]
id = "11"
name = "libbar"
vcs = "svn"
location = "svn://example.com/libbar/trunk"
`), 0o600))

	g, err := memory.LoadFile(path)
	gt.NoError(t, err)

	ctx := context.Background()
	foo, err := g.GetTarget(ctx, "10")
	gt.NoError(t, err)
	gt.Equal(t, foo.Revision.Kind(), model.RevisionTag)
	gt.Equal(t, foo.Revision.AnchorID(), "10")
	value, ok := foo.Revision.Value()
	gt.True(t, ok)
	gt.Equal(t, value, "v1.2.0")

	bar, err := g.GetTarget(ctx, "11")
	gt.NoError(t, err)
	gt.True(t, bar.Revision.IsDefaultBranch())
	gt.Equal(t, bar.VCS(), model.VCSSubversion)

	commitTime := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	gt.NoError(t, g.SetBaseline(ctx, "11", commitTime))
	gt.NoError(t, g.SetNote(ctx, "11", "[r42] import"))
	gt.NoError(t, g.SaveFile(path))

	reloaded, err := memory.LoadFile(path)
	gt.NoError(t, err)
	ts, ok := reloaded.Baseline("11")
	gt.True(t, ok)
	gt.True(t, ts.Equal(commitTime))
	note, _ := reloaded.Note("11")
	gt.Equal(t, note, "[r42] import")

	t.Run("invalid revision", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.toml")
		gt.NoError(t, os.WriteFile(bad, []byte(`
[[target]]
id = "1"
name = "x"
vcs = "git"
location = "https://example.com/x.git"
revision = "revnum"
value = "-3"
`), 0o600))
		_, err := memory.LoadFile(bad)
		gt.True(t, errors.Is(err, types.ErrInvalidDescriptor))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := memory.LoadFile(filepath.Join(t.TempDir(), "none.toml"))
		gt.Error(t, err)
	})
}

func TestSaveFileWritesNativeDatetime(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "targets.toml")
	commitTime := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	g := memory.New()
	g.PutTarget(newTarget(t, "1", "libfoo", "git"), commitTime)
	g.PutTarget(newTarget(t, "2", "libbar", "git"), time.Time{})
	gt.NoError(t, g.SaveFile(path))

	raw, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.S(t, string(raw)).Contains("baseline = 2024-06-01T09:30:00Z")
	gt.Equal(t, strings.Count(string(raw), "baseline"), 1)

	// a saved file must load again, also after a second save
	reloaded, err := memory.LoadFile(path)
	gt.NoError(t, err)
	gt.NoError(t, reloaded.SetBaseline(ctx, "2", commitTime.Add(time.Hour)))
	gt.NoError(t, reloaded.SaveFile(path))

	again, err := memory.LoadFile(path)
	gt.NoError(t, err)

	foo, ok := again.Baseline("1")
	gt.True(t, ok)
	gt.True(t, foo.Equal(commitTime))

	bar, ok := again.Baseline("2")
	gt.True(t, ok)
	gt.True(t, bar.Equal(commitTime.Add(time.Hour)))
}

func TestLoadFileWithoutBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.toml")
	g := memory.New()
	g.PutTarget(newTarget(t, "1", "libfoo", "git"), time.Time{})
	gt.NoError(t, g.SaveFile(path))

	reloaded, err := memory.LoadFile(path)
	gt.NoError(t, err)
	baseline, ok := reloaded.Baseline("1")
	gt.True(t, ok)
	gt.True(t, baseline.IsZero())
}
