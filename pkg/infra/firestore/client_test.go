package firestore_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
	"github.com/m-mizutani/upwatch/pkg/infra/firestore"
)

func setupClient(t *testing.T) *firestore.Client {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT")
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" || projectID == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST or TEST_FIRESTORE_PROJECT is not set")
	}

	client, err := firestore.New(context.Background(), projectID, os.Getenv("TEST_FIRESTORE_DATABASE"),
		[]firestore.Option{firestore.WithCollectionPrefix("test_" + uuid.NewString()[:8] + "_")},
	)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTarget(t *testing.T, id, name, vcs string, kind model.RevisionKind, value string) *model.Target {
	t.Helper()
	rev, err := model.NewRevisionDescriptor("src-"+id, kind, value)
	gt.NoError(t, err)
	return &model.Target{
		ID:       model.TargetID(id),
		Name:     name,
		VCSTag:   vcs,
		Location: "https://example.com/" + name,
		Revision: rev,
	}
}

func TestTargets(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()
	baseline := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	gt.NoError(t, client.PutTarget(ctx, newTarget(t, "1", "zlib", "git", model.RevisionTag, "v1.3"), baseline))
	gt.NoError(t, client.PutTarget(ctx, newTarget(t, "2", "apr", "svn", model.RevisionBranch, ""), time.Time{}))

	targets, err := client.ListTrackedTargets(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(targets), 2)
	gt.Equal(t, targets[0].Name, "apr")
	gt.True(t, targets[0].Revision.IsDefaultBranch())
	gt.Equal(t, targets[1].Revision.AnchorID(), "src-1")

	got, err := client.LatestBaseline(ctx, "1")
	gt.NoError(t, err)
	gt.True(t, got.Equal(baseline))

	got, err = client.LatestBaseline(ctx, "2")
	gt.NoError(t, err)
	gt.True(t, got.IsZero())

	commit := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	gt.NoError(t, client.SetBaseline(ctx, "2", commit))
	gt.NoError(t, client.SetNote(ctx, "2", "[r10] import"))
	got, err = client.LatestBaseline(ctx, "2")
	gt.NoError(t, err)
	gt.True(t, got.Equal(commit))

	_, err = client.GetTarget(ctx, "404")
	gt.True(t, errors.Is(err, types.ErrTargetNotFound))
	gt.True(t, errors.Is(client.SetNote(ctx, "404", "x"), types.ErrTargetNotFound))
}

func TestUpdateLedger(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	gt.NoError(t, client.PutTarget(ctx, newTarget(t, "1", "zlib", "git", model.RevisionBranch, ""), time.Time{}))
	gt.NoError(t, client.PutTarget(ctx, newTarget(t, "2", "apr", "svn", model.RevisionBranch, ""), time.Time{}))

	gt.Error(t, client.RecordUpdate(ctx, "1"))

	gt.NoError(t, client.BeginUpdateLedger(ctx))
	gt.Error(t, client.BeginUpdateLedger(ctx))

	gt.NoError(t, client.RecordUpdate(ctx, "1"))
	gt.NoError(t, client.RecordUpdate(ctx, "2"))
	gt.NoError(t, client.RecordUpdate(ctx, "1"))

	entries, err := client.SummarizeLedger(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 2)
	gt.Equal(t, entries[0].Name, "apr")
	gt.Equal(t, entries[1].Name, "zlib")

	gt.NoError(t, client.EndUpdateLedger(ctx))
	gt.NoError(t, client.EndUpdateLedger(ctx))

	gt.NoError(t, client.BeginUpdateLedger(ctx))
	entries, err = client.SummarizeLedger(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 0)
	gt.NoError(t, client.EndUpdateLedger(ctx))
}
