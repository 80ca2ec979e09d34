package firestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionTargets = "targets"
	collectionLedgers = "scan_ledgers"
	collectionUpdates = "updates"
)

// Client is a PersistenceGateway over Cloud Firestore. Targets live in the "targets"
// collection keyed by target ID; the ledger of a scan is a "scan_ledgers" document with an
// "updates" subcollection.
type Client struct {
	client *firestore.Client
	prefix string

	mu       sync.Mutex
	ledgerID string
}

var _ interfaces.PersistenceGateway = (*Client)(nil)

type Option func(*Client)

// WithCollectionPrefix prepends prefix to every collection name
func WithCollectionPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = prefix
	}
}

// New creates a client of the given project and database
func New(ctx context.Context, projectID, databaseID string, opts []Option, clientOpts ...option.ClientOption) (*Client, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}

	c := &Client{client: client}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

type targetDoc struct {
	Name          string    `firestore:"name"`
	VCS           string    `firestore:"vcs"`
	Location      string    `firestore:"location"`
	RevisionKind  string    `firestore:"revision_kind"`
	RevisionValue string    `firestore:"revision_value"`
	AnchorID      string    `firestore:"anchor_id"`
	Baseline      time.Time `firestore:"baseline"`
	Note          string    `firestore:"note"`
}

func (d *targetDoc) toModel(id string) (*model.Target, error) {
	kind, err := model.ParseRevisionKind(d.RevisionKind)
	if err != nil {
		return nil, err
	}
	anchor := d.AnchorID
	if anchor == "" {
		anchor = id
	}
	rev, err := model.NewRevisionDescriptor(anchor, kind, d.RevisionValue)
	if err != nil {
		return nil, err
	}
	return &model.Target{
		ID:       model.TargetID(id),
		Name:     d.Name,
		VCSTag:   d.VCS,
		Location: d.Location,
		Revision: rev,
	}, nil
}

type updateDoc struct {
	Name       string    `firestore:"name"`
	Location   string    `firestore:"location"`
	VCS        string    `firestore:"vcs"`
	RecordedAt time.Time `firestore:"recorded_at"`
}

func (c *Client) targets() *firestore.CollectionRef {
	return c.client.Collection(c.prefix + collectionTargets)
}

func (c *Client) ledger(id string) *firestore.DocumentRef {
	return c.client.Collection(c.prefix + collectionLedgers).Doc(id)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// PutTarget creates or replaces a target document. A zero baseline means none is known yet.
func (c *Client) PutTarget(ctx context.Context, target *model.Target, baseline time.Time) error {
	value, _ := target.Revision.Value()
	doc := &targetDoc{
		Name:          target.Name,
		VCS:           target.VCSTag,
		Location:      target.Location,
		RevisionKind:  target.Revision.Kind().String(),
		RevisionValue: value,
		AnchorID:      target.Revision.AnchorID(),
		Baseline:      baseline.UTC(),
	}
	if _, err := c.targets().Doc(target.ID.String()).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put target", goerr.V("target_id", target.ID))
	}
	return nil
}

func (c *Client) getTargetDoc(ctx context.Context, id model.TargetID) (*targetDoc, error) {
	snap, err := c.targets().Doc(id.String()).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(types.ErrTargetNotFound, "no such target", goerr.V("target_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get target", goerr.V("target_id", id))
	}

	var doc targetDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode target", goerr.V("target_id", id))
	}
	return &doc, nil
}

func (c *Client) ListTrackedTargets(ctx context.Context) ([]*model.Target, error) {
	snaps, err := c.targets().Documents(ctx).GetAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list targets")
	}

	targets := make([]*model.Target, 0, len(snaps))
	for _, snap := range snaps {
		var doc targetDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode target", goerr.V("target_id", snap.Ref.ID))
		}
		target, err := doc.toModel(snap.Ref.ID)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid target", goerr.V("target_id", snap.Ref.ID))
		}
		targets = append(targets, target)
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets, nil
}

func (c *Client) GetTarget(ctx context.Context, id model.TargetID) (*model.Target, error) {
	doc, err := c.getTargetDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toModel(id.String())
}

func (c *Client) LatestBaseline(ctx context.Context, id model.TargetID) (time.Time, error) {
	doc, err := c.getTargetDoc(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if doc.Baseline.IsZero() {
		return time.Time{}, nil
	}
	return doc.Baseline.UTC(), nil
}

func (c *Client) SetBaseline(ctx context.Context, id model.TargetID, ts time.Time) error {
	return c.updateTarget(ctx, id, firestore.Update{Path: "baseline", Value: ts.UTC()})
}

func (c *Client) SetNote(ctx context.Context, id model.TargetID, note string) error {
	return c.updateTarget(ctx, id, firestore.Update{Path: "note", Value: note})
}

func (c *Client) updateTarget(ctx context.Context, id model.TargetID, updates ...firestore.Update) error {
	if _, err := c.targets().Doc(id.String()).Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(types.ErrTargetNotFound, "no such target", goerr.V("target_id", id))
		}
		return goerr.Wrap(err, "failed to update target", goerr.V("target_id", id))
	}
	return nil
}

func (c *Client) BeginUpdateLedger(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ledgerID != "" {
		return goerr.New("update ledger already exists", goerr.V("ledger_id", c.ledgerID))
	}

	id := uuid.NewString()
	if _, err := c.ledger(id).Create(ctx, map[string]any{"started_at": time.Now().UTC()}); err != nil {
		return goerr.Wrap(err, "failed to create update ledger", goerr.V("ledger_id", id))
	}
	c.ledgerID = id
	return nil
}

func (c *Client) currentLedger() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ledgerID == "" {
		return "", goerr.New("update ledger is not prepared")
	}
	return c.ledgerID, nil
}

func (c *Client) RecordUpdate(ctx context.Context, id model.TargetID) error {
	ledgerID, err := c.currentLedger()
	if err != nil {
		return err
	}

	doc, err := c.getTargetDoc(ctx, id)
	if err != nil {
		return err
	}

	update := &updateDoc{
		Name:       doc.Name,
		Location:   doc.Location,
		VCS:        doc.VCS,
		RecordedAt: time.Now().UTC(),
	}
	if _, err := c.ledger(ledgerID).Collection(collectionUpdates).Doc(id.String()).Set(ctx, update); err != nil {
		return goerr.Wrap(err, "failed to record update",
			goerr.V("ledger_id", ledgerID),
			goerr.V("target_id", id),
		)
	}
	return nil
}

func (c *Client) SummarizeLedger(ctx context.Context) ([]model.LedgerEntry, error) {
	ledgerID, err := c.currentLedger()
	if err != nil {
		return nil, err
	}

	snaps, err := c.ledger(ledgerID).Collection(collectionUpdates).Documents(ctx).GetAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read update ledger", goerr.V("ledger_id", ledgerID))
	}

	seen := make(map[model.LedgerEntry]struct{}, len(snaps))
	entries := make([]model.LedgerEntry, 0, len(snaps))
	for _, snap := range snaps {
		var doc updateDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode ledger entry", goerr.V("ledger_id", ledgerID))
		}
		entry := model.LedgerEntry{Name: doc.Name, Location: doc.Location, VCS: doc.VCS}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Location < entries[j].Location
	})
	return entries, nil
}

// EndUpdateLedger deletes the ledger document and its updates. It is a no-op without an
// active ledger.
func (c *Client) EndUpdateLedger(ctx context.Context) error {
	c.mu.Lock()
	ledgerID := c.ledgerID
	c.ledgerID = ""
	c.mu.Unlock()

	if ledgerID == "" {
		return nil
	}

	ledger := c.ledger(ledgerID)
	refs, err := ledger.Collection(collectionUpdates).DocumentRefs(ctx).GetAll()
	if err != nil {
		return goerr.Wrap(err, "failed to list update ledger", goerr.V("ledger_id", ledgerID))
	}

	bw := c.client.BulkWriter(ctx)
	for _, ref := range append(refs, ledger) {
		if _, err := bw.Delete(ref); err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to delete update ledger", goerr.V("ledger_id", ledgerID))
		}
	}
	bw.End()
	return nil
}
