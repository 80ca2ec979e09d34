package memory

import (
	"os"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/pelletier/go-toml/v2"
)

// targetsFile is the TOML layout of a targets file:
//
//	[[target]]
//	id = "42"
//	name = "libfoo"
//	vcs = "git"
//	location = "https://example.com/libfoo.git"
//	revision = "tag"
//	value = "v1.2.0"
//	baseline = 2024-01-01T00:00:00Z
type targetsFile struct {
	Targets []targetRecord `toml:"target"`
}

type targetRecord struct {
	ID       string    `toml:"id"`
	Name     string    `toml:"name"`
	VCS      string    `toml:"vcs"`
	Location string    `toml:"location"`
	Revision string    `toml:"revision,omitempty"`
	Value    string    `toml:"value,omitempty"`
	Anchor   string    `toml:"anchor,omitempty"`
	Baseline time.Time `toml:"baseline,omitzero"`
	Note     string    `toml:"note,omitempty"`
}

// LoadFile reads a TOML targets file into a new gateway. A missing revision means the default
// branch.
func LoadFile(path string) (*Gateway, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read targets file", goerr.V("path", path))
	}

	var file targetsFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse targets file", goerr.V("path", path))
	}

	g := New()
	for i, rec := range file.Targets {
		if rec.ID == "" {
			return nil, goerr.New("target id is required", goerr.V("path", path), goerr.V("index", i))
		}
		if _, ok := g.records[model.TargetID(rec.ID)]; ok {
			return nil, goerr.New("duplicated target id", goerr.V("path", path), goerr.V("id", rec.ID))
		}

		kind := model.RevisionBranch
		if rec.Revision != "" {
			kind, err = model.ParseRevisionKind(rec.Revision)
			if err != nil {
				return nil, goerr.Wrap(err, "invalid target", goerr.V("path", path), goerr.V("id", rec.ID))
			}
		}
		anchor := rec.Anchor
		if anchor == "" {
			anchor = rec.ID
		}
		rev, err := model.NewRevisionDescriptor(anchor, kind, rec.Value)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid target", goerr.V("path", path), goerr.V("id", rec.ID))
		}

		baseline := rec.Baseline
		if !baseline.IsZero() {
			baseline = baseline.UTC()
		}

		g.PutTarget(&model.Target{
			ID:       model.TargetID(rec.ID),
			Name:     rec.Name,
			VCSTag:   rec.VCS,
			Location: rec.Location,
			Revision: rev,
		}, baseline)
		g.records[model.TargetID(rec.ID)].note = rec.Note
	}

	return g, nil
}

// SaveFile writes every target with its current baseline and note to path
func (g *Gateway) SaveFile(path string) error {
	g.mu.Lock()
	file := targetsFile{Targets: make([]targetRecord, 0, len(g.records))}
	for _, rec := range g.records {
		t := rec.target
		value, _ := t.Revision.Value()
		out := targetRecord{
			ID:       t.ID.String(),
			Name:     t.Name,
			VCS:      t.VCSTag,
			Location: t.Location,
			Revision: t.Revision.Kind().String(),
			Value:    value,
			Note:     rec.note,
		}
		if t.Revision.AnchorID() != t.ID.String() {
			out.Anchor = t.Revision.AnchorID()
		}
		if !rec.baseline.IsZero() {
			out.Baseline = rec.baseline.UTC()
		}
		file.Targets = append(file.Targets, out)
	}
	g.mu.Unlock()

	sort.Slice(file.Targets, func(i, j int) bool { return file.Targets[i].ID < file.Targets[j].ID })

	raw, err := toml.Marshal(file)
	if err != nil {
		return goerr.Wrap(err, "failed to encode targets file")
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return goerr.Wrap(err, "failed to write targets file", goerr.V("path", path))
	}
	return nil
}
