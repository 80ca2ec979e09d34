package postgres

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
)

// stored values of revisions.frag_type
const (
	fragBranch = 1
	fragCommit = 2
	fragRevnum = 4
	fragTag    = 8
)

var fragKinds = map[int16]model.RevisionKind{
	fragBranch: model.RevisionBranch,
	fragCommit: model.RevisionCommit,
	fragRevnum: model.RevisionNumber,
	fragTag:    model.RevisionTag,
}

// baselineGranularity is added to the stored release day: a commit made during the stored
// day is not newer than the baseline.
const baselineGranularity = 24 * time.Hour

type targetRow struct {
	VersionID int64  `db:"version_id"`
	Name      string `db:"name"`
	SourceID  int64  `db:"source_id"`
	URI       string `db:"uri"`
	VCS       string `db:"vcs"`
	FragType  int16  `db:"frag_type"`
	FragVal   string `db:"frag_val"`
}

func (r *targetRow) toModel() (*model.Target, error) {
	kind, ok := fragKinds[r.FragType]
	if !ok {
		return nil, goerr.Wrap(types.ErrInvalidDescriptor, "unknown fragment type",
			goerr.V("frag_type", r.FragType))
	}

	value := r.FragVal
	if kind == model.RevisionBranch && strings.EqualFold(strings.TrimSpace(value), "HEAD") {
		value = ""
	}

	rev, err := model.NewRevisionDescriptor(strconv.FormatInt(r.SourceID, 10), kind, value)
	if err != nil {
		return nil, err
	}

	return &model.Target{
		ID:       versionTargetID(r.VersionID),
		Name:     r.Name,
		VCSTag:   r.VCS,
		Location: r.URI,
		Revision: rev,
	}, nil
}

func versionTargetID(versionID int64) model.TargetID {
	return model.TargetID(strconv.FormatInt(versionID, 10))
}

func parseTargetID(id model.TargetID) (int64, error) {
	versionID, err := strconv.ParseInt(id.String(), 10, 64)
	if err != nil {
		return 0, goerr.Wrap(types.ErrTargetNotFound, "target id is not a version id", goerr.V("target_id", id))
	}
	return versionID, nil
}

func targetQuery() sq.SelectBuilder {
	return psql.Select("v.version_id", "p.name", "s.source_id", "s.uri", "s.vcs", "r.frag_type", "r.frag_val").
		From("versions v").
		Join("revisions r ON r.version_id = v.version_id").
		Join("sources s ON s.source_id = r.source_id").
		Join("projects p ON p.project_id = v.project_id")
}

// ListTrackedTargets returns one target per project: its most recent version that has a
// revision. Rows with a broken revision are skipped.
func (c *Client) ListTrackedTargets(ctx context.Context) ([]*model.Target, error) {
	query, args, err := targetQuery().
		Distinct().Options("ON (v.project_id)").
		OrderBy("v.project_id", "v.release_date DESC NULLS LAST", "v.version_id DESC").
		ToSql()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build query")
	}

	var rows []targetRow
	if err := pgxscan.Select(ctx, c.conn, &rows, query, args...); err != nil {
		return nil, goerr.Wrap(err, "failed to list tracked targets")
	}

	targets := make([]*model.Target, 0, len(rows))
	for i := range rows {
		target, err := rows[i].toModel()
		if err != nil {
			ctxlog.From(ctx).Warn("Skipping target with invalid revision",
				"version_id", rows[i].VersionID,
				"name", rows[i].Name,
				"error", err,
			)
			continue
		}
		targets = append(targets, target)
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets, nil
}

func (c *Client) GetTarget(ctx context.Context, id model.TargetID) (*model.Target, error) {
	versionID, err := parseTargetID(id)
	if err != nil {
		return nil, err
	}

	query, args, err := targetQuery().Where(sq.Eq{"v.version_id": versionID}).ToSql()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build query")
	}

	var row targetRow
	if err := pgxscan.Get(ctx, c.conn, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, goerr.Wrap(types.ErrTargetNotFound, "no such target", goerr.V("target_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get target", goerr.V("target_id", id))
	}

	return row.toModel()
}

type baselineRow struct {
	VersionID int64       `db:"version_id"`
	Latest    pgtype.Date `db:"latest"`
}

// LatestBaseline returns the end of the latest release day across all versions of the
// target's project
func (c *Client) LatestBaseline(ctx context.Context, id model.TargetID) (time.Time, error) {
	versionID, err := parseTargetID(id)
	if err != nil {
		return time.Time{}, err
	}

	query, args, err := psql.Select("t.version_id", "MAX(v.release_date) AS latest").
		From("versions t").
		Join("versions v ON v.project_id = t.project_id").
		Where(sq.Eq{"t.version_id": versionID}).
		GroupBy("t.version_id").
		ToSql()
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to build query")
	}

	var row baselineRow
	if err := pgxscan.Get(ctx, c.conn, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return time.Time{}, goerr.Wrap(types.ErrTargetNotFound, "no such target", goerr.V("target_id", id))
		}
		return time.Time{}, goerr.Wrap(err, "failed to get baseline", goerr.V("target_id", id))
	}

	if !row.Latest.Valid {
		return time.Time{}, nil
	}
	day := row.Latest.Time
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).Add(baselineGranularity), nil
}

// SetBaseline stores the UTC calendar day of ts as the release date of the version
func (c *Client) SetBaseline(ctx context.Context, id model.TargetID, ts time.Time) error {
	utc := ts.UTC()
	day := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return c.updateVersion(ctx, id, "release_date", pgtype.Date{Time: day, Valid: true})
}

func (c *Client) SetNote(ctx context.Context, id model.TargetID, note string) error {
	return c.updateVersion(ctx, id, "note", note)
}

func (c *Client) updateVersion(ctx context.Context, id model.TargetID, column string, value any) error {
	versionID, err := parseTargetID(id)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("versions").
		Set(column, value).
		Where(sq.Eq{"version_id": versionID}).
		ToSql()
	if err != nil {
		return goerr.Wrap(err, "failed to build query")
	}

	tag, err := c.conn.Exec(ctx, query, args...)
	if err != nil {
		return goerr.Wrap(err, "failed to update version", goerr.V("target_id", id), goerr.V("column", column))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(types.ErrTargetNotFound, "no such target", goerr.V("target_id", id))
	}
	return nil
}
