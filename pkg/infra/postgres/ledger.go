package postgres

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

func (c *Client) BeginUpdateLedger(ctx context.Context) error {
	if _, err := c.conn.Exec(ctx, "CREATE TEMPORARY TABLE "+ledgerTable+" (version_id BIGINT PRIMARY KEY)"); err != nil {
		return goerr.Wrap(err, "failed to create update ledger")
	}
	return nil
}

func (c *Client) RecordUpdate(ctx context.Context, id model.TargetID) error {
	versionID, err := parseTargetID(id)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert(ledgerTable).
		Columns("version_id").
		Values(versionID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return goerr.Wrap(err, "failed to build query")
	}

	if _, err := c.conn.Exec(ctx, query, args...); err != nil {
		return goerr.Wrap(err, "failed to record update", goerr.V("target_id", id))
	}
	return nil
}

func (c *Client) SummarizeLedger(ctx context.Context) ([]model.LedgerEntry, error) {
	query, args, err := psql.Select("p.name", "s.uri AS location", "s.vcs").
		From(ledgerTable+" u").
		Join("revisions r ON r.version_id = u.version_id").
		Join("sources s ON s.source_id = r.source_id").
		Join("projects p ON p.project_id = s.project_id").
		GroupBy("p.name", "s.uri", "s.vcs").
		OrderBy("p.name", "s.uri", "s.vcs").
		ToSql()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build query")
	}

	var entries []model.LedgerEntry
	if err := pgxscan.Select(ctx, c.conn, &entries, query, args...); err != nil {
		return nil, goerr.Wrap(err, "failed to summarize update ledger")
	}
	return entries, nil
}

func (c *Client) EndUpdateLedger(ctx context.Context) error {
	if _, err := c.conn.Exec(ctx, "DROP TABLE IF EXISTS "+ledgerTable); err != nil {
		return goerr.Wrap(err, "failed to drop update ledger")
	}
	return nil
}
