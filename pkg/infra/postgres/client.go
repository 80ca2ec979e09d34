package postgres

import (
	"context"
	_ "embed"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
)

//go:embed schema.sql
var schema string

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ledgerTable is connection scoped, so every call must go through the same connection
const ledgerTable = "pending_updates"

// Client is a PersistenceGateway over one PostgreSQL connection. It is not safe for concurrent
// use; the scan serializes its calls.
type Client struct {
	conn *pgx.Conn
}

var _ interfaces.PersistenceGateway = (*Client)(nil)

// New connects to PostgreSQL and checks the connection
func New(ctx context.Context, dsn string) (*Client, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to postgres")
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, goerr.Wrap(err, "failed to ping postgres")
	}
	return &Client{conn: conn}, nil
}

// Migrate creates the tables when they do not exist yet
func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.conn.Exec(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to apply schema")
	}
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	if err := c.conn.Close(ctx); err != nil {
		return goerr.Wrap(err, "failed to close postgres connection")
	}
	return nil
}
