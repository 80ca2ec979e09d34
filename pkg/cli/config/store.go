package config

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/infra/firestore"
	"github.com/m-mizutani/upwatch/pkg/infra/memory"
	"github.com/m-mizutani/upwatch/pkg/infra/postgres"
	"github.com/urfave/cli/v3"
)

const (
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreFile      = "file"
)

// Store holds persistence configuration
type Store struct {
	Kind string

	PostgresDSN     string `masq:"secret"`
	PostgresMigrate bool

	FirestoreProject  string
	FirestoreDatabase string
	FirestorePrefix   string

	TargetsFile string
}

// Flags returns CLI flags for persistence configuration
func (c *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Persistence backend (postgres, firestore, file)",
			Value:       StorePostgres,
			Destination: &c.Kind,
			Sources:     cli.EnvVars("UPWATCH_STORE"),
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL connection string",
			Destination: &c.PostgresDSN,
			Sources:     cli.EnvVars("UPWATCH_POSTGRES_DSN"),
		},
		&cli.BoolFlag{
			Name:        "postgres-migrate",
			Usage:       "Create the PostgreSQL tables if they do not exist",
			Destination: &c.PostgresMigrate,
			Sources:     cli.EnvVars("UPWATCH_POSTGRES_MIGRATE"),
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project of the Firestore database",
			Destination: &c.FirestoreProject,
			Sources:     cli.EnvVars("UPWATCH_FIRESTORE_PROJECT"),
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Destination: &c.FirestoreDatabase,
			Sources:     cli.EnvVars("UPWATCH_FIRESTORE_DATABASE"),
		},
		&cli.StringFlag{
			Name:        "firestore-prefix",
			Usage:       "Prefix of Firestore collection names",
			Destination: &c.FirestorePrefix,
			Sources:     cli.EnvVars("UPWATCH_FIRESTORE_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "targets-file",
			Usage:       "TOML targets file used by the file store",
			Destination: &c.TargetsFile,
			Sources:     cli.EnvVars("UPWATCH_TARGETS_FILE"),
		},
	}
}

// Build opens the configured gateway. The returned closer releases it; the file store writes
// its targets back on close.
func (c *Store) Build(ctx context.Context) (interfaces.PersistenceGateway, func(), error) {
	logger := ctxlog.From(ctx)

	switch c.Kind {
	case StorePostgres:
		if c.PostgresDSN == "" {
			return nil, nil, goerr.New("--postgres-dsn is required for the postgres store")
		}
		client, err := postgres.New(ctx, c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if c.PostgresMigrate {
			if err := client.Migrate(ctx); err != nil {
				_ = client.Close(ctx)
				return nil, nil, err
			}
		}
		return client, func() {
			if err := client.Close(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to close postgres connection", "error", err)
			}
		}, nil

	case StoreFirestore:
		if c.FirestoreProject == "" {
			return nil, nil, goerr.New("--firestore-project is required for the firestore store")
		}
		client, err := firestore.New(ctx, c.FirestoreProject, c.FirestoreDatabase,
			[]firestore.Option{firestore.WithCollectionPrefix(c.FirestorePrefix)})
		if err != nil {
			return nil, nil, err
		}
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close firestore client", "error", err)
			}
		}, nil

	case StoreFile:
		if c.TargetsFile == "" {
			return nil, nil, goerr.New("--targets-file is required for the file store")
		}
		gateway, err := memory.LoadFile(c.TargetsFile)
		if err != nil {
			return nil, nil, err
		}
		return gateway, func() {
			if err := gateway.SaveFile(c.TargetsFile); err != nil {
				logger.Error("Failed to save targets file", "path", c.TargetsFile, "error", err)
			}
		}, nil

	default:
		return nil, nil, goerr.New("unknown store", goerr.V("store", c.Kind))
	}
}
