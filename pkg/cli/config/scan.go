package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/infra/vcs"
	"github.com/m-mizutani/upwatch/pkg/infra/vcs/git"
	"github.com/m-mizutani/upwatch/pkg/infra/vcs/svn"
	"github.com/m-mizutani/upwatch/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Scan holds worker pool and backend configuration
type Scan struct {
	Workers      int
	FetchTimeout time.Duration
	CloneDir     string
	GitDepth     int
	SvnBin       string
}

// Flags returns CLI flags for scan configuration
func (c *Scan) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "Number of concurrent scan workers",
			Value:       usecase.DefaultWorkers,
			Destination: &c.Workers,
			Sources:     cli.EnvVars("UPWATCH_WORKERS"),
		},
		&cli.DurationFlag{
			Name:        "fetch-timeout",
			Usage:       "Timeout of one repository fetch, 0 disables it",
			Value:       usecase.DefaultFetchTimeout,
			Destination: &c.FetchTimeout,
			Sources:     cli.EnvVars("UPWATCH_FETCH_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:        "clone-dir",
			Usage:       "Parent directory of temporary git clones (default: OS temp dir)",
			Destination: &c.CloneDir,
			Sources:     cli.EnvVars("UPWATCH_CLONE_DIR"),
		},
		&cli.IntFlag{
			Name:        "git-depth",
			Usage:       "History depth of branch and tag clones",
			Value:       1,
			Destination: &c.GitDepth,
			Sources:     cli.EnvVars("UPWATCH_GIT_DEPTH"),
		},
		&cli.StringFlag{
			Name:        "svn-bin",
			Usage:       "Path of the svn command",
			Value:       "svn",
			Destination: &c.SvnBin,
			Sources:     cli.EnvVars("UPWATCH_SVN_BIN"),
		},
	}
}

// Validate checks values the flags can not restrict
func (c *Scan) Validate() error {
	if c.Workers < 1 {
		return goerr.New("--workers must be at least 1", goerr.V("workers", c.Workers))
	}
	if c.FetchTimeout < 0 {
		return goerr.New("--fetch-timeout must not be negative", goerr.V("fetch_timeout", c.FetchTimeout))
	}
	if c.GitDepth < 0 {
		return goerr.New("--git-depth must not be negative", goerr.V("git_depth", c.GitDepth))
	}
	return nil
}

// Registry builds the backend registry
func (c *Scan) Registry() *vcs.Registry {
	return vcs.NewRegistry(
		vcs.WithBackend(model.VCSGit, git.New(git.WithTempDir(c.CloneDir), git.WithDepth(c.GitDepth))),
		vcs.WithBackend(model.VCSSubversion, svn.New(svn.WithBinary(c.SvnBin))),
	)
}

// Options returns the use case options of the worker pool
func (c *Scan) Options() []usecase.Option {
	return []usecase.Option{
		usecase.WithWorkers(c.Workers),
		usecase.WithFetchTimeout(c.FetchTimeout),
	}
}
