package model

import (
	"fmt"
	"strings"
	"time"
)

// CommitInfo is the metadata of the latest relevant commit fetched from a backend
type CommitInfo struct {
	Timestamp  time.Time // absolute, compared in UTC
	Summary    string    // first line of the commit message
	Identifier string    // short hash for git, "r<N>" for subversion
}

// Note formats the commit as stored in a target's note field
func (c *CommitInfo) Note() string {
	return fmt.Sprintf("[%s] %s", c.Identifier, c.Summary)
}

// FirstLine returns msg up to the first line break
func FirstLine(msg string) string {
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		return msg[:i]
	}
	return msg
}

// Disposition tells the scan what to do with an observation
type Disposition int

const (
	// DispositionCompare: compare Commit.Timestamp with the stored baseline.
	DispositionCompare Disposition = iota
	// DispositionForceUpdate: nothing to compare against, always report as updated.
	DispositionForceUpdate
	// DispositionManual: no determination possible, a human has to check.
	DispositionManual
	// DispositionSkip: target is not watched.
	DispositionSkip
)

func (d Disposition) String() string {
	switch d {
	case DispositionCompare:
		return "compare"
	case DispositionForceUpdate:
		return "force_update"
	case DispositionManual:
		return "manual"
	case DispositionSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Observation is the result of asking a backend about a target. Commit is set only for
// DispositionCompare.
type Observation struct {
	Disposition Disposition
	Commit      *CommitInfo
}
