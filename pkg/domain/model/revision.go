package model

import (
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
)

// RevisionKind selects which point in history a descriptor tracks
type RevisionKind int

const (
	RevisionBranch RevisionKind = iota + 1
	RevisionCommit
	RevisionNumber
	RevisionTag
)

var revisionKindNames = map[RevisionKind]string{
	RevisionBranch: "branch",
	RevisionCommit: "commit",
	RevisionNumber: "revnum",
	RevisionTag:    "tag",
}

func (k RevisionKind) String() string {
	if name, ok := revisionKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseRevisionKind parses the stored name of a revision kind ("branch", "commit", "revnum", "tag").
func ParseRevisionKind(s string) (RevisionKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for kind, n := range revisionKindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, goerr.Wrap(types.ErrInvalidDescriptor, "unknown revision kind", goerr.V("kind", s))
}

// RevisionDescriptor describes which point in history of a source to track. It is immutable
// once constructed.
type RevisionDescriptor struct {
	anchorID string
	kind     RevisionKind
	value    string
}

// NewRevisionDescriptor validates and builds a descriptor. An empty value is only allowed for
// branches, where it stands for the repository's default branch. Revision numbers must be
// positive integers.
func NewRevisionDescriptor(anchorID string, kind RevisionKind, value string) (RevisionDescriptor, error) {
	if _, ok := revisionKindNames[kind]; !ok {
		return RevisionDescriptor{}, goerr.Wrap(types.ErrInvalidDescriptor, "unknown revision kind",
			goerr.V("kind", int(kind)))
	}

	value = strings.TrimSpace(value)
	if value == "" && kind != RevisionBranch {
		return RevisionDescriptor{}, goerr.Wrap(types.ErrInvalidDescriptor, "revision value is required",
			goerr.V("kind", kind.String()),
			goerr.V("anchor_id", anchorID),
		)
	}

	if kind == RevisionNumber {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return RevisionDescriptor{}, goerr.Wrap(types.ErrInvalidDescriptor, "revision number must be a positive integer",
				goerr.V("value", value),
				goerr.V("anchor_id", anchorID),
			)
		}
	}

	return RevisionDescriptor{
		anchorID: anchorID,
		kind:     kind,
		value:    value,
	}, nil
}

// AnchorID identifies the source this descriptor is scoped to
func (d RevisionDescriptor) AnchorID() string {
	return d.anchorID
}

func (d RevisionDescriptor) Kind() RevisionKind {
	return d.kind
}

// Value returns the branch name, commit hash, revision number or tag name. ok is false only
// for a branch descriptor that follows the default branch.
func (d RevisionDescriptor) Value() (value string, ok bool) {
	return d.value, d.value != ""
}

// IsDefaultBranch reports whether the descriptor follows the default branch (HEAD / trunk).
func (d RevisionDescriptor) IsDefaultBranch() bool {
	return d.kind == RevisionBranch && d.value == ""
}

func (d RevisionDescriptor) String() string {
	if d.IsDefaultBranch() {
		return "branch:HEAD"
	}
	return d.kind.String() + ":" + d.value
}
