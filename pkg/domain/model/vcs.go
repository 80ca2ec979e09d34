package model

import "strings"

// VCSKind is the closed set of backends a target can be dispatched to
type VCSKind string

const (
	VCSGit          VCSKind = "git"
	VCSSubversion   VCSKind = "svn"
	VCSNone         VCSKind = "none"
	VCSManual       VCSKind = "manual"
	VCSArchived     VCSKind = "archived"
	VCSUnrecognized VCSKind = "unrecognized"
)

// ParseVCSKind maps a stored vcs tag to its backend kind. Tags that are not known map to
// VCSUnrecognized rather than falling through to another backend.
//
//   - "git" -> git, "svn" -> subversion
//   - "n/a" -> none (no version control, always reported as updated)
//   - "rhv", "cvs" -> manual (source lives in an archive or a VCS without a backend)
//   - "archived" -> archived (skipped)
func ParseVCSKind(tag string) VCSKind {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "git":
		return VCSGit
	case "svn":
		return VCSSubversion
	case "n/a":
		return VCSNone
	case "rhv", "cvs":
		return VCSManual
	case "archived":
		return VCSArchived
	default:
		return VCSUnrecognized
	}
}
