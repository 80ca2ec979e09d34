package model

// TargetID is the persistence layer's identity of a tracked target
type TargetID string

func (id TargetID) String() string {
	return string(id)
}

// Target is a read-only snapshot of a tracked project, owned by the persistence layer
type Target struct {
	ID       TargetID
	Name     string
	VCSTag   string // vcs tag as stored, e.g. "git", "svn", "n/a"
	Location string // repository URI
	Revision RevisionDescriptor
}

// VCS returns the backend kind derived from the stored tag
func (t *Target) VCS() VCSKind {
	return ParseVCSKind(t.VCSTag)
}

// LogValues returns key/value pairs identifying the target in log records
func (t *Target) LogValues() []any {
	return []any{
		"target_id", t.ID,
		"target", t.Name,
		"vcs", t.VCSTag,
		"location", t.Location,
	}
}
