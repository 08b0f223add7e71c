package course

// Status is the moderation state of a course.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
	StatusDeleted   Status = "deleted" // terminal
)

var statusTransitions = map[Status][]Status{
	StatusDraft:     {StatusPending},
	StatusPending:   {StatusPublished, StatusRejected},
	StatusPublished: {StatusDeleted},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPublished, StatusRejected, StatusDeleted:
		return true
	}
	return false
}

// CanTransition reports whether a course may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
