package user

// Status is the moderation state of an account.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted" // terminal
)

var statusTransitions = map[Status][]Status{
	StatusActive:    {StatusSuspended, StatusDeleted},
	StatusSuspended: {StatusActive, StatusDeleted},
}

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusSuspended || s == StatusDeleted
}

// CanTransition reports whether an account may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
