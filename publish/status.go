package publish

// Status is the provider-side container status driving the publish state
// machine.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
	StatusError      Status = "ERROR"
	StatusExpired    Status = "EXPIRED"
	StatusPublished  Status = "PUBLISHED"
)

// Terminal reports whether polling can stop at this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusError, StatusExpired, StatusPublished:
		return true
	default:
		return false
	}
}
