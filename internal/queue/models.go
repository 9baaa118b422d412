package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a queue entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusSucceeded, StatusFailed}

// AllStatuses returns every entry status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts user input into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Entry is one durable unit of work. Ref identifies the domain object the
// executor acts on; it is never a copy of mutable domain state.
type Entry[P any] struct {
	ID        string    `json:"id"`
	Ref       P         `json:"payloadRef"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ForceFail bool      `json:"forceFail,omitempty"`

	// NextAttemptAt is the earliest time a backed-off entry runs again. It is
	// not persisted: after a restart pending entries are retried immediately.
	NextAttemptAt time.Time `json:"-"`
}

// Stats summarizes entry counts by status.
type Stats struct {
	Pending   int `json:"pending"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Total returns the number of entries across all statuses.
func (s Stats) Total() int {
	return s.Pending + s.Succeeded + s.Failed
}

func (s *Stats) add(status Status) {
	switch status {
	case StatusPending:
		s.Pending++
	case StatusSucceeded:
		s.Succeeded++
	case StatusFailed:
		s.Failed++
	}
}
