package queue

import "time"

// Attempt outcomes reported to observers.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRetry     = "retry"
	OutcomeFailed    = "failed"
)

// Observer receives engine events, typically to feed metrics.
type Observer interface {
	EntryEnqueued(queue string)
	AttemptFinished(queue, outcome, errorKind string, elapsed time.Duration)
	QueueDepth(queue string, stats Stats)
}

type nopObserver struct{}

func (nopObserver) EntryEnqueued(string) {}
func (nopObserver) AttemptFinished(string, string, string, time.Duration) {}
func (nopObserver) QueueDepth(string, Stats) {}
