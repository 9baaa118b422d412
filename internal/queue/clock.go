package queue

import "time"

// Clock abstracts time so backoff can be driven deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the engine needs.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
