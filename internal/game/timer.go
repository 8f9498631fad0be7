package game

import "time"

// TimerFactory abstracts one-shot deferred execution so tests can fire
// commits by hand. The real implementation clamps past due-times to
// immediate, which time.AfterFunc already does for d <= 0.
type TimerFactory interface {
	After(d time.Duration, fn func())
}

type realTimers struct{}

func (realTimers) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

func NewTimerFactory() TimerFactory {
	return realTimers{}
}
