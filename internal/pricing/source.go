package pricing

import "context"

// Source hands out the current tier schedule.
type Source interface {
	Snapshot(ctx context.Context) (Schedule, error)
}

// Static is a Source that always returns the same schedule.
type Static Schedule

// Snapshot implements Source.
func (s Static) Snapshot(context.Context) (Schedule, error) { return Schedule(s), nil }
