package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ParseClock parses an "HH:MM" wall clock time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid daily time %q: want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// NextTrigger returns the first hour:minute in now's location strictly after now.
func NextTrigger(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// Daily fires run once a day at a fixed local time.
type Daily struct {
	At         string // HH:MM
	Clock      clockwork.Clock
	Logger     *zap.Logger
	RunOnStart bool
}

// Start blocks until ctx is cancelled. Runs happen on the calling goroutine, one
// at a time, and are detached from ctx so a shutdown lets the current run finish.
func (d *Daily) Start(ctx context.Context, run func(context.Context)) error {
	hour, minute, err := ParseClock(d.At)
	if err != nil {
		return err
	}

	if d.RunOnStart {
		d.runOnce(ctx, run)
	}

	for {
		now := d.Clock.Now()
		next := NextTrigger(now, hour, minute)
		d.Logger.Info("next run scheduled", zap.Time("at", next), zap.Duration("in", next.Sub(now)))

		timer := d.Clock.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			d.Logger.Info("scheduler stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-timer.Chan():
		}

		d.runOnce(ctx, run)
	}
}

func (d *Daily) runOnce(ctx context.Context, run func(context.Context)) {
	d.Logger.Info("daily run triggered")
	run(context.WithoutCancel(ctx))
}
