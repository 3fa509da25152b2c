package engine

import (
	"context"
	"errors"
	"time"
)

var ErrReplayFinished = errors.New("replay clock reached the end of its range")

type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ReplayClock jumps forward instead of waiting. It is driven by a single
// goroutine and is not safe for concurrent use.
type ReplayClock struct {
	now       time.Time
	end       time.Time
	onAdvance func(time.Time)
}

func NewReplayClock(start, end time.Time, onAdvance func(time.Time)) *ReplayClock {
	return &ReplayClock{
		now:       start,
		end:       end,
		onAdvance: onAdvance,
	}
}

func (c *ReplayClock) Now() time.Time {
	return c.now
}

func (c *ReplayClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	if c.onAdvance != nil {
		c.onAdvance(c.now)
	}
	if c.now.After(c.end) {
		return ErrReplayFinished
	}
	return nil
}
