package provider

import (
	"context"
	"time"
)

// checkFunc asks once for the state of an async video task. It reports
// done when the task settled, with either out or err set. A poll that got
// no answer returns done=false and a nil error so the next tick retries.
type checkFunc func(ctx context.Context) (out Output, done bool, err error)

// pollVideo runs check every interval until the task settles or maxPolls
// ticks have passed. Progress moves one point per tick up to the cap.
func pollVideo(ctx context.Context, interval time.Duration, maxPolls int, progress ProgressFunc, check checkFunc) (Output, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		if progress != nil {
			progress(min(videoProgressStart+attempt, videoProgressCap))
		}

		out, done, err := check(ctx)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if done || err != nil {
			return out, err
		}
	}
	return nil, ErrVideoTimeout
}
