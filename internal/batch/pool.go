// Package batch runs the "generate all" actions: an in-memory bounded pool
// that reports aggregate progress and never persists anything.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/frameforge/frameforge-agent/internal/events"
)

// Pool ceilings. They are independent of the render queue's ceiling.
const (
	SceneImageConcurrency = 2
	ShotImageConcurrency  = 5
	AvatarConcurrency     = 2
)

type Item struct {
	ID    string
	Label string
	Skip  bool
}

// Progress is the aggregate emitted after every state change.
type Progress struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Errors    int     `json:"errors"`
	Current   *string `json:"current"`
}

type Result struct {
	Generated int    `json:"generated"`
	Skipped   int    `json:"skipped"`
	Errors    int    `json:"errors"`
	Summary   string `json:"summary"`
}

// WorkFunc processes one item.
type WorkFunc func(ctx context.Context, item Item) error

type Pool struct {
	limit   int
	channel string
	emitter events.Emitter
	logger  *slog.Logger
}

func NewPool(limit int, channel string, emitter events.Emitter, logger *slog.Logger) *Pool {
	if limit <= 0 {
		limit = 1
	}
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Pool{limit: limit, channel: channel, emitter: emitter, logger: logger}
}

// Run processes every item not flagged Skip with at most limit in flight.
// Items are admitted in order; admission waits for a running item to finish
// once the window is full. A failed item is counted and the rest continue.
func (p *Pool) Run(ctx context.Context, items []Item, work WorkFunc) Result {
	var todo []Item
	for _, it := range items {
		if !it.Skip {
			todo = append(todo, it)
		}
	}

	var mu sync.Mutex
	progress := Progress{Total: len(todo)}
	emit := func(current *string) {
		progress.Current = current
		p.emitter.Emit(p.channel, progress)
	}

	start := time.Now()
	mu.Lock()
	emit(nil)
	mu.Unlock()

	var g errgroup.Group
	g.SetLimit(p.limit)
	for _, it := range todo {
		g.Go(func() error {
			label := it.Label
			mu.Lock()
			emit(&label)
			mu.Unlock()

			err := work(ctx, it)

			mu.Lock()
			if err != nil {
				progress.Errors++
				p.logger.Warn("batch item failed", "channel", p.channel, "item", it.ID, "error", err)
			} else {
				progress.Completed++
			}
			emit(&label)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	mu.Lock()
	defer mu.Unlock()
	emit(nil)

	res := Result{
		Generated: progress.Completed,
		Skipped:   len(items) - len(todo),
		Errors:    progress.Errors,
	}
	res.Summary = summarize(res)
	p.logger.Info("batch finished", "channel", p.channel, "summary", res.Summary, "duration", time.Since(start))
	return res
}

func summarize(r Result) string {
	s := fmt.Sprintf("%d succeeded, %d failed", r.Generated, r.Errors)
	if r.Skipped > 0 {
		s += fmt.Sprintf(", %d skipped", r.Skipped)
	}
	return s
}
