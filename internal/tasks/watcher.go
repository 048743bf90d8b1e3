package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nightq/nightq/internal/shared"
	"golang.org/x/time/rate"
)

// Watcher periodically refetches the queue so subscribers see updates
// without polling themselves.
type Watcher struct {
	dispatcher *Dispatcher
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewWatcher creates a watcher that fetches at most once per interval.
// Intervals below one second are clamped.
func NewWatcher(d *Dispatcher, interval time.Duration, logger *log.Logger) *Watcher {
	if interval < time.Second {
		interval = time.Second
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Watcher{
		dispatcher: d,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		logger:     logger,
	}
}

// Run fetches the queue on the configured cadence until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("queue watcher started")
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			w.logger.Info("queue watcher stopped")
			return ctx.Err()
		}
		w.dispatcher.FetchQueue()
	}
}
