package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/nightq/nightq/internal/formatter"
	"github.com/nightq/nightq/internal/models"
	"github.com/nightq/nightq/internal/settings"
	"github.com/nightq/nightq/internal/shared"
	"github.com/nightq/nightq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// QueueList fetches and prints the current queue.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	events := r.dispatcher.Subscribe()
	r.dispatcher.FetchQueue()

	var queue *models.Queue
	err := r.await(events, r.opTimeout(), func(ev tasks.Event) bool {
		if ev.Kind == tasks.QueueFetched {
			queue = ev.Queue
			return true
		}
		return false
	})
	if err != nil {
		return err
	}

	return r.writePlain("%s", formatter.FormatQueue(queue))
}

// QueueAdd submits a song request and reports the outcome.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	events := r.dispatcher.Subscribe()
	r.dispatcher.AddSong(query)

	// A rejection is reported as an API error before the submission
	// event arrives, so the error alone must not end the wait.
	var accepted bool
	var message string
	err := r.awaitWith(events, r.opTimeout(), func(ev tasks.Event) bool {
		if ev.Kind == tasks.SongSubmitted {
			accepted = ev.Success
			message = ev.Message
			return true
		}
		return false
	}, false)
	if err != nil {
		return err
	}

	if !accepted {
		return fmt.Errorf("request rejected: %s", message)
	}
	return r.writePlain("song requested\n")
}

// QueueRemove deletes a queued entry and prints the updated queue.
func (r *Runner) QueueRemove(ctx context.Context, cmd *cli.Command) error {
	return r.mutateQueue(cmd.StringArg("id"), r.dispatcher.DeleteSong)
}

// QueuePromote moves a queued entry to the front and prints the updated
// queue.
func (r *Runner) QueuePromote(ctx context.Context, cmd *cli.Command) error {
	return r.mutateQueue(cmd.StringArg("id"), r.dispatcher.PromoteSong)
}

func (r *Runner) mutateQueue(id string, op func(string) string) error {
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	events := r.dispatcher.Subscribe()
	op(id)

	// The mutation refetches on success; the arriving queue doubles as
	// the confirmation.
	var queue *models.Queue
	err := r.await(events, r.opTimeout(), func(ev tasks.Event) bool {
		if ev.Kind == tasks.QueueFetched {
			queue = ev.Queue
			return true
		}
		return false
	})
	if err != nil {
		return err
	}

	return r.writePlain("%s", formatter.FormatQueue(queue))
}

// QueueWatch polls the queue until interrupted.
func (r *Runner) QueueWatch(ctx context.Context, cmd *cli.Command) error {
	seconds := cmd.Int("interval")
	if seconds <= 0 {
		seconds = settings.DefaultAutoRefreshInterval
		if r.store != nil {
			seconds = r.store.AutoRefreshInterval()
		}
	}
	interval := time.Duration(seconds) * time.Second

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := r.dispatcher.Subscribe()
	watcher := tasks.NewWatcher(r.dispatcher, interval, r.logger)
	go watcher.Run(ctx)

	r.writePlain("watching queue every %s, press ctrl-c to stop\n\n", interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case tasks.QueueFetched:
				r.writePlain("%s\n", formatter.FormatQueue(ev.Queue))
			case tasks.APIError:
				r.writePlain("%s\n", formatter.FormatError(ev.Message))
			}
		}
	}
}
