package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nightq/nightq/internal/formatter"
	"github.com/nightq/nightq/internal/models"
	"github.com/nightq/nightq/internal/shared"
	"github.com/nightq/nightq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlayerPlay resumes playback. Fire-and-forget; the dispatcher drains
// the job before the process exits.
func (r *Runner) PlayerPlay(ctx context.Context, cmd *cli.Command) error {
	r.dispatcher.ControlPlay()
	return r.writePlain("play requested\n")
}

// PlayerPause pauses playback.
func (r *Runner) PlayerPause(ctx context.Context, cmd *cli.Command) error {
	r.dispatcher.ControlPause()
	return r.writePlain("pause requested\n")
}

// PlayerSkip skips the current song and prints the updated queue.
func (r *Runner) PlayerSkip(ctx context.Context, cmd *cli.Command) error {
	events := r.dispatcher.Subscribe()
	r.dispatcher.ControlSkip()

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

// SREnable turns song request acceptance on.
func (r *Runner) SREnable(ctx context.Context, cmd *cli.Command) error {
	return r.setEnabled(true)
}

// SRDisable turns song request acceptance off.
func (r *Runner) SRDisable(ctx context.Context, cmd *cli.Command) error {
	return r.setEnabled(false)
}

func (r *Runner) setEnabled(enabled bool) error {
	events := r.dispatcher.Subscribe()
	r.dispatcher.SetEnabled(enabled)

	err := r.await(events, r.opTimeout(), func(ev tasks.Event) bool {
		return ev.Kind == tasks.StatusFetched
	})
	if err != nil {
		return err
	}

	if enabled {
		return r.writePlain("song requests enabled\n")
	}
	return r.writePlain("song requests disabled\n")
}

// SRVolume shows the current volume, or sets it when a level argument is
// given.
func (r *Runner) SRVolume(ctx context.Context, cmd *cli.Command) error {
	level := cmd.StringArg("level")
	if level == "" {
		return r.showVolume()
	}

	volume, err := strconv.Atoi(level)
	if err != nil || volume < 0 || volume > 100 {
		return fmt.Errorf("%w: volume must be 0-100", shared.ErrInvalidInput)
	}

	r.dispatcher.SetVolume(volume)
	return r.writePlain("volume set to %d\n", volume)
}

func (r *Runner) showVolume() error {
	events := r.dispatcher.Subscribe()
	r.dispatcher.FetchSettings()

	var volume int
	err := r.await(events, r.opTimeout(), func(ev tasks.Event) bool {
		if ev.Kind == tasks.VolumeFetched {
			volume = ev.Volume
			return true
		}
		return false
	})
	if err != nil {
		return err
	}

	return r.writePlain("volume: %d\n", volume)
}
