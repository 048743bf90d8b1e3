package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nightq/nightq/internal/auth"
	"github.com/nightq/nightq/internal/repositories"
	"github.com/nightq/nightq/internal/settings"
	"github.com/nightq/nightq/internal/shared"
	"github.com/nightq/nightq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	store      *settings.Store
	controller *auth.Controller
	dispatcher *tasks.Dispatcher
	history    *repositories.SongRepository
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Store      *settings.Store
	Controller *auth.Controller
	Dispatcher *tasks.Dispatcher
	History    *repositories.SongRepository
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		store:      opts.Store,
		controller: opts.Controller,
		dispatcher: opts.Dispatcher,
		history:    opts.History,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, queueCommand, playerCommand, srCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// await consumes dispatcher events until accept signals completion or the
// deadline passes. API errors abort the wait.
func (r *Runner) await(events <-chan tasks.Event, timeout time.Duration, accept func(tasks.Event) bool) error {
	return r.awaitWith(events, timeout, accept, true)
}

// awaitWith is await with the API-error abort made optional. Commands
// whose completion event follows a reported failure keep waiting.
func (r *Runner) awaitWith(events <-chan tasks.Event, timeout time.Duration, accept func(tasks.Event) bool, stopOnError bool) error {
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("%w: event stream closed", shared.ErrAPIRequest)
			}
			if accept(ev) {
				return nil
			}
			if stopOnError && ev.Kind == tasks.APIError {
				return fmt.Errorf("%w: %s", shared.ErrAPIRequest, ev.Message)
			}
		case <-deadline:
			return fmt.Errorf("%w: timed out waiting for response", shared.ErrAPIRequest)
		}
	}
}

// opTimeout budgets a single dispatched operation, leaving room for one
// refresh-and-retry pass.
func (r *Runner) opTimeout() time.Duration {
	return 3*r.config.HTTPTimeout() + 2*time.Second
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
