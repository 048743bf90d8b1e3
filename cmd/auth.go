package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nightq/nightq/internal/auth"
	"github.com/nightq/nightq/internal/formatter"
	"github.com/nightq/nightq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the interactive browser login and waits for the outcome.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.controller.IsAuthenticated() && !cmd.Bool("force") {
		return r.writePlain("already logged in as %s (use --force to re-authenticate)\n", r.accountLabel())
	}

	events := r.dispatcher.Subscribe()
	r.dispatcher.Authenticate()

	r.writePlain("opening browser: %s\n", r.controller.AuthURL())

	var success bool
	budget := r.config.AuthTimeout() + 5*time.Second
	err := r.await(events, budget, func(ev tasks.Event) bool {
		switch ev.Kind {
		case tasks.Countdown:
			r.writePlain("\r%s", formatter.FormatCountdown(ev.Seconds))
			return false
		case tasks.AuthFinished:
			success = ev.Success
			return true
		}
		return false
	})
	if err != nil {
		return err
	}

	r.writePlain("\n%s\n", formatter.FormatAuthResult(success))
	if !success {
		return fmt.Errorf("login did not complete")
	}
	return nil
}

// AuthLogout clears stored credentials.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.dispatcher.ClearTokens()
	r.logger.Info("credentials cleared")
	return r.writePlain("logged out\n")
}

// AuthStatus shows the stored credential state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if !r.controller.IsAuthenticated() {
		return r.writePlain("not logged in\n")
	}

	r.writePlain("logged in as %s\n", r.accountLabel())
	if r.store.RefreshToken() == "" {
		r.writePlain("warning: no refresh token stored, renewal will fail\n")
	}
	return nil
}

// AuthRefresh renews the access token synchronously.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	status := r.controller.RefreshToken(ctx)
	if status == auth.RefreshWaiting {
		status = r.controller.AwaitRefresh(ctx)
	}

	if status != auth.RefreshDone {
		return fmt.Errorf("token refresh failed")
	}
	return r.writePlain("token refreshed\n")
}

func (r *Runner) accountLabel() string {
	if name := r.store.UserName(); name != "" {
		return name
	}
	return "unknown account"
}
