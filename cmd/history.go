package main

import (
	"context"
	"fmt"

	"github.com/nightq/nightq/internal/formatter"
	"github.com/nightq/nightq/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints or exports the locally recorded song history.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if r.history == nil {
		return fmt.Errorf("%w: history database not available, run setup first", shared.ErrMissingConfig)
	}

	entries, err := r.history.Recent(ctx, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if path := cmd.String("export"); path != "" {
		written, err := formatter.WriteHistoryExport(entries, path)
		if err != nil {
			return err
		}
		return r.writePlain("history written to %s\n", written)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	return r.writePlain("%s", formatter.FormatHistory(entries))
}
