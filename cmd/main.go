package main

import (
	"context"
	"net/http"
	"os"

	"github.com/nightq/nightq/internal/auth"
	"github.com/nightq/nightq/internal/repositories"
	"github.com/nightq/nightq/internal/server"
	"github.com/nightq/nightq/internal/services"
	"github.com/nightq/nightq/internal/settings"
	"github.com/nightq/nightq/internal/shared"
	"github.com/nightq/nightq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// placeholderUser is attributed to the now-playing entry when the API
// omits a requester.
const placeholderUser = "AutoDJ"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err != nil {
			logger.Warn("failed to load config, using defaults", "error", err)
		} else {
			config = loadedConfig
		}
	}

	store := settings.NewStore(settings.DefaultPath(), logger)

	loop := server.NewLoopback(store, logger)
	controller := auth.NewController(auth.Config{
		ClientID:     config.Provider.ClientID,
		AuthorizeURL: config.Provider.AuthorizeURL,
		Scopes:       config.Provider.Scopes,
		BackendURL:   config.Backend.BaseURL,
		LoopbackPort: config.Auth.LoopbackPort,
		Timeout:      config.AuthTimeout(),
	}, store, loop, &http.Client{Timeout: config.HTTPTimeout()}, logger)

	executor := services.NewExecutor(config.Provider.APIBaseURL, controller, &http.Client{Timeout: config.HTTPTimeout()}, logger)
	client := services.NewClient(executor, store, logger)

	dispatcher := tasks.NewDispatcher(client, controller, config.Workers.Count, placeholderUser, logger)
	controller.SetNotifier(dispatcher)
	executor.SetReporter(dispatcher)
	defer dispatcher.Close()

	var history *repositories.SongRepository
	if config.Database.Path != "" {
		if db, err := shared.NewDatabase(config.Database.Path); err != nil {
			logger.Warn("history database unavailable", "error", err)
		} else {
			defer db.Close()
			shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
			if err := shared.RunMigrations(db); err != nil {
				logger.Warn("history migrations failed", "error", err)
			} else {
				history = repositories.NewSongRepository(db)
				dispatcher.SetHistory(history)
			}
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Store:      store,
		Controller: controller,
		Dispatcher: dispatcher,
		History:    history,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "nightq",
		Usage:    "Manage the Nightbot song request queue from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
