package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/felixbrock/crayon/internal/app"
	"github.com/felixbrock/crayon/internal/persistence"
)

func setupLogging(w io.Writer, format string, verbose bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func loadConfig(flags *rootFlags, stderr io.Writer) (app.Config, error) {
	config, err := app.LoadConfig(flags.configPath)
	if err != nil {
		return config, err
	}
	setupLogging(stderr, config.LogFormat, flags.verbose)
	return config, nil
}

// recordStore opens the configured store. The returned func releases it.
func recordStore(ctx context.Context, config app.Config) (app.RecordStore, func(), error) {
	switch config.RecordStore {
	case app.StoreSupabase:
		return persistence.SupabaseStore{
			BaseHeaders: persistence.SupabaseHeaders(config.DBApiKey),
			BaseUrl:     config.DBUrl,
			Client:      http.DefaultClient,
		}, func() {}, nil
	case app.StorePostgres:
		store, err := persistence.OpenPostgres(ctx, config.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error(fmt.Sprintf("Error occured: %s", err.Error()))
			}
		}, nil
	case app.StoreCSV:
		return persistence.NewCSVStore(config.CSVDir), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown record store %q", config.RecordStore)
	}
}

func assistant(config app.Config) app.Assistant {
	return app.Assistant{
		Completer: persistence.OAIRepo{
			Url:          config.OAIUrl,
			DefaultModel: config.OAIModel,
			Credential:   config.Credential,
			Client:       http.DefaultClient,
		},
		Model: config.OAIModel,
	}
}
