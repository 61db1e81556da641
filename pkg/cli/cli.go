package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/cli/config"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closers []func()

	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Default().Warn("failed to load .env", "error", err.Error())
	}

	flags := append(loggerCfg.Flags(), sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "elsol",
		Usage:   "Clinical conversation indexing and question answering",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, f)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, goerr.Wrap(err, "failed to configure sentry")
			}
			closers = append(closers, flush)

			logging.Default().Debug("Starting elsol", "logger", loggerCfg, slog.Attr{Key: "sentry", Value: slog.GroupValue(sentryCfg.LogAttrs()...)})
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdIngest(),
			cmdChat(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
