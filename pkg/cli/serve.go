package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpctrl "github.com/jacespedes2019/ElSol-Challenge/pkg/controller/http"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/async"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const warmupTimeout = 2 * time.Minute

func cmdServe() *cli.Command {
	var addr string
	var maxUploadSize int64
	var warmup bool
	var rt runtimeConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8000",
			Sources:     cli.EnvVars("ELSOL_ADDR"),
			Destination: &addr,
		},
		&cli.Int64Flag{
			Name:        "max-upload-size",
			Usage:       "Largest accepted upload in bytes",
			Value:       httpctrl.DefaultMaxUploadSize,
			Sources:     cli.EnvVars("ELSOL_MAX_UPLOAD_SIZE"),
			Destination: &maxUploadSize,
		},
		&cli.BoolFlag{
			Name:        "warmup",
			Usage:       "Embed a short text at startup so the first request does not pay model cold start",
			Value:       true,
			Sources:     cli.EnvVars("ELSOL_WARMUP"),
			Destination: &warmup,
		},
	}

	// Add shared config flags
	flags = append(flags, rt.Flags()...)
	flags = append(flags, rt.uploadFlags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, cleanup, err := rt.build(ctx, c)
			if err != nil {
				return err
			}
			defer cleanup()

			if warmup {
				async.Dispatch(ctx, "warmup", warmupTimeout, uc.Chat.Warmup)
			}

			httpHandler := httpctrl.New(uc,
				httpctrl.WithMaxUploadSize(maxUploadSize),
				httpctrl.WithHealthInfo("repository", rt.repo.Backend()),
				httpctrl.WithHealthInfo("embedding_model", rt.llm.EmbeddingModelID()),
			)
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
