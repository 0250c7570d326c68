package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/framepipe/internal/api"
	"github.com/roach88/framepipe/internal/config"
	"github.com/roach88/framepipe/internal/pipeline"
	"github.com/roach88/framepipe/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string
	Listen   string

	// Ready, if set, is called once the pipeline is up with the address the
	// introspection server listens on ("" when disabled). Tests use it.
	Ready func(addr string)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Host a pipeline",
		Long: `Build the pipeline described by a config file and keep it running.

When a database is configured every transition is written to the SQLite
transition log under a new run id. When a listen address is configured the
pipeline's stages, handles and lock contention are served as JSON.

Flags override the config file.

Example:
  framepipe run --config ./pipeline.yaml
  framepipe run --config ./pipeline.yaml --db ./framepipe.db --listen 127.0.0.1:8089`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to pipeline config (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite transition log (overrides recorder.database)")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "introspection listen address (overrides server.listen)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runPipeline(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Recorder.Database = opts.Database
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}

	logger := cfg.Logging.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	app := &api.App{}
	var (
		pipeOpts []pipeline.Option
		wg       sync.WaitGroup
	)

	if cfg.Recorder.Database != "" {
		st, rec, runID, err := openRecorder(ctx, cfg, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open transition log", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		app.Store, app.Recorder, app.RunID = st, rec, runID
		pipeOpts = append(pipeOpts, pipeline.WithEventSink(rec))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rec.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("recorder stopped", "error", err)
			}
		}()
	}

	p, err := cfg.NewPipeline(logger, pipeOpts...)
	if err != nil {
		cancel()
		wg.Wait()
		return WrapExitError(ExitCommandError, "failed to build pipeline", err)
	}
	app.Pipeline = p

	addr := ""
	if cfg.Server.Listen != "" {
		ln, err := net.Listen("tcp", cfg.Server.Listen)
		if err != nil {
			cancel()
			wg.Wait()
			return WrapExitError(ExitCommandError, "failed to listen", err)
		}
		addr = ln.Addr().String()
		srv := &http.Server{Handler: app.NewRouter(), ReadHeaderTimeout: 5 * time.Second}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("introspection server failed", "error", err)
				cancel()
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("pipeline started",
		"pipeline", cfg.Name,
		"stages", len(cfg.Stages),
		"run_id", app.RunID,
		"listen", addr,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %q running with %d stage(s).\n", cfg.Name, len(cfg.Stages))
	if addr != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Introspection on http://%s\n", addr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.Ready != nil {
		opts.Ready(addr)
	}

	<-ctx.Done()
	wg.Wait()

	if app.Recorder != nil {
		stats := app.Recorder.Stats()
		logger.Info("transition log closed",
			"run_id", app.RunID,
			"written", stats.Written,
			"failed", stats.Failed,
			"dropped", stats.Dropped,
		)
	}
	logger.Info("pipeline stopped gracefully")
	return nil
}

// openRecorder opens the transition log and registers a new run with a
// UUIDv7 id.
func openRecorder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, *store.Recorder, string, error) {
	st, err := store.Open(cfg.Recorder.Database)
	if err != nil {
		return nil, nil, "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		st.Close()
		return nil, nil, "", fmt.Errorf("generate run id: %w", err)
	}
	stages, err := cfg.PipelineStages()
	if err != nil {
		st.Close()
		return nil, nil, "", err
	}
	run := store.Run{ID: id.String(), Pipeline: cfg.Name, Stages: stages, StartedAt: time.Now()}
	if err := st.WriteRun(ctx, run); err != nil {
		st.Close()
		return nil, nil, "", err
	}

	logger.Info("transition log ready", "path", cfg.Recorder.Database, "run_id", run.ID)
	return st, store.NewRecorder(st, run.ID, logger), run.ID, nil
}
