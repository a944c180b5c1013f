package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/omtree/internal/engine"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
	"github.com/gyaneshwarpardhi/omtree/internal/server"
)

func newServeCmd(f *flags) *cobra.Command {
	var (
		addr       string
		queueDepth int
		runTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the operation tree over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// nobody can answer prompts here; any prompt aborts its operation
			p := prompt.NewLine(strings.NewReader(""), io.Discard)
			a, err := newApp(*f, p, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			run := func(ctx context.Context, op *model.Operation, args map[string]string) *engine.RunResult {
				return a.run(ctx, op, model.ModeNonInteractive, args)
			}
			srv := server.New(ctx, a.loader.Tree(), run, a.loader.Reload, server.Options{
				QueueDepth: queueDepth,
				RunTimeout: runTimeout,
			})
			a.loader.OnChange(srv.SwapTree)
			if f.watch {
				stopWatch, err := a.loader.Watch()
				if err != nil {
					slog.Warn("tree watcher unavailable (hot-reload disabled)", "error", err)
				} else {
					defer stopWatch()
				}
			}

			httpSrv := &http.Server{
				Addr:         addr,
				Handler:      srv,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: runTimeout + 10*time.Second,
				IdleTimeout:  60 * time.Second,
			}
			errC := make(chan error, 1)
			go func() {
				slog.Info("server starting", "addr", addr)
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errC <- err
				}
				close(errC)
			}()

			select {
			case err := <-errC:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			slog.Info("shutting down")
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutCancel()
			_ = httpSrv.Shutdown(shutCtx)
			cancel()
			srv.Shutdown()
			slog.Info("goodbye")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().IntVar(&queueDepth, "queue-depth", 16, "Runs that may wait for the worker before requests get 429")
	cmd.Flags().DurationVar(&runTimeout, "run-timeout", 5*time.Minute, "How long a run request waits for its result")
	return cmd
}
