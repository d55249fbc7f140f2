package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hypergopher/blogdesk"
	"github.com/hypergopher/blogdesk/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the web server",
	Long: `Start the web server on the configured host and port.

With --watch the content directory is imported at startup and kept in sync while the server runs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 3000, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("watch", false, "Sync the content directory into the store while serving")
	serveCmd.Flags().String("content", "", "Content directory to watch")

	_ = bindFlags(serveCmd.Flags(), map[string]string{
		"server.port":   "port",
		"server.host":   "host",
		"content.watch": "watch",
		"content.dir":   "content",
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	events := blogdesk.NewBroadcaster(16)
	srv := server.New(a.store,
		server.WithLogger(a.logger),
		server.WithPageSize(a.cfg.Server.PageSize),
		server.WithBroadcaster(events),
	)

	if a.cfg.Content.Watch {
		syncer := blogdesk.NewSyncer(a.fileSystem(""), a.store,
			blogdesk.WithSyncLogger(a.logger.With(slog.String("component", "sync"))),
			blogdesk.WithSyncBroadcaster(events),
		)
		if err := os.MkdirAll(a.cfg.Content.Dir, 0755); err != nil {
			return err
		}
		result, err := syncer.SyncAll(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("content imported", slog.Int("created", result.Created), slog.Int("updated", result.Updated), slog.Int("skipped", result.Skipped))

		go func() {
			if err := syncer.Watch(ctx); err != nil {
				a.logger.Error("content watcher stopped", slog.Any("error", err))
			}
		}()
	}

	httpServer := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", slog.String("addr", httpServer.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
