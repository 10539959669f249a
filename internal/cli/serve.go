package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"cryptoverse/internal/app"
	"cryptoverse/internal/delivery/websocket"
	"cryptoverse/internal/service"

	"github.com/spf13/cobra"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream bookmark changes and watchlist prices over a websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = rt.app.Config.Server.Addr
			}
			return serve(cmd.Context(), rt.app, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func serve(ctx context.Context, b *app.Bootstrap, addr string) error {
	logger := b.Logger.With("module", "server")

	hub := websocket.NewHub(b.Bookmarks, b.Metrics, b.Logger)
	defer hub.Close()
	unsubscribe := b.Bookmarks.Subscribe(hub.BookmarkChanged)
	defer unsubscribe()

	poller := service.NewWatchlistPoller(b.Market, b.Bookmarks, b.Config.PollInterval(), hub.WatchlistUpdated, b.Logger)
	poller.Start(ctx)
	defer poller.Stop()

	iconsDone := make(chan struct{})
	go func() {
		defer close(iconsDone)
		b.SyncIcons(ctx)
	}()
	defer func() { <-iconsDone }()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: newServeMux(b, hub)}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	logger.Info("Server listening", slog.String("addr", listener.Addr().String()))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newServeMux(b *app.Bootstrap, hub *websocket.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.Handle)

	mux.HandleFunc("GET /api/bookmarks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, b.Bookmarks.List())
	})

	mux.HandleFunc("GET /api/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, b.Metrics.Snapshot())
	})

	mux.HandleFunc("POST /api/refresh", func(w http.ResponseWriter, r *http.Request) {
		if err := b.Market.Refresh(r.URL.Query().Get("query")); err != nil {
			if errors.Is(err, service.ErrUnknownQuery) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}
