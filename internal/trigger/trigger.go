// Package trigger exposes a synchronization run over HTTP.
//
// GET on the trigger path describes the endpoint, POST runs one bounded
// synchronization and answers with its outcome as plain text.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tszyrowski/mosync/internal/logging"
	"github.com/tszyrowski/mosync/pkg/types"
)

// Response bodies.
const (
	MsgUsage   = "This endpoint accepts POST requests to trigger sync."
	MsgSuccess = "Sync successful"
)

const shutdownTimeout = 5 * time.Second

// Syncer runs one bounded synchronization.
type Syncer interface {
	Sync(ctx context.Context) types.Result
}

// SyncerFunc adapts a function to Syncer.
type SyncerFunc func(ctx context.Context) types.Result

// Sync calls f.
func (f SyncerFunc) Sync(ctx context.Context) types.Result { return f(ctx) }

// Handler serves the trigger endpoint.
type Handler struct {
	syncer Syncer
	logger *slog.Logger
}

// NewHandler returns a handler running s on POST.
func NewHandler(s Syncer, logger *slog.Logger) *Handler {
	return &Handler{syncer: s, logger: logging.OrDiscard(logger)}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		writeText(w, http.StatusOK, MsgUsage)
	case http.MethodPost:
		h.logger.Info("sync triggered", slog.String("remote", r.RemoteAddr))
		res := h.syncer.Sync(r.Context())
		status, body := render(res)
		writeText(w, status, body)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeText(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	}
}

func render(res types.Result) (int, string) {
	switch res.Outcome {
	case types.Success:
		return http.StatusOK, MsgSuccess
	case types.Timeout:
		return http.StatusInternalServerError, "Sync " + res.Cause
	default:
		return http.StatusInternalServerError, "Sync failed: " + res.Cause
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

// NewMux mounts h at path.
func NewMux(path string, h http.Handler) *http.ServeMux {
	if path == "" {
		path = types.DefaultTriggerPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, h)
	return mux
}

// Serve listens on cfg.Addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, cfg types.TriggerConfig, s Syncer, logger *slog.Logger) error {
	logger = logging.OrDiscard(logger)
	if cfg.Addr == "" {
		cfg.Addr = types.DefaultTriggerAddr
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewMux(cfg.Path, NewHandler(s, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("trigger listening", slog.String("addr", cfg.Addr), slog.String("path", cfg.Path))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("trigger server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("trigger shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("trigger server: %w", err)
	}
	logger.Info("trigger stopped")
	return nil
}
