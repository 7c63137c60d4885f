// Package server exposes polls over HTTP.
//
// GET /wins?source=<id>[&limit=N] runs one poll for the source and answers
// with the wins as a JSON array. A failed poll answers 500 with a fixed
// retry-later body; the cause is only logged.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/webzook/wintail/internal/logging"
	"github.com/webzook/wintail/internal/metrics"
	"github.com/webzook/wintail/pkg/wintail"
)

// FailureBody is the response body of a failed poll.
const FailureBody = "Failed to fetch logfiles, come back later."

// Poller runs one poll. *wintail.Tailer implements it.
type Poller interface {
	Poll(ctx context.Context, sourceID string) ([]wintail.Record, error)
}

// Options configures a Server.
type Options struct {
	// DefaultSource is polled when the request names no source.
	DefaultSource string
	// MaxWins caps the wins in a response. 0 returns all.
	MaxWins int
	// Sources, when set, rejects IDs it cannot resolve before any poll
	// state is created for them.
	Sources wintail.Resolver
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Server serializes polls per source and renders their wins.
type Server struct {
	poller Poller
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Server.
func New(p Poller, opts Options) *Server {
	return &Server{
		poller: p,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "server"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wins", s.handleWins)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
	return RequestID(s.instrument(mux))
}

func (s *Server) handleWins(w http.ResponseWriter, r *http.Request) {
	sourceID := r.URL.Query().Get("source")
	if sourceID == "" {
		sourceID = s.opts.DefaultSource
	}
	limit := s.opts.MaxWins
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	log := s.logger.With(logging.Source(sourceID), logging.RequestID(GetRequestID(r.Context())))

	if s.opts.Sources != nil {
		if _, err := s.opts.Sources.Resolve(sourceID); err != nil {
			log.Info("unknown source requested", logging.Err(err))
			http.Error(w, "unknown source", http.StatusNotFound)
			return
		}
	}

	unlock := s.lock(sourceID)
	wins, err := s.poller.Poll(r.Context(), sourceID)
	unlock()
	if err != nil {
		if errors.Is(err, wintail.ErrUnknownSource) {
			log.Info("unknown source requested", logging.Err(err))
			http.Error(w, "unknown source", http.StatusNotFound)
			return
		}
		log.Error("poll failed", logging.Err(err))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(FailureBody))
		return
	}

	if limit > 0 && len(wins) > limit {
		log.Debug("truncating wins", slog.Int("wins", len(wins)), slog.Int("limit", limit))
		wins = wins[:limit]
	}
	if wins == nil {
		wins = []wintail.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(wins); err != nil {
		log.Warn("write response", logging.Err(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// lock takes the per-source mutex and returns its release.
func (s *Server) lock(sourceID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sourceID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sourceID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.opts.Metrics != nil {
			path := r.URL.Path
			switch path {
			case "/wins", "/healthz", "/metrics":
			default:
				path = "other"
			}
			s.opts.Metrics.ObserveRequest(path, rec.status, time.Since(start))
		}
	})
}

// ListenAndServe serves h on addr until ctx is done, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
