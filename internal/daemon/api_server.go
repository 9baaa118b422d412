package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"drq/internal/api"
	"drq/internal/config"
	"drq/internal/logging"
	"drq/internal/queue"
	"drq/internal/services"
)

const maxRequestBody = 1 << 16

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.handler = srv.routes(cfg.API.Token, cfg.API.Metrics)
	return srv
}

func (s *apiServer) routes(token string, exposeMetrics bool) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(s.log()))
	r.Use(authMiddleware(token))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/songs", s.handleSongs)
		r.Route("/music", func(r chi.Router) {
			r.Post("/play", s.handlePlay)
			r.Get("/entries", s.handleEntries)
			r.Delete("/entries", s.handleClearEntries)
			r.Post("/entries/{id}/retry", s.handleRetryEntry)
		})
		r.Route("/venues", func(r chi.Router) {
			r.Get("/", s.handleVenues)
			r.Post("/", s.handleAddVenue)
			r.Post("/sync", s.handleSyncVenues)
			r.Post("/retry", s.handleRetryVenues)
		})
	})
	if exposeMetrics && s.daemon.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.daemon.metrics.Handler())
	}
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	s.log().Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	listener := s.listener
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          os.Getpid(),
		Backend:      status.Backend,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Music:        api.FromStats(MusicQueue, status.Music, status.MusicDraining),
		Sync: api.SyncStatus{
			Endpoint:     s.daemon.cfg.Sync.Endpoint,
			Pending:      status.PendingVenues,
			Sweeps:       status.Sweeps,
			Schedule:     s.daemon.cfg.Sync.Schedule,
			NetworkWatch: status.NetworkWatch,
		},
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	if !status.NextSweep.IsZero() {
		payload.Sync.NextSweepAt = status.NextSweep.UTC().Format(time.RFC3339)
	}
	if status.Sweeps > 0 {
		last := api.FromSweep(status.LastSweep)
		payload.Sync.LastSweep = &last
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleSongs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.SongListResponse{Songs: api.FromSongs(s.daemon.Songs())})
}

func (s *apiServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req api.PlayRequest
	if !s.decode(w, r, &req) {
		return
	}
	entry, err := s.daemon.Play(r.Context(), req.SongID, req.ForceFail)
	if entry.ID == "" {
		s.writeError(w, err)
		return
	}
	if err != nil {
		// Queued in memory; the durable write failed and is already logged.
		w.Header().Set("Warning", `199 drq "entry not persisted"`)
	}
	s.writeJSON(w, http.StatusAccepted, api.EntryResponse{Entry: api.FromEntry(entry, s.daemon.SongTitle)})
}

func (s *apiServer) handleEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.daemon.Entries(r.URL.Query().Get("status"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.EntryListResponse{Entries: api.FromEntries(entries, s.daemon.SongTitle)})
}

func (s *apiServer) handleRetryEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.daemon.RetryEntry(r.Context(), chi.URLParam(r, "id"))
	resp := api.RetryResponse{Retried: ok}
	if ok && entry.ID != "" {
		dto := api.FromEntry(entry, s.daemon.SongTitle)
		resp.Entry = &dto
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleClearEntries(w http.ResponseWriter, r *http.Request) {
	removed, err := s.daemon.ClearEntries(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: removed})
}

func (s *apiServer) handleVenues(w http.ResponseWriter, r *http.Request) {
	pendingOnly, _ := strconv.ParseBool(r.URL.Query().Get("pending"))
	venues, err := s.daemon.Venues(r.Context(), pendingOnly)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.VenueListResponse{Venues: api.FromVenues(venues)})
}

func (s *apiServer) handleAddVenue(w http.ResponseWriter, r *http.Request) {
	var req api.AddVenueRequest
	if !s.decode(w, r, &req) {
		return
	}
	v, err := s.daemon.AddVenue(r.Context(), req.Name, req.Latitude, req.Longitude)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.VenueResponse{Venue: api.FromVenue(v)})
}

func (s *apiServer) handleSyncVenues(w http.ResponseWriter, r *http.Request) {
	result := s.daemon.SyncVenues(r.Context())
	s.writeJSON(w, http.StatusOK, api.SweepResponse{Sweep: api.FromSweep(result)})
}

func (s *apiServer) handleRetryVenues(w http.ResponseWriter, r *http.Request) {
	summary, err := s.daemon.RetryVenues(r.Context())
	resp := api.VenueRetryResponse{
		Synced: summary.Synced,
		Failed: summary.Failed,
		Total:  summary.Total,
		Online: summary.Online,
	}
	if err != nil {
		if !summary.Online {
			resp.Error = err.Error()
			s.writeJSON(w, http.StatusOK, resp)
			return
		}
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body: " + err.Error(), Kind: services.KindValidation})
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	kind := services.KindOf(err)
	status := http.StatusInternalServerError
	switch {
	case kind == services.KindValidation:
		status = http.StatusBadRequest
	case kind == services.KindNotFound, errors.Is(err, queue.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Kind: kind})
}

func (s *apiServer) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}

// requestLogger logs every request with method, path, status, and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("request",
				logging.String(logging.FieldEventType, "api_request"),
				logging.String(logging.FieldCorrelationID, chimw.GetReqID(r.Context())),
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
