// Package server exposes the prompt manager over a local HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/nikbrunner/pm/internal/exporter"
	"github.com/nikbrunner/pm/internal/importer"
	"github.com/nikbrunner/pm/internal/logging"
	"github.com/nikbrunner/pm/internal/model"
	"github.com/nikbrunner/pm/internal/popular"
	"github.com/nikbrunner/pm/internal/search"
	"github.com/nikbrunner/pm/internal/state"
)

// maxBodySize caps request bodies, imports included.
const maxBodySize = 10 << 20

const shutdownTimeout = 5 * time.Second

// Server is the local HTTP API.
type Server struct {
	manager  *state.Manager
	cache    *popular.Cache
	router   chi.Router
	hub      *hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	http     *http.Server
	shutdown bool
}

// New creates a server over manager and cache.
func New(manager *state.Manager, cache *popular.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.With("component", "server")
	}
	s := &Server{
		manager: manager,
		cache:   cache,
		hub:     newHub(logger),
		logger:  logger,
		now:     time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/actions", s.handleAction)
		r.Post("/save", s.handleSave)
		r.Post("/flush", s.handleFlush)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Get("/popular", s.handlePopular)
		r.Put("/popular/url", s.handlePopularURL)
		r.Post("/popular/{promptID}/copy", s.handleCopyPopular)
		r.Get("/ws", s.handleWS)
	})

	s.router = r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.http = srv
	s.mu.Unlock()

	s.logger.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown disconnects websocket clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()

	s.mu.Lock()
	s.shutdown = true
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	s.logger.Info("server stopping")
	return srv.Shutdown(ctx)
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.State())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := state.DecodeAction(body)
	if err != nil {
		writeError(w, err)
		return
	}

	next, err := s.manager.Dispatch(a)
	if err != nil {
		s.logger.Debug("action rejected", "type", a.Type(), "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Save(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Flush(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.manager.Export()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", exporter.BackupFileName(s.now())))
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.manager.Import(body); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.manager.State())
}

// popularResponse is a filtered feed plus the time of the last refresh.
type popularResponse struct {
	model.PromptsResponse
	LastUpdate int64 `json:"lastUpdate,omitempty"` // unix milliseconds
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	refresh, _ := strconv.ParseBool(q.Get("refresh"))

	resp := popularResponse{
		PromptsResponse: search.FilterPopular(s.cache.Fetch(r.Context(), refresh), q.Get("category"), q.Get("q")),
	}
	if last, ok := s.cache.LastUpdate(r.Context()); ok {
		resp.LastUpdate = last.UnixMilli()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePopularURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.cache.SetCustomURL(r.Context(), req.URL); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": s.cache.FeedURL(r.Context())})
}

func (s *Server) handleCopyPopular(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderID string `json:"folderId"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.FolderID == "" {
		writeMessage(w, http.StatusBadRequest, "folderId is required")
		return
	}

	feed := s.cache.Fetch(r.Context(), false)
	pp := feed.PopularByID(chi.URLParam(r, "promptID"))
	if pp == nil {
		writeMessage(w, http.StatusNotFound, "popular prompt not found")
		return
	}

	prompt := model.PromptFromPopular(*pp, req.FolderID)
	if _, err := s.manager.Dispatch(state.AddPrompt{FolderID: req.FolderID, Prompt: prompt}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, prompt)
}

// --- Helpers ---

var errBadRequest = errors.New("invalid request")

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return body, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrFolderNotFound), errors.Is(err, model.ErrPromptNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, state.ErrInvalidPayload),
		errors.Is(err, state.ErrUnknownAction),
		errors.Is(err, model.ErrInvalidSettings),
		errors.Is(err, importer.ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, state.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeMessage(w, statusFor(err), err.Error())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
