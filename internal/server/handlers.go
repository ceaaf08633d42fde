package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/services"
	"github.com/desertthunder/ytrelay/internal/shared"
)

// RootMessage is the liveness message served at /.
const RootMessage = "YT Music relay is live and routing requests."

// Catalog is the metadata side of the API.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) (*models.SearchResult, error)
	Playlist(ctx context.Context, rawURL string) (*models.Playlist, error)
	StreamMetadata(ctx context.Context, videoID string) (*models.StreamMetadata, error)
}

// Relay opens audio streams.
type Relay interface {
	Open(ctx context.Context, videoID string) (*services.Stream, error)
}

// API serves the search, playlist, stream and proxy endpoints.
type API struct {
	catalog Catalog
	relay   Relay
	logger  *log.Logger
}

// NewAPI creates the endpoint handlers.
func NewAPI(catalog Catalog, relay Relay, logger *log.Logger) *API {
	return &API{catalog: catalog, relay: relay, logger: logger}
}

// Register adds every endpoint to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/search", http.HandlerFunc(a.search))
	r.Handle(http.MethodGet, "/playlist", http.HandlerFunc(a.playlist))
	r.Handle(http.MethodGet, "/stream/{video_id}", http.HandlerFunc(a.stream))
	r.Handle(http.MethodGet, "/proxy/{video_id}", http.HandlerFunc(a.proxy))
}

func (a *API) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("query")
	if query == "" {
		a.fail(w, r, fmt.Errorf("%w: query: field required", shared.ErrInvalidInput))
		return
	}

	limit := services.DefaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			a.fail(w, r, fmt.Errorf("%w: limit: value is not a valid integer", shared.ErrInvalidInput))
			return
		}
		limit = n
	}

	result, err := a.catalog.Search(r.Context(), query, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) playlist(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		a.fail(w, r, fmt.Errorf("%w: url: field required", shared.ErrInvalidInput))
		return
	}

	playlist, err := a.catalog.Playlist(r.Context(), rawURL)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (a *API) stream(w http.ResponseWriter, r *http.Request) {
	meta, err := a.catalog.StreamMetadata(r.Context(), r.PathValue("video_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// proxy relays the audio bytes. Once the first byte is written the status is fixed, so
// later failures only end the response early.
func (a *API) proxy(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("video_id")

	stream, err := a.relay.Open(r.Context(), videoID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", stream.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	stats, err := stream.Forward(w)
	kv := []any{
		"video_id", videoID,
		"state", stats.State,
		"chunks", stats.Chunks,
		"bytes", stats.Bytes,
		"elapsed", stats.Elapsed,
		"request_id", RequestIDFrom(r.Context()),
	}
	switch {
	case err == nil:
		a.logger.Debug("relay finished", kv...)
	case errors.Is(r.Context().Err(), context.Canceled):
		a.logger.Info("caller disconnected", kv...)
	default:
		a.logger.Warn("relay aborted", append(kv, "error", err)...)
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := writeError(w, err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestIDFrom(r.Context()))
		return
	}
	a.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
}

// StatusHandler serves the liveness message and the health check.
type StatusHandler struct {
	backend string
}

// NewStatusHandler reports backend as the active extractor.
func NewStatusHandler(backend string) *StatusHandler {
	return &StatusHandler{backend: backend}
}

func (h *StatusHandler) Routes() []string {
	return []string{"GET /{$}", "GET /health"}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" {
		writeJSON(w, http.StatusOK, services.Health{Status: "ok", Backend: h.backend})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": RootMessage})
}

// NotFound answers unmatched paths with a JSON detail.
func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
}

// NewRouter assembles the full API with request ID, logging and panic recovery middleware.
func NewRouter(api *API, status *StatusHandler, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(RequestID(), Logger(logger), Recover(logger))

	api.Register(router)
	router.Handler(status)
	router.NotFound(NotFound())
	return router
}
