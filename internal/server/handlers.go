package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/earshot/internal/discovery"
	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/services"
	"github.com/desertthunder/earshot/internal/shared"
)

// seedTrackLimit caps the caller-side seed fetch in serve mode.
const seedTrackLimit = 50

// TokenFunc supplies a valid access token for catalog calls, refreshing
// if necessary.
type TokenFunc func(ctx context.Context) (string, error)

// Discoverer is the subset of the discovery engine the HTTP layer
// needs.
type Discoverer interface {
	GetDiscoveryVerbose(ctx context.Context, progress chan<- discovery.ProgressUpdate, accessToken string, topTracks []models.Track, desired int) ([]models.DiscoveryResult, string, error)
}

// RunStore is the subset of the run repository the HTTP layer needs.
type RunStore interface {
	Get(id string) (*models.DiscoveryRun, error)
	List(limit int) ([]*models.DiscoveryRun, error)
}

// HealthHandler serves the liveness probe.
type HealthHandler struct{}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"GET /healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DiscoverHandler runs one discovery pass per request.
type DiscoverHandler struct {
	engine  Discoverer
	catalog services.Catalog
	token   TokenFunc
	desired int
	logger  *log.Logger
}

// NewDiscoverHandler creates a DiscoverHandler. desired is the default
// result count when the request carries no limit parameter.
func NewDiscoverHandler(engine Discoverer, catalog services.Catalog, token TokenFunc, desired int, logger *log.Logger) *DiscoverHandler {
	return &DiscoverHandler{engine: engine, catalog: catalog, token: token, desired: desired, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *DiscoverHandler) Routes() []string {
	return []string{"GET /api/discover"}
}

// discoverResponse is the JSON body of a discovery pass. Results carry
// scores and reasons only when verbose is requested.
type discoverResponse struct {
	Results []models.DiscoveryResult `json:"results,omitempty"`
	Tracks  []models.Track           `json:"tracks,omitempty"`
	Trace   string                   `json:"trace,omitempty"`
	Count   int                      `json:"count"`
}

// ServeHTTP handles GET /api/discover with optional limit and verbose
// query parameters.
func (h *DiscoverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	desired := h.desired
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		desired = parsed
	}
	verbose := r.URL.Query().Get("verbose") == "true"

	accessToken, err := h.token(ctx)
	if err != nil {
		h.logger.Error("token unavailable", "error", err)
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	seeds, err := h.catalog.GetTopTracks(ctx, accessToken, "medium_term", seedTrackLimit)
	if err != nil {
		h.logger.Warn("seed tracks unavailable", "error", err)
		seeds = nil
	}

	results, trace, err := h.engine.GetDiscoveryVerbose(ctx, nil, accessToken, seeds, desired)
	if err != nil {
		h.logger.Error("discovery failed", "error", err)
		writeError(w, http.StatusBadGateway, "discovery failed")
		return
	}

	response := discoverResponse{Count: len(results)}
	if verbose {
		response.Results = results
		response.Trace = trace
	} else {
		tracks := make([]models.Track, 0, len(results))
		for _, result := range results {
			tracks = append(tracks, result.Track)
		}
		response.Tracks = tracks
	}

	writeJSON(w, http.StatusOK, response)
}

// RunsHandler serves saved discovery runs.
type RunsHandler struct {
	store  RunStore
	logger *log.Logger
}

// NewRunsHandler creates a RunsHandler over the given store.
func NewRunsHandler(store RunStore, logger *log.Logger) *RunsHandler {
	return &RunsHandler{store: store, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *RunsHandler) Routes() []string {
	return []string{"GET /api/runs", "GET /api/runs/{id}"}
}

func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if id := r.PathValue("id"); id != "" {
		h.getRun(w, id)
		return
	}
	h.listRuns(w, r)
}

func (h *RunsHandler) getRun(w http.ResponseWriter, id string) {
	run, err := h.store.Get(id)
	if errors.Is(err, shared.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load run", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *RunsHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	runs, err := h.store.List(limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*models.DiscoveryRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := shared.MarshalJSON(body, false)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
