// Package api implements the HTTP surface of the search service.
//
// Routes:
//
//	POST /api/v1/vehicles/search → scrape, ingest, and return ranked listings
//	GET  /api/v1/vehicles/health → API health probe
//	GET  /health                 → service health probe
//	GET  /                       → service identity
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"carscan/search-service/internal/model"
)

// ─── Handler ─────────────────────────────────────────────────────────────────

// Searcher runs the search pipeline for one request.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error)
}

// Handler holds shared dependencies.
type Handler struct {
	svc     Searcher
	version string
}

// NewHandler returns a configured Handler.
func NewHandler(svc Searcher, version string) *Handler {
	return &Handler{svc: svc, version: version}
}

// RegisterRoutes mounts all routes on r, with CORS applied router-wide.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(corsMiddleware)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/vehicles/search", h.searchVehicles).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/vehicles/health", h.vehiclesHealth).Methods(http.MethodGet)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/", h.root).Methods(http.MethodGet)
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) searchVehicles(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := validateSearchRequest(&req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.svc.Search(r.Context(), req)
	if err != nil {
		log.Printf("[api] search %q failed: %v", req.Query, err)
		jsonError(w, fmt.Sprintf("error searching vehicles: %v", err), http.StatusInternalServerError)
		return
	}
	jsonOK(w, resp)
}

func (h *Handler) vehiclesHealth(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{"status": "healthy", "service": "CarScan API"})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{"status": "healthy"})
}

func (h *Handler) root(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{
		"name":        "CarScan",
		"version":     h.version,
		"description": "Vehicle listing aggregator for Colombia",
	})
}

// ─── Request validation ───────────────────────────────────────────────────────

// validateSearchRequest enforces the request schema bounds and fills the
// radius default. A zero max_distance_km means "not provided".
func validateSearchRequest(req *model.SearchRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return fmt.Errorf("query is required")
	}
	if req.UserLat != nil && (*req.UserLat < -90 || *req.UserLat > 90) {
		return fmt.Errorf("user_lat must be between -90 and 90")
	}
	if req.UserLon != nil && (*req.UserLon < -180 || *req.UserLon > 180) {
		return fmt.Errorf("user_lon must be between -180 and 180")
	}
	if req.MaxDistanceKM == 0 {
		req.MaxDistanceKM = 50
	}
	if req.MaxDistanceKM < 1 || req.MaxDistanceKM > 500 {
		return fmt.Errorf("max_distance_km must be between 1 and 500")
	}
	if req.MinPrice != nil && *req.MinPrice < 0 {
		return fmt.Errorf("min_price must not be negative")
	}
	if req.MaxPrice != nil && *req.MaxPrice < 0 {
		return fmt.Errorf("max_price must not be negative")
	}
	if req.MinYear != nil && *req.MinYear < 1900 {
		return fmt.Errorf("min_year must be 1900 or later")
	}
	if req.MaxYear != nil && *req.MaxYear > 2030 {
		return fmt.Errorf("max_year must be 2030 or earlier")
	}
	if req.MaxMileage != nil && *req.MaxMileage < 0 {
		return fmt.Errorf("max_mileage must not be negative")
	}
	return nil
}

// ─── Middleware and helpers ───────────────────────────────────────────────────

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
