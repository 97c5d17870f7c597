// Package server is the JSON HTTP surface over the character service.
// Every endpoint is a GET; refresh=true on a collection endpoint bypasses
// the cache for that call.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"daebot/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Server struct {
	svc    *service.CharacterService
	logger zerolog.Logger
}

func New(svc *service.CharacterService, logger zerolog.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/characters/mplus", s.handleBestMythicPlus)
	mux.HandleFunc("GET /v1/characters/recent", s.handleRecentMythicPlus)
	mux.HandleFunc("GET /v1/characters/raid", s.handleRaidProgress)
	mux.HandleFunc("GET /v1/characters/gear", s.handleGear)
	mux.HandleFunc("GET /v1/characters/links", s.handleLinks)
	mux.HandleFunc("GET /v1/characters/{name}/specs", s.handleAvailableSpecs)
	mux.HandleFunc("GET /v1/characters/{name}/runs", s.handleSpecRuns)
	mux.HandleFunc("GET /v1/characters/{name}/compare", s.handleCompareSpecs)
	mux.HandleFunc("GET /v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("GET /v1/csv/stats", s.handleCSVStats)
	mux.HandleFunc("GET /v1/sync/history", s.handleSyncHistory)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBestMythicPlus(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.GetBestMythicPlus(r.Context(), refreshParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charactersResponse(views))
}

func (s *Server) handleRecentMythicPlus(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.GetRecentMythicPlus(r.Context(), refreshParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charactersResponse(views))
}

func (s *Server) handleRaidProgress(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.GetRaidProgress(r.Context(), refreshParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, raidsResponse(views))
}

func (s *Server) handleGear(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.GetGear(r.Context(), refreshParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gearResponse(views))
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, linksResponse(s.svc.GetLinks(refreshParam(r))))
}

func (s *Server) handleAvailableSpecs(w http.ResponseWriter, r *http.Request) {
	specs, err := s.svc.AvailableSpecs(r.Context(), r.PathValue("name"), refreshParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if specs == nil {
		specs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"specs": specs})
}

func (s *Server) handleSpecRuns(w http.ResponseWriter, r *http.Request) {
	spec := r.URL.Query().Get("spec")
	if spec == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing spec parameter"))
		return
	}

	runs, err := s.svc.SpecificRuns(r.Context(), r.PathValue("name"), spec, refreshParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"spec": spec, "runs": runsResponse(runs)})
}

func (s *Server) handleCompareSpecs(w http.ResponseWriter, r *http.Request) {
	cmp, err := s.svc.CompareSpecs(r.Context(), r.PathValue("name"), refreshParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comparisonResponse(cmp))
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.CacheStats())
}

func (s *Server) handleCSVStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.CSVStats()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	records, err := s.svc.SyncHistory(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syncHistoryResponse(records))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, service.ErrUnknownCharacter) {
		status = http.StatusNotFound
	}

	s.logger.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeJSON(w, status, errorBody(err.Error()))
}

func refreshParam(r *http.Request) bool {
	return r.URL.Query().Get("refresh") == "true"
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

var Module = fx.Provide(New)
