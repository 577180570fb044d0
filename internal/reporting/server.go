package reporting

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/glycovedic/glycosearch/pkg/types"
)

// Server exposes run summaries, skip-reason breakdowns, and a health
// check over HTTP, and a live PSM feed over WebSocket, mirroring
// collab.CollabServer's RegisterRoutes/sendJSON/sendError shape.
type Server struct {
	hub *Hub

	mu      sync.RWMutex
	runs    map[string]*types.RunSummary
	nextCID uint64
}

// NewServer creates a reporting server backed by hub. Pass the same hub
// to internal/search's reporting option so published events reach
// clients connected through this server's WebSocket route.
func NewServer(hub *Hub) *Server {
	return &Server{hub: hub, runs: make(map[string]*types.RunSummary)}
}

// RecordSummary stores (or replaces) the summary reported for runID,
// for HandleSummary/HandleSkipReasons to serve. Called once a run
// completes, or periodically while it is in flight.
func (s *Server) RecordSummary(runID string, summary *types.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runID] = summary
}

// RegisterRoutes registers the reporting HTTP routes on router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/health", s.HandleHealth).Methods("GET")
	router.HandleFunc("/api/v1/runs/{id}/summary", s.HandleSummary).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/v1/runs/{id}/skips", s.HandleSkipReasons).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/v1/runs/{id}/stream", s.HandleStream)
}

// HandleHealth reports process liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// HandleSummary returns the run summary for the run named by {id}.
func (s *Server) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if s.handleCORSPreflight(w, r) {
		return
	}
	s.setCORSHeaders(w)

	runID := mux.Vars(r)["id"]
	summary, ok := s.lookup(runID)
	if !ok {
		s.sendError(w, http.StatusNotFound, "RUN_NOT_FOUND", "no summary recorded for run "+runID)
		return
	}
	s.sendJSON(w, http.StatusOK, summary)
}

// HandleSkipReasons returns just the skip-reason histogram for the run
// named by {id}, a narrower view than HandleSummary for dashboards that
// only care why spectra were dropped.
func (s *Server) HandleSkipReasons(w http.ResponseWriter, r *http.Request) {
	if s.handleCORSPreflight(w, r) {
		return
	}
	s.setCORSHeaders(w)

	runID := mux.Vars(r)["id"]
	summary, ok := s.lookup(runID)
	if !ok {
		s.sendError(w, http.StatusNotFound, "RUN_NOT_FOUND", "no summary recorded for run "+runID)
		return
	}
	s.sendJSON(w, http.StatusOK, summary.SpectraSkipped)
}

// HandleStream upgrades the connection to a WebSocket watching the run
// named by {id}'s EventProgress/EventPSM/EventDone messages.
func (s *Server) HandleStream(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]
	if err := s.hub.Serve(w, r, runID, s.newClientID()); err != nil {
		logger.Printf("websocket upgrade failed for run %s: %v", runID, err)
	}
}

func (s *Server) lookup(runID string) (*types.RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.runs[runID]
	return summary, ok
}

func (s *Server) newClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCID++
	return time.Now().Format("150405.000000") + "-" + strconv.FormatUint(s.nextCID, 10)
}

func (s *Server) handleCORSPreflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == "OPTIONS" {
		s.setCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func (s *Server) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendJSON(w, status, map[string]string{"code": code, "message": message})
}
