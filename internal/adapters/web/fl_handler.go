package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
)

// handleClientUpdate ingests one federated learning update.
func (s *Server) handleClientUpdate(w http.ResponseWriter, r *http.Request) {
	var update domain.ClientUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	node, err := s.Coordinator.ProcessUpdate(r.Context(), update)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidUpdate), errors.Is(err, domain.ErrDimensionMismatch):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "accepted",
		"client_id":    node.ClientID,
		"update_count": node.UpdateCount,
		"last_seen":    node.LastSeen,
	})
}

// handleListNodes returns all known nodes; ?active=true restricts to
// the active set.
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	nodes := s.Coordinator.Nodes(activeOnly)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count": len(nodes),
		"nodes": nodes,
	})
}

// handleGetNode returns a single node record.
func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	clientID := mux.Vars(r)["id"]

	node, err := s.Coordinator.Node(clientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "node not found: "+clientID)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

// handleGlobalModel computes the federated average over the active set.
func (s *Server) handleGlobalModel(w http.ResponseWriter, r *http.Request) {
	model, err := s.Coordinator.GlobalModel()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, model)
}

// handleOutliers returns the currently flagged nodes. With ?all=true it
// returns the score of every active node instead.
func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "true" {
		scores, err := s.Coordinator.OutlierScores()
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"scores": scores})
		return
	}

	outliers, err := s.Coordinator.Outliers()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(outliers),
		"outliers": outliers,
	})
}

// handleCompareNodes compares two nodes' latest vectors.
func (s *Server) handleCompareNodes(w http.ResponseWriter, r *http.Request) {
	a := r.URL.Query().Get("a")
	b := r.URL.Query().Get("b")
	if a == "" || b == "" {
		s.writeError(w, http.StatusBadRequest, "query parameters a and b are required")
		return
	}

	result, err := s.Coordinator.CompareNodes(a, b)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrDimensionMismatch):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleClusterStats summarizes the node population.
func (s *Server) handleClusterStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Coordinator.ClusterStats()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}
