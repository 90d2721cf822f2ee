package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dtorcivia/meetquorum/internal/history"
	"github.com/dtorcivia/meetquorum/internal/response"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// handleSchedule runs one negotiation synchronously and returns the
// terminal outcome.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteValidationError(w, "invalid JSON body", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	input, err := req.toInput(s.targetLoc)
	if err != nil {
		response.WriteValidationError(w, err.Error(), nil)
		return
	}

	outcome, err := s.engine.Schedule(r.Context(), input)
	if err != nil {
		if errors.Is(err, util.ErrInvalidEmail) || errors.Is(err, util.ErrEmptyField) ||
			errors.Is(err, util.ErrTooManyAttendees) {
			response.WriteValidationError(w, err.Error(), nil)
			return
		}
		util.Error("Scheduling failed", "request_id", req.RequestID, "error", err)
		response.WriteInternalError(w, "scheduling failed")
		return
	}

	response.JSON(w, http.StatusOK, buildResponse(&req, outcome))
}

// handleGetNegotiation returns one persisted negotiation with its trail.
func (s *Server) handleGetNegotiation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := s.engine.GetNegotiation(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			response.WriteNegotiationNotFound(w, id)
			return
		}
		util.Error("Failed to load negotiation", "id", id, "error", err)
		response.WriteInternalError(w, "failed to load negotiation")
		return
	}

	response.JSON(w, http.StatusOK, rec)
}

// handleListNegotiations returns recent negotiations without trails.
func (s *Server) handleListNegotiations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			response.WriteValidationError(w, "limit must be between 1 and 500", nil)
			return
		}
		limit = parsed
	}

	records, err := s.engine.ListNegotiations(r.Context(), limit)
	if err != nil {
		util.Error("Failed to list negotiations", "error", err)
		response.WriteInternalError(w, "failed to list negotiations")
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"negotiations": records,
		"count":        len(records),
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			response.JSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  "database unavailable",
			})
			return
		}
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
	})
}
