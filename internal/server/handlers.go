package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/composureci/composure/internal/pipeline"
	"github.com/composureci/composure/internal/store"
	"github.com/composureci/composure/pkg/models"
)

// composeRequest is the body of POST /api/v1/compose.
type composeRequest struct {
	Requirements string         `json:"requirements"`
	Constraints  map[string]any `json:"constraints,omitempty"`
}

// composeResponse is returned for a successful compose or recompose run.
type composeResponse struct {
	CompositionID  string               `json:"composition_id"`
	Status         store.Status         `json:"status"`
	Blueprints     *models.BlueprintSet `json:"blueprints"`
	ReasoningSteps []string             `json:"reasoning_steps"`
	CreatedAt      time.Time            `json:"created_at"`
	RecomposedFrom string               `json:"recomposed_from,omitempty"`
}

// confirmRequest is the body of POST /api/v1/compositions/{id}/confirm.
type confirmRequest struct {
	ConfirmedBlueprint *models.CompositionBlueprint `json:"confirmed_blueprint"`
	DeploymentContext  map[string]any               `json:"deployment_context,omitempty"`
}

// errorResponse carries a failure detail, and for degraded runs the
// audit trail explaining which stage gave up.
type errorResponse struct {
	Detail         string   `json:"detail"`
	ReasoningSteps []string `json:"reasoning_steps,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Requirements == "" {
		writeError(w, http.StatusBadRequest, "requirements must not be empty", nil)
		return
	}

	st, err := s.composer.Compose(r.Context(), req.Requirements, req.Constraints)
	if err != nil {
		log.Printf("[server] compose failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, "composition failed: "+err.Error(), auditOrNil(st))
		return
	}

	if st.Blueprints == nil {
		writeError(w, http.StatusUnprocessableEntity,
			"pipeline produced no composition blueprints", st.AuditEntries())
		return
	}

	rec := &store.Composition{
		ID:           uuid.New().String(),
		Requirements: req.Requirements,
		Constraints:  req.Constraints,
		Status:       store.StatusCreated,
		Blueprints:   st.Blueprints,
		AuditLog:     st.AuditEntries(),
		CreatedAt:    s.now(),
	}
	if err := s.db.Create(rec); err != nil {
		log.Printf("[server] persist composition: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to persist composition", nil)
		return
	}

	writeJSON(w, http.StatusOK, composeResponse{
		CompositionID:  rec.ID,
		Status:         rec.Status,
		Blueprints:     rec.Blueprints,
		ReasoningSteps: rec.AuditLog,
		CreatedAt:      rec.CreatedAt,
	})
}

func (s *Server) handleGetComposition(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"composition_id":      rec.ID,
		"requirements":        rec.Requirements,
		"constraints":         rec.Constraints,
		"status":              rec.Status,
		"blueprints":          rec.Blueprints,
		"reasoning_steps":     rec.AuditLog,
		"confirmed_blueprint": rec.ConfirmedBlueprint,
		"deployment_context":  rec.DeploymentContext,
		"recomposed_from":     rec.RecomposedFrom,
		"created_at":          rec.CreatedAt,
		"confirmed_at":        rec.ConfirmedAt,
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"composition_id":     rec.ID,
		"status":             rec.Status,
		"confirmed_at":       rec.ConfirmedAt,
		"deployment_context": rec.DeploymentContext,
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.ConfirmedBlueprint == nil {
		writeError(w, http.StatusBadRequest, "confirmed_blueprint is required", nil)
		return
	}
	if err := req.ConfirmedBlueprint.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid blueprint: "+err.Error(), nil)
		return
	}

	confirmedAt := s.now()
	err := s.db.Confirm(id, req.ConfirmedBlueprint, req.DeploymentContext, confirmedAt)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "composition not found", nil)
		return
	}
	if err != nil {
		log.Printf("[server] confirm composition %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to confirm composition", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"composition_id": id,
		"status":         store.StatusDeployed,
		"confirmed_at":   confirmedAt,
	})
}

func (s *Server) handleRecompose(w http.ResponseWriter, r *http.Request) {
	var trigger models.RecompositionTrigger
	if err := json.NewDecoder(r.Body).Decode(&trigger); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := trigger.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid trigger: "+err.Error(), nil)
		return
	}

	// Resolve the referenced composition before any reasoning work.
	prior, err := s.db.Get(trigger.CompositionID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "composition not found", nil)
		return
	}
	if err != nil {
		log.Printf("[server] load composition %s: %v", trigger.CompositionID, err)
		writeError(w, http.StatusInternalServerError, "failed to load composition", nil)
		return
	}

	st, err := s.composer.Recompose(r.Context(), trigger, prior.Requirements, prior.Constraints)
	if err != nil {
		log.Printf("[server] recompose failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, "recomposition failed: "+err.Error(), auditOrNil(st))
		return
	}

	if st.Blueprints == nil {
		writeError(w, http.StatusUnprocessableEntity,
			"recomposition produced no composition blueprints", st.AuditEntries())
		return
	}

	rec := &store.Composition{
		ID:             uuid.New().String(),
		Requirements:   st.Requirements,
		Constraints:    prior.Constraints,
		Status:         store.StatusCreated,
		Blueprints:     st.Blueprints,
		AuditLog:       st.AuditEntries(),
		RecomposedFrom: prior.ID,
		CreatedAt:      s.now(),
	}
	if err := s.db.Create(rec); err != nil {
		log.Printf("[server] persist recomposition: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to persist composition", nil)
		return
	}

	if err := s.db.MarkRecomposed(prior.ID); err != nil {
		// The successor record exists; the stale status is recoverable.
		log.Printf("[server] mark composition %s recomposed: %v", prior.ID, err)
	}

	writeJSON(w, http.StatusOK, composeResponse{
		CompositionID:  rec.ID,
		Status:         rec.Status,
		Blueprints:     rec.Blueprints,
		ReasoningSteps: rec.AuditLog,
		CreatedAt:      rec.CreatedAt,
		RecomposedFrom: prior.ID,
	})
}

// lookup fetches a composition by id, writing the error response itself
// when the record cannot be served.
func (s *Server) lookup(w http.ResponseWriter, id string) (*store.Composition, bool) {
	rec, err := s.db.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "composition not found", nil)
		return nil, false
	}
	if err != nil {
		log.Printf("[server] load composition %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load composition", nil)
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string, auditLog []string) {
	writeJSON(w, status, errorResponse{Detail: detail, ReasoningSteps: auditLog})
}

func auditOrNil(st *pipeline.RunState) []string {
	if st == nil {
		return nil
	}
	return st.AuditEntries()
}
