package pipeline

import (
	"fmt"
	"sync"

	"github.com/composureci/composure/pkg/models"
)

// Stage identifies where a run is in the composition state machine.
type Stage string

const (
	// StageStart is the initial state before any reasoning call.
	StageStart Stage = "start"
	// StageAnalyzed follows requirement analysis.
	StageAnalyzed Stage = "analyzed"
	// StageDecomposed follows task decomposition.
	StageDecomposed Stage = "decomposed"
	// StageFanOut is active while retrieval branches are running.
	StageFanOut Stage = "fan_out"
	// StageJoined follows the retrieval join barrier.
	StageJoined Stage = "joined"
	// StageBuilt follows composition building.
	StageBuilt Stage = "built"
	// StageDone is the terminal state.
	StageDone Stage = "done"
)

// RunState is the single mutable record threaded through one pipeline
// invocation. It is owned by the orchestrator; during fan-out the
// retrieval branches concurrently append to the retrieved-services
// collection and the audit log, both guarded by the state's mutex. No
// other field is written outside its owning stage.
type RunState struct {
	// Requirements is the free-text input that started the run.
	Requirements string `json:"requirements"`
	// Constraints is the open key-value constraint map. The pipeline
	// only forwards it into templates; it never reads specific keys.
	Constraints map[string]any `json:"constraints"`

	// RequirementCOT is the free-text rationale from stage 1.
	RequirementCOT string `json:"requirement_cot,omitempty"`
	// Analysis is the structured requirement analysis, nil when
	// extraction failed.
	Analysis *models.RequirementAnalysis `json:"analyzed_requirements,omitempty"`

	// TaskBreakdown is the free-text decomposition reasoning from stage 2.
	TaskBreakdown string `json:"task_breakdown,omitempty"`
	// Tasks is the decomposed task list, nil when decomposition degraded.
	Tasks []models.Task `json:"structured_tasks,omitempty"`

	// RetrievedServices is the merged, order-irrelevant collection of
	// entries from all retrieval branches.
	RetrievedServices []models.RetrievedServiceEntry `json:"retrieved_services"`
	// Candidates is reserved for a future ranking stage.
	Candidates []models.TaskServiceCandidate `json:"task_service_candidates,omitempty"`

	// CompositionAnalysis is the free-text composition rationale from
	// stage 4. It is retained even when blueprint extraction fails.
	CompositionAnalysis string `json:"composition_analysis,omitempty"`
	// Blueprints is the final blueprint set, nil when the build stage
	// failed or was skipped.
	Blueprints *models.BlueprintSet `json:"final_composition,omitempty"`

	// Stage is the current state-machine position.
	Stage Stage `json:"stage"`
	// AuditLog records one short human-readable outcome per stage step.
	AuditLog []string `json:"reasoning_steps"`

	mu sync.Mutex
}

// NewRunState creates the state record for one invocation.
func NewRunState(requirements string, constraints map[string]any) *RunState {
	if constraints == nil {
		constraints = map[string]any{}
	}
	return &RunState{
		Requirements:      requirements,
		Constraints:       constraints,
		RetrievedServices: []models.RetrievedServiceEntry{},
		Stage:             StageStart,
		AuditLog:          []string{},
	}
}

// Audit appends a stage-outcome note. Safe for concurrent use by the
// retrieval branches.
func (s *RunState) Audit(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AuditLog = append(s.AuditLog, fmt.Sprintf(format, args...))
}

// mergeEntries appends one branch's retrieval output into the shared
// collection. The merge is additive and order-irrelevant: it tolerates
// empty slices and arbitrary completion order.
func (s *RunState) mergeEntries(entries []models.RetrievedServiceEntry) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RetrievedServices = append(s.RetrievedServices, entries...)
}

// AuditEntries returns a copy of the audit log.
func (s *RunState) AuditEntries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.AuditLog))
	copy(out, s.AuditLog)
	return out
}
