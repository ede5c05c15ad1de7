package models

import (
	"errors"
	"time"
)

// TriggerTypePerformanceDegradation is the trigger kind emitted by the
// monitoring collaborator when a deployed composition drifts from its
// rolling baseline.
const TriggerTypePerformanceDegradation = "performance_degradation"

// RecompositionTrigger is the payload the monitoring collaborator sends
// to request an improved composition. The pipeline only reads
// FailureAnalysis to synthesize augmented requirements; FailureEvidence
// is carried through verbatim and never inspected field by field.
type RecompositionTrigger struct {
	// CompositionID identifies the degraded composition.
	CompositionID string `json:"composition_id"`
	// TriggerType tags the kind of trigger.
	TriggerType string `json:"trigger_type"`
	// FailureEvidence holds free-form numeric evidence: current vs
	// baseline metrics and severity/z-scores.
	FailureEvidence map[string]any `json:"failure_evidence"`
	// FailureAnalysis is the objective free-text failure description.
	FailureAnalysis string `json:"failure_analysis"`
	// Timestamp is when the degradation was detected.
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the fields the orchestrator actually depends on.
func (t *RecompositionTrigger) Validate() error {
	if t.CompositionID == "" {
		return errors.New("trigger missing composition_id")
	}
	if t.FailureAnalysis == "" {
		return errors.New("trigger missing failure_analysis")
	}
	return nil
}
