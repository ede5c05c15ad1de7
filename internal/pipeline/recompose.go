package pipeline

import (
	"context"
	"fmt"

	"github.com/composureci/composure/internal/prompts"
	"github.com/composureci/composure/pkg/models"
)

// SynthesizeRequirements builds the augmented requirements text for a
// recomposition run: the original requirements, the trigger's objective
// failure analysis, and the instruction to preserve the functional goals
// while addressing the degradation. The trigger's numeric evidence is
// never inspected field by field; only the failure analysis text feeds
// the prompt.
func (o *Orchestrator) SynthesizeRequirements(original string, trigger models.RecompositionTrigger) (string, error) {
	if err := trigger.Validate(); err != nil {
		return "", fmt.Errorf("invalid recomposition trigger: %w", err)
	}

	return o.prompts.Render(prompts.RecompositionPreamble, map[string]string{
		"original_requirements": original,
		"failure_analysis":      trigger.FailureAnalysis,
	})
}

// Recompose re-runs the pipeline with requirements augmented by the
// trigger's failure evidence. It is an ordinary fresh run through the
// same state machine, not a specialized code path.
func (o *Orchestrator) Recompose(ctx context.Context, trigger models.RecompositionTrigger, priorRequirements string, priorConstraints map[string]any) (*RunState, error) {
	augmented, err := o.SynthesizeRequirements(priorRequirements, trigger)
	if err != nil {
		return nil, err
	}

	st, err := o.Compose(ctx, augmented, priorConstraints)
	if st != nil {
		st.Audit("recomposition run for composition %s (trigger: %s)", trigger.CompositionID, trigger.TriggerType)
	}
	return st, err
}
