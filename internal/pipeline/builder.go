package pipeline

import (
	"context"
	"strings"

	"github.com/composureci/composure/internal/prompts"
)

// buildComposition is stage 4. It fails fast, without any reasoning
// calls, when either input collection is empty: a composition cannot be
// synthesized from nothing. Otherwise it makes exactly two capability
// calls - analysis then extraction - and degrades to a nil blueprint set
// when the second fails, keeping the analysis text in the state.
func (o *Orchestrator) buildComposition(ctx context.Context, st *RunState) {
	if len(st.Tasks) == 0 || len(st.RetrievedServices) == 0 {
		st.Audit("composition building skipped: missing tasks or services")
		return
	}

	tasksText := make([]string, 0, len(st.Tasks))
	for _, task := range st.Tasks {
		tasksText = append(tasksText, task.Render())
	}

	servicesText := make([]string, 0, len(st.RetrievedServices))
	for _, entry := range st.RetrievedServices {
		servicesText = append(servicesText, entry.Render())
	}

	cotPrompt, err := o.prompts.Render(prompts.CompositionBuilderCOT, map[string]string{
		"requirements":       st.Requirements,
		"structured_tasks":   strings.Join(tasksText, "\n\n"),
		"retrieved_services": strings.Join(servicesText, "\n\n"),
	})
	if err != nil {
		st.Audit("composition building skipped: prompt unavailable (%v)", err)
		return
	}

	analysis, err := o.reasoner.Reason(ctx, cotPrompt)
	if err != nil {
		st.Audit("composition building failed: analysis call failed")
		return
	}
	st.CompositionAnalysis = analysis

	extractPrompt, err := o.prompts.Render(prompts.CompositionBuilderStructured, map[string]string{
		"composition_analysis": analysis,
		"requirements":         st.Requirements,
	})
	if err != nil {
		st.Audit("composition building: prompt unavailable (%v), keeping analysis text only", err)
		return
	}

	set, err := o.reasoner.ExtractBlueprints(ctx, extractPrompt)
	if err != nil {
		st.Audit("composition building: structured generation failed, keeping analysis text only")
		return
	}

	st.Blueprints = set
	st.Audit("composition building: %d blueprint alternatives generated", len(set.Alternatives))
}
