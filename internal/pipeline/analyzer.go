package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/composureci/composure/internal/prompts"
)

// analyzeRequirements is stage 1. It always makes the unconstrained
// rationale call first - downstream stages consume that text as raw
// material, so it is never skipped. The structured extraction that
// follows recovers locally on any failure: the run continues with a nil
// analysis and an audit note.
func (o *Orchestrator) analyzeRequirements(ctx context.Context, st *RunState) error {
	cotPrompt, err := o.prompts.Render(prompts.RequirementCOT, map[string]string{
		"requirements": st.Requirements,
		"constraints":  formatConstraints(st.Constraints),
	})
	if err != nil {
		return fmt.Errorf("render requirement prompt: %w", err)
	}

	rationale, err := o.reasoner.Reason(ctx, cotPrompt)
	if err != nil {
		return fmt.Errorf("requirement reasoning: %w", err)
	}
	st.RequirementCOT = rationale

	analysisPrompt, err := o.prompts.Render(prompts.RequirementAnalysis, map[string]string{
		"reasoning": rationale,
	})
	if err != nil {
		st.Audit("requirement analysis: prompt unavailable (%v), using text reasoning only", err)
		return nil
	}

	analysis, err := o.reasoner.ExtractAnalysis(ctx, analysisPrompt)
	if err != nil {
		st.Audit("requirement analysis: structured parsing failed, using text reasoning only")
		return nil
	}

	st.Analysis = analysis
	st.Audit("requirement analysis: domain=%s goals=%d confidence=%d/10",
		analysis.Domain, len(analysis.Goals), analysis.ConfidenceScore)
	return nil
}

// formatConstraints renders the open constraint map as stable "key: value"
// lines. Keys are sorted so the same constraints always produce the same
// prompt.
func formatConstraints(constraints map[string]any) string {
	if len(constraints) == 0 {
		return "(none)"
	}

	keys := make([]string, 0, len(constraints))
	for key := range constraints {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %v\n", key, constraints[key])
	}
	return strings.TrimRight(b.String(), "\n")
}
