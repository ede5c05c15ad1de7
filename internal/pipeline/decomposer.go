package pipeline

import (
	"context"
	"strings"

	"github.com/composureci/composure/internal/prompts"
	"github.com/composureci/composure/pkg/models"
)

// decomposeTasks is stage 2. It requires the structured analysis: free
// text alone cannot fill the decomposition template coherently, so a nil
// analysis short-circuits the stage (and with it everything downstream).
// Extraction failures degrade the same way stage 1 does: the breakdown
// text is kept, the task list stays nil, and the run continues.
func (o *Orchestrator) decomposeTasks(ctx context.Context, st *RunState) {
	if st.Analysis == nil {
		st.Audit("task decomposition skipped: no structured requirements")
		return
	}

	cotPrompt, err := o.prompts.Render(prompts.TaskDecompositionCOT, map[string]string{
		"domain":           string(st.Analysis.Domain),
		"goals":            strings.Join(st.Analysis.Goals, "; "),
		"input_types":      strings.Join(st.Analysis.InputTypes, "; "),
		"success_criteria": strings.Join(st.Analysis.SuccessCriteria, "; "),
		"constraints":      strings.Join(st.Analysis.Constraints, "; "),
		"requirement_cot":  st.RequirementCOT,
	})
	if err != nil {
		st.Audit("task decomposition skipped: prompt unavailable (%v)", err)
		return
	}

	breakdown, err := o.reasoner.Reason(ctx, cotPrompt)
	if err != nil {
		st.Audit("task decomposition failed: reasoning call failed")
		return
	}
	st.TaskBreakdown = breakdown

	extractPrompt, err := o.prompts.Render(prompts.TaskStructuredExtraction, map[string]string{
		"task_breakdown": breakdown,
	})
	if err != nil {
		st.Audit("task decomposition: prompt unavailable (%v), keeping text breakdown only", err)
		return
	}

	extraction, err := o.reasoner.ExtractTasks(ctx, extractPrompt)
	if err != nil {
		st.Audit("task decomposition: structured extraction failed, keeping text breakdown only")
		return
	}

	// Ids are assigned here, 1..N in extraction order. The capability
	// never supplies them; that is the only way to guarantee they stay
	// unique and dense.
	tasks := make([]models.Task, 0, len(extraction.Tasks))
	for i, draft := range extraction.Tasks {
		tasks = append(tasks, models.Task{
			ID:          i + 1,
			Name:        draft.Name,
			Description: draft.Description,
			Keywords:    draft.Keywords,
		})
	}

	st.Tasks = tasks
	st.Audit("task decomposition: %d tasks extracted", len(tasks))
}
