package pipeline

import (
	"context"
	"log"

	"github.com/composureci/composure/internal/discovery"
	"github.com/composureci/composure/pkg/models"
)

// retrieveTaskServices is one stage-3 fan-out branch: it queries the
// repository for the given task and formats each candidate as a
// self-contained entry carrying the task context. Every error - network
// failure, non-success status, timeout - is caught here and yields an
// empty slice for this task only; a branch never fails its siblings or
// the run.
func (o *Orchestrator) retrieveTaskServices(ctx context.Context, st *RunState, task models.Task) []models.RetrievedServiceEntry {
	query := task.SearchQuery()

	results, err := o.discoverer.Search(ctx, query, o.topK)
	if err != nil {
		log.Printf("[pipeline] task %d (%s): service retrieval failed: %v", task.ID, task.Name, err)
		st.Audit("task %d service retrieval failed: %v", task.ID, err)
		return nil
	}

	entries := make([]models.RetrievedServiceEntry, 0, len(results))
	for i, result := range results {
		entries = append(entries, models.RetrievedServiceEntry{
			TaskID:      task.ID,
			TaskName:    task.Name,
			Query:       query,
			ServiceName: discovery.ServiceNameFromSource(result.Source, i),
			Content:     result.Content,
		})
	}

	st.Audit("task %d: retrieved %d services", task.ID, len(entries))
	return entries
}
