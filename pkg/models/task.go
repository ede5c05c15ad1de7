package models

import (
	"fmt"
	"strings"
)

// Task is one atomic unit of work produced by the decomposition stage.
// IDs are assigned by the pipeline after extraction (1-based, dense, in
// extraction order) and are never taken from the reasoning capability,
// which cannot be trusted to keep them unique. A Task is immutable once
// decomposition returns it.
type Task struct {
	// ID is the sequential task identifier, assigned by the pipeline.
	ID int `json:"task_id"`
	// Name is the brief task name (e.g. "Image Deblurring").
	Name string `json:"name"`
	// Description is the detailed task description used for repository search.
	Description string `json:"description"`
	// Keywords holds 3-5 search keywords for the repository query.
	Keywords []string `json:"keywords"`
}

// SearchQuery builds the repository search string for this task: the
// description followed by the keywords, space-joined.
func (t Task) SearchQuery() string {
	terms := make([]string, 0, len(t.Keywords)+1)
	terms = append(terms, t.Description)
	terms = append(terms, t.Keywords...)
	return strings.Join(terms, " ")
}

// Render formats the task for inclusion in a prompt.
func (t Task) Render() string {
	return fmt.Sprintf("Task %d: %s\nDescription: %s\nKeywords: %s",
		t.ID, t.Name, t.Description, strings.Join(t.Keywords, ", "))
}

// ValidateTaskIDs checks that task identifiers form a dense 1..N
// sequence in slice order.
func ValidateTaskIDs(tasks []Task) error {
	for i, task := range tasks {
		if task.ID != i+1 {
			return fmt.Errorf("task at index %d has id %d, want %d", i, task.ID, i+1)
		}
	}
	return nil
}
