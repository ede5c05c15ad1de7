package models

import "fmt"

// RetrievedServiceEntry is one candidate service description paired with
// the task that requested it. Entries from all retrieval branches are
// merged into a single collection, so each entry repeats its task
// context to stay interpretable next to entries from unrelated tasks.
type RetrievedServiceEntry struct {
	// TaskID is the id of the task this entry was retrieved for.
	TaskID int `json:"task_id"`
	// TaskName is the name of the requesting task.
	TaskName string `json:"task_name"`
	// Query is the repository search query that produced this entry.
	Query string `json:"query"`
	// ServiceName is the short service name derived from the source path.
	ServiceName string `json:"service_name"`
	// Content is the raw service description from the repository.
	Content string `json:"content"`
}

// Render formats the entry as the self-contained text block fed to the
// composition builder prompt.
func (e RetrievedServiceEntry) Render() string {
	return fmt.Sprintf("TASK %d: %s\nQUERY: %s\n\nSERVICE: %s\n%s",
		e.TaskID, e.TaskName, e.Query, e.ServiceName, e.Content)
}
