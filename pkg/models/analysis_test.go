package models

import (
	"strings"
	"testing"
)

func TestDomainValid(t *testing.T) {
	valid := []Domain{
		DomainImageProcessing,
		DomainTextAnalysis,
		DomainDataTransformation,
		DomainMultimodal,
		DomainOther,
	}
	for _, d := range valid {
		if !d.Valid() {
			t.Errorf("expected %q to be valid", d)
		}
	}

	if Domain("robotics").Valid() {
		t.Error("expected unknown domain to be invalid")
	}
}

func TestRequirementAnalysisValidate(t *testing.T) {
	tests := []struct {
		name    string
		score   int
		wantErr bool
	}{
		{"lower bound", 1, false},
		{"upper bound", 10, false},
		{"zero", 0, true},
		{"too high", 11, true},
		{"negative", -3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &RequirementAnalysis{Domain: DomainOther, ConfidenceScore: tt.score}
			err := a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskServiceCandidateValidate(t *testing.T) {
	c := &TaskServiceCandidate{TaskID: 1, ServiceName: "whisper-base", RelevanceScore: 8, Confidence: 7}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.RelevanceScore = 0
	if err := c.Validate(); err == nil {
		t.Error("expected error for relevance score 0")
	}

	c.RelevanceScore = 5
	c.Confidence = 11
	if err := c.Validate(); err == nil {
		t.Error("expected error for confidence 11")
	}
}

func TestValidateTaskIDs(t *testing.T) {
	ok := []Task{{ID: 1}, {ID: 2}, {ID: 3}}
	if err := ValidateTaskIDs(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	gap := []Task{{ID: 1}, {ID: 3}}
	if err := ValidateTaskIDs(gap); err == nil {
		t.Error("expected error for gapped ids")
	}

	dup := []Task{{ID: 1}, {ID: 1}}
	if err := ValidateTaskIDs(dup); err == nil {
		t.Error("expected error for duplicate ids")
	}
}

func TestTaskSearchQuery(t *testing.T) {
	task := Task{
		ID:          1,
		Name:        "Speech Transcription",
		Description: "Transcribe audio recordings to text",
		Keywords:    []string{"speech-to-text", "asr", "whisper"},
	}

	query := task.SearchQuery()
	if !strings.HasPrefix(query, "Transcribe audio recordings to text") {
		t.Errorf("query should start with the description, got %q", query)
	}
	for _, kw := range task.Keywords {
		if !strings.Contains(query, kw) {
			t.Errorf("query missing keyword %q", kw)
		}
	}
}

func TestRetrievedServiceEntryRender(t *testing.T) {
	e := RetrievedServiceEntry{
		TaskID:      2,
		TaskName:    "Sentiment Classification",
		Query:       "classify sentiment of text",
		ServiceName: "distilbert-sentiment",
		Content:     "DistilBERT fine-tuned for sentiment analysis.",
	}

	out := e.Render()
	for _, want := range []string{"TASK 2: Sentiment Classification", "QUERY: classify sentiment of text", "SERVICE: distilbert-sentiment"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered entry missing %q:\n%s", want, out)
		}
	}
}
