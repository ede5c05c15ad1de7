// Package models defines the value types shared across the composition
// pipeline: requirement analyses, decomposed tasks, retrieved service
// entries, and composition blueprints.
package models

import "fmt"

// Domain classifies the primary problem domain of a requirement analysis.
type Domain string

const (
	// DomainImageProcessing covers image and video pipelines.
	DomainImageProcessing Domain = "image-processing"
	// DomainTextAnalysis covers NLP and text classification pipelines.
	DomainTextAnalysis Domain = "text-analysis"
	// DomainDataTransformation covers ETL-style data pipelines.
	DomainDataTransformation Domain = "data-transformation"
	// DomainMultimodal covers pipelines mixing input modalities.
	DomainMultimodal Domain = "multimodal"
	// DomainOther is the open-ended fallback for everything else.
	DomainOther Domain = "other"
)

// Valid returns true if the domain is a known tag.
// DomainOther is valid by design: the analysis stage is allowed to
// classify outside the enumerated set.
func (d Domain) Valid() bool {
	switch d {
	case DomainImageProcessing, DomainTextAnalysis, DomainDataTransformation, DomainMultimodal, DomainOther:
		return true
	default:
		return false
	}
}

// RequirementAnalysis is the structured result of the requirement
// analysis stage. Its absence (a nil pointer) is a valid pipeline state:
// structured extraction is allowed to fail without failing the run.
type RequirementAnalysis struct {
	// Domain is the primary domain tag.
	Domain Domain `json:"domain"`
	// Goals lists the specific achievable goals.
	Goals []string `json:"goals"`
	// InputTypes lists the required input types.
	InputTypes []string `json:"input_types"`
	// SuccessCriteria lists measurable success conditions.
	SuccessCriteria []string `json:"success_criteria"`
	// Constraints lists limitations and preferences.
	Constraints []string `json:"constraints"`
	// ConfidenceScore is the analysis confidence on a 1-10 scale.
	ConfidenceScore int `json:"confidence_score"`
}

// Validate checks the 1-10 confidence bound.
func (a *RequirementAnalysis) Validate() error {
	if a.ConfidenceScore < 1 || a.ConfidenceScore > 10 {
		return fmt.Errorf("confidence score %d out of range [1,10]", a.ConfidenceScore)
	}
	return nil
}

// TaskServiceCandidate maps a task to a candidate service with ranking
// scores. The current pipeline stages do not populate it; the type is
// part of the schema for a future ranking stage.
type TaskServiceCandidate struct {
	// TaskID references the task this candidate was retrieved for.
	TaskID int `json:"task_id"`
	// ServiceName is the candidate service from the repository.
	ServiceName string `json:"service_name"`
	// RelevanceScore is how well the service matches the task (1-10).
	RelevanceScore int `json:"relevance_score"`
	// Confidence is the certainty of the relevance assessment (1-10).
	Confidence int `json:"confidence"`
}

// Validate checks the 1-10 score bounds.
func (c *TaskServiceCandidate) Validate() error {
	if c.RelevanceScore < 1 || c.RelevanceScore > 10 {
		return fmt.Errorf("relevance score %d out of range [1,10]", c.RelevanceScore)
	}
	if c.Confidence < 1 || c.Confidence > 10 {
		return fmt.Errorf("confidence %d out of range [1,10]", c.Confidence)
	}
	return nil
}
