package capability

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// Extraction tool names. Each constrained call forces exactly one of
// these tools, whose input schema is the target type.
const (
	toolRecordAnalysis   = "record_requirement_analysis"
	toolRecordTasks      = "record_task_decomposition"
	toolRecordBlueprints = "record_composition_blueprints"
)

func stringArray(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": description,
	}
}

// analysisTool is the schema for RequirementAnalysis extraction.
func analysisTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        toolRecordAnalysis,
		Description: anthropic.String("Record the final structured requirement analysis derived from the reasoning."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"domain": map[string]any{
					"type":        "string",
					"enum":        []string{"image-processing", "text-analysis", "data-transformation", "multimodal", "other"},
					"description": "Primary domain of the requirements",
				},
				"goals":            stringArray("Specific achievable goals"),
				"input_types":      stringArray("Required input types"),
				"success_criteria": stringArray("Measurable success conditions"),
				"constraints":      stringArray("Limitations and preferences"),
				"confidence_score": map[string]any{
					"type":        "integer",
					"minimum":     1,
					"maximum":     10,
					"description": "Confidence in the analysis (1-10 scale)",
				},
			},
			Required: []string{"domain", "goals", "input_types", "success_criteria", "constraints", "confidence_score"},
		},
	}
}

// taskTool is the schema for task decomposition extraction. Task ids are
// deliberately absent: the pipeline assigns them after the fact.
func taskTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        toolRecordTasks,
		Description: anthropic.String("Record the list of atomic tasks extracted from the task breakdown."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"tasks": map[string]any{
					"type":        "array",
					"description": "List of atomic tasks",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name": map[string]any{
								"type":        "string",
								"description": "Brief task name (e.g. 'Image Deblurring')",
							},
							"description": map[string]any{
								"type":        "string",
								"description": "Detailed task description for repository search",
							},
							"keywords": stringArray("3-5 keywords for search optimization"),
						},
						"required": []string{"name", "description", "keywords"},
					},
				},
				"reasoning_summary": map[string]any{
					"type":        "string",
					"description": "Brief summary of the decomposition logic",
				},
			},
			Required: []string{"tasks", "reasoning_summary"},
		},
	}
}

// blueprintTool is the schema for composition blueprint extraction.
func blueprintTool() anthropic.ToolParam {
	step := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task": map[string]any{
				"type":        "string",
				"description": "Task kind (e.g. 'speech-to-text')",
			},
			"service_name": map[string]any{
				"type":        "string",
				"description": "Chosen service from the repository",
			},
			"id": map[string]any{
				"type":        "integer",
				"description": "Step identifier within the blueprint",
			},
			"dep": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "integer"},
				"description": "Ids of earlier steps this step depends on, or [-1] for no dependencies",
			},
			"args": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"image":    map[string]any{"type": "string", "description": "Image reference, if relevant"},
					"text":     map[string]any{"type": "string", "description": "Text input, if relevant"},
					"document": map[string]any{"type": "string", "description": "Document reference, if relevant"},
				},
			},
		},
		"required": []string{"task", "service_name", "id", "dep", "args"},
	}

	return anthropic.ToolParam{
		Name:        toolRecordBlueprints,
		Description: anthropic.String("Record one or more composition blueprint alternatives for the requirements."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"alternatives": map[string]any{
					"type":        "array",
					"description": "Composition blueprint alternatives",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"tasks": map[string]any{
								"type":        "array",
								"items":       step,
								"description": "Ordered task execution sequence",
							},
							"description": map[string]any{
								"type":        "string",
								"description": "Blueprint summary",
							},
						},
						"required": []string{"tasks"},
					},
				},
			},
			Required: []string{"alternatives"},
		},
	}
}
