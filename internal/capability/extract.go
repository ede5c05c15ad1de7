package capability

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/composureci/composure/pkg/models"
)

// TaskDraft is a decomposed task as the capability returns it: no
// identifier. The pipeline assigns sequential ids afterward, because the
// capability is never trusted to keep externally generated ids unique.
type TaskDraft struct {
	// Name is the brief task name.
	Name string `json:"name"`
	// Description is the detailed task description for repository search.
	Description string `json:"description"`
	// Keywords holds 3-5 search keywords.
	Keywords []string `json:"keywords"`
}

// TaskExtraction is the structured result of the task decomposition
// extraction call.
type TaskExtraction struct {
	// Tasks is the ordered list of atomic tasks.
	Tasks []TaskDraft `json:"tasks"`
	// ReasoningSummary is a brief summary of the decomposition logic.
	ReasoningSummary string `json:"reasoning_summary"`
}

// ExtractAnalysis asks the capability to emit a RequirementAnalysis
// conforming to the analysis schema.
func (c *Client) ExtractAnalysis(ctx context.Context, prompt string) (*models.RequirementAnalysis, error) {
	var analysis models.RequirementAnalysis
	if err := c.extract(ctx, prompt, analysisTool(), &analysis); err != nil {
		return nil, err
	}
	if err := analysis.Validate(); err != nil {
		return nil, &ExtractionError{Tool: toolRecordAnalysis, Err: err}
	}
	return &analysis, nil
}

// ExtractTasks asks the capability to emit the decomposed task list.
func (c *Client) ExtractTasks(ctx context.Context, prompt string) (*TaskExtraction, error) {
	var extraction TaskExtraction
	if err := c.extract(ctx, prompt, taskTool(), &extraction); err != nil {
		return nil, err
	}
	if len(extraction.Tasks) == 0 {
		return nil, &ExtractionError{Tool: toolRecordTasks, Err: fmt.Errorf("no tasks extracted")}
	}
	return &extraction, nil
}

// ExtractBlueprints asks the capability to emit a set of composition
// blueprint alternatives.
func (c *Client) ExtractBlueprints(ctx context.Context, prompt string) (*models.BlueprintSet, error) {
	var set models.BlueprintSet
	if err := c.extract(ctx, prompt, blueprintTool(), &set); err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, &ExtractionError{Tool: toolRecordBlueprints, Err: err}
	}
	return &set, nil
}

// extract runs one constrained call: a single tool whose input schema is
// the target type, with tool choice forced so the model must answer
// through it. The tool input is unmarshaled into target.
func (c *Client) extract(ctx context.Context, prompt string, tool anthropic.ToolParam, target any) error {
	var input json.RawMessage
	var rawText string

	err := c.withRetry(ctx, "extract "+tool.Name, func(callCtx context.Context) error {
		resp, err := c.sdk().Messages.New(callCtx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: 8192,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
			Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
			ToolChoice: anthropic.ToolChoiceUnionParam{
				OfTool: &anthropic.ToolChoiceToolParam{Name: tool.Name},
			},
		})
		if err != nil {
			return err
		}

		c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

		input = nil
		rawText = ""
		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.ToolUseBlock:
				input = variant.Input
			case anthropic.TextBlock:
				rawText += variant.Text
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if input == nil {
		return &ExtractionError{
			Tool: tool.Name,
			Raw:  truncate(rawText, 200),
			Err:  fmt.Errorf("response contains no tool call"),
		}
	}

	if err := json.Unmarshal(input, target); err != nil {
		return &ExtractionError{
			Tool: tool.Name,
			Raw:  truncate(string(input), 200),
			Err:  err,
		}
	}

	return nil
}
