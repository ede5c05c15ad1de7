package models

import (
	"errors"
	"fmt"
)

// NoDependency is the sentinel dependency id meaning "this step depends
// on nothing". It must appear alone: a step mixing the sentinel with
// real dependency ids is invalid input and is rejected rather than
// silently merged.
const NoDependency = -1

// ErrEmptyBlueprintSet indicates a blueprint set with no alternatives.
var ErrEmptyBlueprintSet = errors.New("blueprint set has no alternatives")

// StepArgs holds the per-step execution arguments. Only the fields
// semantically relevant to the step are set.
type StepArgs struct {
	// Image is an optional image reference.
	Image *string `json:"image,omitempty"`
	// Text is optional free-text input.
	Text *string `json:"text,omitempty"`
	// Document is an optional document reference.
	Document *string `json:"document,omitempty"`
}

// BlueprintStep is one executable step in a composition blueprint.
type BlueprintStep struct {
	// Kind is the task kind (e.g. "speech-to-text").
	Kind string `json:"task"`
	// ServiceName is the chosen service from the repository.
	ServiceName string `json:"service_name"`
	// ID is the step identifier within the blueprint.
	ID int `json:"id"`
	// Deps lists step ids this step depends on, or [NoDependency].
	Deps []int `json:"dep"`
	// Args holds the step execution arguments.
	Args StepArgs `json:"args"`
}

// HasDependencies returns true if the step depends on at least one
// earlier step.
func (s BlueprintStep) HasDependencies() bool {
	return len(s.Deps) > 0 && !(len(s.Deps) == 1 && s.Deps[0] == NoDependency)
}

// CompositionBlueprint is one candidate ordered task graph proposed as a
// solution to the stated requirements.
type CompositionBlueprint struct {
	// Steps is the ordered task execution sequence.
	Steps []BlueprintStep `json:"tasks"`
	// Description is an optional free-text summary.
	Description string `json:"description,omitempty"`
}

// Validate checks the dependency rules for every step:
//   - the NoDependency sentinel only appears as a singleton,
//   - dependency ids reference only steps defined earlier in the list,
//     which also rules out cycles and self-references.
func (b *CompositionBlueprint) Validate() error {
	if len(b.Steps) == 0 {
		return errors.New("blueprint has no steps")
	}

	seen := make(map[int]bool, len(b.Steps))
	for i, step := range b.Steps {
		if seen[step.ID] {
			return fmt.Errorf("step %d: duplicate id %d", i, step.ID)
		}

		if len(step.Deps) == 0 {
			return fmt.Errorf("step %d (id %d): empty dependency list, want [%d] for no dependencies", i, step.ID, NoDependency)
		}

		sentinel := false
		for _, dep := range step.Deps {
			if dep == NoDependency {
				sentinel = true
				continue
			}
			if !seen[dep] {
				return fmt.Errorf("step %d (id %d): dependency %d does not reference an earlier step", i, step.ID, dep)
			}
		}
		if sentinel && len(step.Deps) > 1 {
			return fmt.Errorf("step %d (id %d): no-dependency sentinel mixed with real dependencies", i, step.ID)
		}

		seen[step.ID] = true
	}

	return nil
}

// BlueprintSet holds one or more alternative blueprints for the same
// requirements. A nil *BlueprintSet is the pipeline's "build stage
// produced nothing" state.
type BlueprintSet struct {
	// Alternatives lists the candidate blueprints.
	Alternatives []CompositionBlueprint `json:"alternatives"`
}

// Validate checks that the set carries at least one alternative and that
// every alternative is itself valid.
func (s *BlueprintSet) Validate() error {
	if len(s.Alternatives) == 0 {
		return ErrEmptyBlueprintSet
	}
	for i := range s.Alternatives {
		if err := s.Alternatives[i].Validate(); err != nil {
			return fmt.Errorf("alternative %d: %w", i, err)
		}
	}
	return nil
}
