package models

import (
	"encoding/json"
	"testing"
)

func step(id int, deps ...int) BlueprintStep {
	return BlueprintStep{Kind: "task", ServiceName: "svc", ID: id, Deps: deps}
}

func TestBlueprintValidateLinearChain(t *testing.T) {
	b := CompositionBlueprint{
		Steps: []BlueprintStep{
			step(1, NoDependency),
			step(2, 1),
			step(3, 1, 2),
		},
	}

	if err := b.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBlueprintValidateEmpty(t *testing.T) {
	b := CompositionBlueprint{}
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for blueprint with no steps")
	}
}

func TestBlueprintValidateForwardReference(t *testing.T) {
	b := CompositionBlueprint{
		Steps: []BlueprintStep{
			step(1, 2), // depends on a step defined later
			step(2, NoDependency),
		},
	}

	if err := b.Validate(); err == nil {
		t.Fatal("expected error for forward dependency reference")
	}
}

func TestBlueprintValidateSelfReference(t *testing.T) {
	b := CompositionBlueprint{
		Steps: []BlueprintStep{step(1, 1)},
	}

	if err := b.Validate(); err == nil {
		t.Fatal("expected error for self-referencing dependency")
	}
}

func TestBlueprintValidateMixedSentinel(t *testing.T) {
	b := CompositionBlueprint{
		Steps: []BlueprintStep{
			step(1, NoDependency),
			step(2, NoDependency, 1), // sentinel mixed with a real dep
		},
	}

	if err := b.Validate(); err == nil {
		t.Fatal("expected error for sentinel mixed with real dependencies")
	}
}

func TestBlueprintValidateDuplicateID(t *testing.T) {
	b := CompositionBlueprint{
		Steps: []BlueprintStep{
			step(1, NoDependency),
			step(1, NoDependency),
		},
	}

	if err := b.Validate(); err == nil {
		t.Fatal("expected error for duplicate step id")
	}
}

func TestBlueprintValidateEmptyDeps(t *testing.T) {
	b := CompositionBlueprint{
		Steps: []BlueprintStep{step(1)},
	}

	if err := b.Validate(); err == nil {
		t.Fatal("expected error for empty dependency list")
	}
}

func TestHasDependencies(t *testing.T) {
	tests := []struct {
		name string
		deps []int
		want bool
	}{
		{"sentinel only", []int{NoDependency}, false},
		{"single real dep", []int{1}, true},
		{"multiple real deps", []int{1, 2}, true},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := step(9, tt.deps...)
			if got := s.HasDependencies(); got != tt.want {
				t.Errorf("HasDependencies() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlueprintSetValidate(t *testing.T) {
	empty := &BlueprintSet{}
	if err := empty.Validate(); err != ErrEmptyBlueprintSet {
		t.Errorf("expected ErrEmptyBlueprintSet, got %v", err)
	}

	set := &BlueprintSet{
		Alternatives: []CompositionBlueprint{
			{Steps: []BlueprintStep{step(1, NoDependency), step(2, 1)}},
		},
	}
	if err := set.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBlueprintJSONRoundTrip(t *testing.T) {
	img := "input.png"
	b := CompositionBlueprint{
		Steps: []BlueprintStep{
			{Kind: "image-deblurring", ServiceName: "deblur-gan", ID: 1, Deps: []int{NoDependency}, Args: StepArgs{Image: &img}},
			{Kind: "object-detection", ServiceName: "yolo-v8", ID: 2, Deps: []int{1}},
		},
		Description: "deblur then detect",
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got CompositionBlueprint
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(got.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(got.Steps))
	}
	if got.Steps[0].Args.Image == nil || *got.Steps[0].Args.Image != "input.png" {
		t.Error("image arg lost in round trip")
	}
	if got.Steps[1].Deps[0] != 1 {
		t.Errorf("expected dep [1], got %v", got.Steps[1].Deps)
	}
}
