// Package pipeline implements the composition pipeline: a staged state
// machine that turns free-text requirements into a set of composition
// blueprint alternatives via requirement analysis, task decomposition,
// parallel service retrieval, and composition building.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/composureci/composure/internal/capability"
	"github.com/composureci/composure/internal/discovery"
	"github.com/composureci/composure/internal/prompts"
	"github.com/composureci/composure/pkg/models"
)

// Reasoner is the call contract to the reasoning/structured-output
// capability. *capability.Client satisfies it.
type Reasoner interface {
	Reason(ctx context.Context, prompt string) (string, error)
	ExtractAnalysis(ctx context.Context, prompt string) (*models.RequirementAnalysis, error)
	ExtractTasks(ctx context.Context, prompt string) (*capability.TaskExtraction, error)
	ExtractBlueprints(ctx context.Context, prompt string) (*models.BlueprintSet, error)
}

// Discoverer is the call contract to the service repository.
// *discovery.Client satisfies it.
type Discoverer interface {
	Search(ctx context.Context, query string, k int) ([]discovery.Result, error)
}

// Config contains the collaborators and tunables for an Orchestrator.
type Config struct {
	// Reasoner is the reasoning capability client. Required.
	Reasoner Reasoner
	// Discoverer is the service repository client. Required.
	Discoverer Discoverer
	// Prompts is the template store. Required.
	Prompts *prompts.Store
	// TopK is the number of candidates requested per task. Zero means 3.
	TopK int
}

// Orchestrator sequences the pipeline stages for one run at a time:
// start -> analyzed -> decomposed -> {fan_out -> joined} -> built -> done,
// with a decomposed -> done shortcut when no tasks were extracted.
type Orchestrator struct {
	reasoner   Reasoner
	discoverer Discoverer
	prompts    *prompts.Store
	topK       int
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Reasoner == nil {
		return nil, fmt.Errorf("pipeline: Reasoner is required")
	}
	if cfg.Discoverer == nil {
		return nil, fmt.Errorf("pipeline: Discoverer is required")
	}
	if cfg.Prompts == nil {
		return nil, fmt.Errorf("pipeline: Prompts is required")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}

	return &Orchestrator{
		reasoner:   cfg.Reasoner,
		discoverer: cfg.Discoverer,
		prompts:    cfg.Prompts,
		topK:       topK,
	}, nil
}

// Compose runs the full pipeline for the given requirements. The
// returned error is non-nil only when the very first reasoning call
// cannot be completed at all; every later failure degrades locally and
// is reported through the run state's audit log. The run state is
// returned in both cases so callers keep the audit trail.
func (o *Orchestrator) Compose(ctx context.Context, requirements string, constraints map[string]any) (*RunState, error) {
	st := NewRunState(requirements, constraints)

	if err := o.analyzeRequirements(ctx, st); err != nil {
		// Capability totally unreachable on the opening call: nothing
		// downstream can proceed, so this is the one hard failure.
		return st, err
	}
	st.Stage = StageAnalyzed

	o.decomposeTasks(ctx, st)
	st.Stage = StageDecomposed

	if len(st.Tasks) == 0 {
		// No tasks: skip fan-out and build entirely. The final
		// blueprint set stays nil and the audit log carries the reason.
		st.Stage = StageDone
		return st, nil
	}

	st.Stage = StageFanOut
	o.retrieveAllServices(ctx, st)
	st.Stage = StageJoined

	o.buildComposition(ctx, st)
	st.Stage = StageBuilt

	st.Stage = StageDone
	return st, nil
}

// retrieveAllServices fans out one retrieval branch per task and joins
// before returning. Branches share no mutable state beyond the run
// state's merge collection; a failing branch contributes an empty slice
// and never affects its siblings.
func (o *Orchestrator) retrieveAllServices(ctx context.Context, st *RunState) {
	log.Printf("[pipeline] fan-out: retrieving services for %d tasks", len(st.Tasks))

	var wg sync.WaitGroup
	for _, task := range st.Tasks {
		wg.Add(1)
		go func(task models.Task) {
			defer wg.Done()
			st.mergeEntries(o.retrieveTaskServices(ctx, st, task))
		}(task)
	}
	wg.Wait()

	log.Printf("[pipeline] join: merged %d service entries", len(st.RetrievedServices))
}
