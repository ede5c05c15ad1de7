package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/composureci/composure/internal/pipeline"
	"github.com/composureci/composure/internal/store"
	"github.com/composureci/composure/pkg/models"
)

// fakeComposer scripts pipeline outcomes and counts invocations.
type fakeComposer struct {
	mu             sync.Mutex
	composeCalls   int
	recomposeCalls int

	blueprints *models.BlueprintSet
	err        error

	lastRequirements string
}

func (f *fakeComposer) run(requirements string, constraints map[string]any) (*pipeline.RunState, error) {
	st := pipeline.NewRunState(requirements, constraints)
	st.Audit("requirement analysis: domain=image-processing goals=1 confidence=7/10")
	if f.err != nil {
		return st, f.err
	}
	st.Blueprints = f.blueprints
	if st.Blueprints == nil {
		st.Audit("composition building: structured generation failed, keeping analysis text only")
	}
	return st, nil
}

func (f *fakeComposer) Compose(_ context.Context, requirements string, constraints map[string]any) (*pipeline.RunState, error) {
	f.mu.Lock()
	f.composeCalls++
	f.lastRequirements = requirements
	f.mu.Unlock()
	return f.run(requirements, constraints)
}

func (f *fakeComposer) Recompose(_ context.Context, trigger models.RecompositionTrigger, priorRequirements string, priorConstraints map[string]any) (*pipeline.RunState, error) {
	f.mu.Lock()
	f.recomposeCalls++
	f.lastRequirements = priorRequirements
	f.mu.Unlock()
	st, err := f.run(priorRequirements+"\n\n"+trigger.FailureAnalysis, priorConstraints)
	if st != nil {
		st.Audit("recomposition run for composition %s (trigger: %s)", trigger.CompositionID, trigger.TriggerType)
	}
	return st, err
}

func sampleBlueprints() *models.BlueprintSet {
	return &models.BlueprintSet{
		Alternatives: []models.CompositionBlueprint{
			{
				Steps: []models.BlueprintStep{
					{Kind: "image-classification", ServiceName: "resnet-50", ID: 1, Deps: []int{models.NoDependency}},
				},
				Description: "single-step classification",
			},
		},
	}
}

func newTestServer(t *testing.T, composer Composer) (*Server, *store.DB) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "compositions.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(composer, db), db
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeComposer{})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestComposeSuccess(t *testing.T) {
	composer := &fakeComposer{blueprints: sampleBlueprints()}
	srv, db := newTestServer(t, composer)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/compose", composeRequest{
		Requirements: "classify product photos",
		Constraints:  map[string]any{"latency_budget_ms": 200},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp composeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CompositionID == "" {
		t.Error("missing composition id")
	}
	if resp.Status != store.StatusCreated {
		t.Errorf("status = %q, want created", resp.Status)
	}
	if resp.Blueprints == nil || len(resp.Blueprints.Alternatives) != 1 {
		t.Fatal("blueprints missing from response")
	}
	if len(resp.ReasoningSteps) == 0 {
		t.Error("reasoning steps missing from response")
	}

	stored, err := db.Get(resp.CompositionID)
	if err != nil {
		t.Fatalf("stored composition not found: %v", err)
	}
	if stored.Requirements != "classify product photos" {
		t.Errorf("stored requirements = %q", stored.Requirements)
	}
	if composer.composeCalls != 1 {
		t.Errorf("compose calls = %d, want 1", composer.composeCalls)
	}
}

func TestComposeEmptyRequirements(t *testing.T) {
	composer := &fakeComposer{blueprints: sampleBlueprints()}
	srv, _ := newTestServer(t, composer)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/compose", composeRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if composer.composeCalls != 0 {
		t.Errorf("compose calls = %d, want 0", composer.composeCalls)
	}
}

func TestComposeDegradedRun(t *testing.T) {
	// A run that finishes without blueprints returns 422 with the audit
	// trail so the caller can see which stage gave up.
	composer := &fakeComposer{blueprints: nil}
	srv, db := newTestServer(t, composer)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/compose", composeRequest{
		Requirements: "classify product photos",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.ReasoningSteps) == 0 {
		t.Error("degraded response should carry the audit trail")
	}

	all, err := db.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("degraded run should not be persisted, found %d records", len(all))
	}
}

func TestComposeReasoningUnavailable(t *testing.T) {
	composer := &fakeComposer{err: errors.New("reasoning capability unavailable: connection refused")}
	srv, _ := newTestServer(t, composer)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/compose", composeRequest{
		Requirements: "classify product photos",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGetComposition(t *testing.T) {
	composer := &fakeComposer{blueprints: sampleBlueprints()}
	srv, _ := newTestServer(t, composer)

	created := doJSON(t, srv, http.MethodPost, "/api/v1/compose", composeRequest{
		Requirements: "classify product photos",
	})
	var resp composeResponse
	if err := json.Unmarshal(created.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/compositions/"+resp.CompositionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "classify product photos") {
		t.Error("response missing requirements text")
	}

	missing := doJSON(t, srv, http.MethodGet, "/api/v1/compositions/no-such-id", nil)
	if missing.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", missing.Code)
	}
}

func TestGetStatus(t *testing.T) {
	composer := &fakeComposer{blueprints: sampleBlueprints()}
	srv, _ := newTestServer(t, composer)

	created := doJSON(t, srv, http.MethodPost, "/api/v1/compose", composeRequest{
		Requirements: "classify product photos",
	})
	var resp composeResponse
	if err := json.Unmarshal(created.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/compositions/"+resp.CompositionID+"/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != string(store.StatusCreated) {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestConfirm(t *testing.T) {
	composer := &fakeComposer{blueprints: sampleBlueprints()}
	srv, db := newTestServer(t, composer)

	created := doJSON(t, srv, http.MethodPost, "/api/v1/compose", composeRequest{
		Requirements: "classify product photos",
	})
	var resp composeResponse
	if err := json.Unmarshal(created.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	chosen := resp.Blueprints.Alternatives[0]
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/compositions/"+resp.CompositionID+"/confirm", confirmRequest{
		ConfirmedBlueprint: &chosen,
		DeploymentContext:  map[string]any{"environment": "production"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	stored, err := db.Get(resp.CompositionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != store.StatusDeployed {
		t.Errorf("status = %q, want deployed", stored.Status)
	}
	if stored.ConfirmedBlueprint == nil {
		t.Error("confirmed blueprint not persisted")
	}
	if stored.ConfirmedAt == nil {
		t.Error("confirmed_at not persisted")
	}
}

func TestConfirmUnknownComposition(t *testing.T) {
	srv, _ := newTestServer(t, &fakeComposer{})

	chosen := sampleBlueprints().Alternatives[0]
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/compositions/no-such-id/confirm", confirmRequest{
		ConfirmedBlueprint: &chosen,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestConfirmRejectsInvalidBlueprint(t *testing.T) {
	srv, _ := newTestServer(t, &fakeComposer{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/compositions/some-id/confirm", confirmRequest{
		ConfirmedBlueprint: &models.CompositionBlueprint{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRecompose(t *testing.T) {
	composer := &fakeComposer{blueprints: sampleBlueprints()}
	srv, db := newTestServer(t, composer)

	created := doJSON(t, srv, http.MethodPost, "/api/v1/compose", composeRequest{
		Requirements: "classify product photos",
	})
	var original composeResponse
	if err := json.Unmarshal(created.Body.Bytes(), &original); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/recompose", models.RecompositionTrigger{
		CompositionID:   original.CompositionID,
		TriggerType:     models.TriggerTypePerformanceDegradation,
		FailureAnalysis: "accuracy dropped from 0.94 to 0.71 over the last hour",
		FailureEvidence: map[string]any{"current_accuracy": 0.71, "baseline_accuracy": 0.94},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp composeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CompositionID == original.CompositionID {
		t.Error("recomposition should create a new record")
	}
	if resp.RecomposedFrom != original.CompositionID {
		t.Errorf("recomposed_from = %q, want %q", resp.RecomposedFrom, original.CompositionID)
	}
	if composer.recomposeCalls != 1 {
		t.Errorf("recompose calls = %d, want 1", composer.recomposeCalls)
	}
	if composer.lastRequirements != "classify product photos" {
		t.Errorf("recompose used requirements %q", composer.lastRequirements)
	}

	prior, err := db.Get(original.CompositionID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if prior.Status != store.StatusRecomposed {
		t.Errorf("original status = %q, want recomposed", prior.Status)
	}

	successor, err := db.Get(resp.CompositionID)
	if err != nil {
		t.Fatalf("get successor: %v", err)
	}
	if successor.RecomposedFrom != original.CompositionID {
		t.Error("successor missing recomposed_from link")
	}
}

func TestRecomposeUnknownComposition(t *testing.T) {
	// The lookup must fail before any pipeline work starts.
	composer := &fakeComposer{blueprints: sampleBlueprints()}
	srv, _ := newTestServer(t, composer)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/recompose", models.RecompositionTrigger{
		CompositionID:   "no-such-id",
		TriggerType:     models.TriggerTypePerformanceDegradation,
		FailureAnalysis: "latency regression",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if composer.recomposeCalls != 0 {
		t.Errorf("recompose calls = %d, want 0", composer.recomposeCalls)
	}
	if composer.composeCalls != 0 {
		t.Errorf("compose calls = %d, want 0", composer.composeCalls)
	}
}

func TestRecomposeInvalidTrigger(t *testing.T) {
	composer := &fakeComposer{blueprints: sampleBlueprints()}
	srv, _ := newTestServer(t, composer)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/recompose", models.RecompositionTrigger{
		TriggerType: models.TriggerTypePerformanceDegradation,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if composer.recomposeCalls != 0 {
		t.Errorf("recompose calls = %d, want 0", composer.recomposeCalls)
	}
}
