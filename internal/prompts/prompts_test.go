package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadEmbedded(t *testing.T) {
	store, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	required := []string{
		RequirementCOT,
		RequirementAnalysis,
		TaskDecompositionCOT,
		TaskStructuredExtraction,
		CompositionBuilderCOT,
		CompositionBuilderStructured,
		RecompositionPreamble,
	}

	for _, name := range required {
		text, err := store.Get(name)
		if err != nil {
			t.Errorf("Get(%q) failed: %v", name, err)
		}
		if strings.TrimSpace(text) == "" {
			t.Errorf("template %q is empty", name)
		}
	}
}

func TestNames(t *testing.T) {
	store, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	names := store.Names()
	if len(names) != 7 {
		t.Errorf("expected 7 template names, got %d: %v", len(names), names)
	}

	found := make(map[string]bool, len(names))
	for _, name := range names {
		found[name] = true
	}
	if !found[RequirementCOT] || !found[RecompositionPreamble] {
		t.Errorf("Names() missing expected templates: %v", names)
	}
}

func TestGetUnknown(t *testing.T) {
	store, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := store.Get("no_such_template"); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestRender(t *testing.T) {
	store, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	out, err := store.Render(RequirementCOT, map[string]string{
		"requirements": "transcribe audio then classify sentiment",
		"constraints":  "{}",
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !strings.Contains(out, "transcribe audio then classify sentiment") {
		t.Error("rendered template missing requirements value")
	}
	if strings.Contains(out, "{requirements}") {
		t.Error("placeholder {requirements} was not substituted")
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	store, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	out, err := store.Render(RequirementAnalysis, map[string]string{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// A missing value should stay visible rather than vanish.
	if !strings.Contains(out, "{reasoning}") {
		t.Error("expected unreplaced {reasoning} placeholder to remain")
	}
}

func TestLoadOverrides(t *testing.T) {
	store, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dir := t.TempDir()
	override := "OVERRIDDEN: {requirements}"
	if err := os.WriteFile(filepath.Join(dir, RequirementCOT+".txt"), []byte(override), 0644); err != nil {
		t.Fatal(err)
	}
	// Unknown names are ignored.
	if err := os.WriteFile(filepath.Join(dir, "bogus.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := store.LoadOverrides(dir); err != nil {
		t.Fatalf("LoadOverrides failed: %v", err)
	}

	got, err := store.Get(RequirementCOT)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != override {
		t.Errorf("Get returned %q, want the override", got)
	}

	if _, err := store.Get("bogus"); err == nil {
		t.Error("unknown override file must not create a template")
	}

	// Other templates are untouched.
	other, err := store.Get(CompositionBuilderCOT)
	if err != nil || strings.Contains(other, "OVERRIDDEN") {
		t.Error("override leaked into unrelated template")
	}
}

func TestWatchReload(t *testing.T) {
	store, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dir := t.TempDir()
	w, err := store.Watch(dir)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	override := "watched override"
	if err := os.WriteFile(filepath.Join(dir, RequirementCOT+".txt"), []byte(override), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := store.Get(RequirementCOT); got == override {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("override was not picked up by the watcher")
}
