// Package prompts holds the named prompt templates used by the pipeline
// stages. Templates ship embedded in the binary and can be overridden by
// plain-text files in a configurable directory.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var embedded []byte

// Template names, one per pipeline call site.
const (
	RequirementCOT               = "requirement_cot"
	RequirementAnalysis          = "requirement_analysis"
	TaskDecompositionCOT         = "task_decomposition_cot"
	TaskStructuredExtraction     = "task_structured_extraction"
	CompositionBuilderCOT        = "composition_builder_cot"
	CompositionBuilderStructured = "composition_builder_structured"
	RecompositionPreamble        = "recomposition_preamble"
)

// promptFile is the YAML layout of prompts.yaml.
type promptFile struct {
	Prompts map[string]string `yaml:"prompts"`
}

// Store holds the loaded templates. Reads and override reloads may run
// concurrently while a `serve` process handles requests.
type Store struct {
	mu        sync.RWMutex
	templates map[string]string
	overrides map[string]string
}

var (
	loadOnce  sync.Once
	loaded    map[string]string
	loadError error
)

// parseEmbedded parses the embedded prompts.yaml exactly once.
func parseEmbedded() (map[string]string, error) {
	loadOnce.Do(func() {
		var pf promptFile
		if err := yaml.Unmarshal(embedded, &pf); err != nil {
			loadError = fmt.Errorf("parse embedded prompts: %w", err)
			return
		}
		if len(pf.Prompts) == 0 {
			loadError = fmt.Errorf("embedded prompts file has no prompts")
			return
		}
		loaded = pf.Prompts
	})
	return loaded, loadError
}

// Load returns a Store backed by the embedded templates.
func Load() (*Store, error) {
	templates, err := parseEmbedded()
	if err != nil {
		return nil, err
	}

	return &Store{
		templates: templates,
		overrides: make(map[string]string),
	}, nil
}

// Get returns the raw template for name, preferring an override if one
// is loaded.
func (s *Store) Get(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if text, ok := s.overrides[name]; ok {
		return text, nil
	}
	if text, ok := s.templates[name]; ok {
		return text, nil
	}
	return "", fmt.Errorf("unknown prompt template %q", name)
}

// Render fills {placeholder} markers in the named template with the
// given values. Markers without a value are left untouched so a missing
// field is visible in the rendered prompt rather than silently blank.
func (s *Store) Render(name string, vars map[string]string) (string, error) {
	text, err := s.Get(name)
	if err != nil {
		return "", err
	}

	for key, value := range vars {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return text, nil
}

// Names returns the names of all known templates.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	return names
}

// LoadOverrides reads <name>.txt files from dir and installs them as
// overrides for the matching embedded templates. Files that do not match
// a known template name are ignored.
func (s *Store) LoadOverrides(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read override directory: %w", err)
	}

	fresh := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".txt")
		if _, known := s.templates[name]; !known {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read override %s: %w", entry.Name(), err)
		}
		fresh[name] = string(data)
	}

	s.mu.Lock()
	s.overrides = fresh
	s.mu.Unlock()

	return nil
}
