package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/composureci/composure/internal/capability"
	"github.com/composureci/composure/internal/config"
	"github.com/composureci/composure/internal/pipeline"
)

var composeConstraints []string
var composeJSON bool

var composeCmd = &cobra.Command{
	Use:   "compose <requirements>",
	Short: "Run the composition pipeline once",
	Long: `Run a one-shot composition from the command line.

The requirements text is analyzed, decomposed into tasks, matched
against the service repository, and turned into blueprint alternatives.
Constraints are free-form key=value pairs forwarded to the pipeline.

Example:
  composure compose "extract text from scanned invoices and summarize them" \
    --constraint latency_budget_ms=500 --constraint environment=edge`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		orchestrator, _, reasoner, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}

		constraints, err := parseConstraints(composeConstraints)
		if err != nil {
			return err
		}

		requirements := strings.Join(args, " ")
		st, err := orchestrator.Compose(cmd.Context(), requirements, constraints)
		if err != nil {
			printRunTrail(st)
			return fmt.Errorf("composition failed: %w", err)
		}

		if composeJSON {
			return json.NewEncoder(os.Stdout).Encode(st)
		}

		printRunTrail(st)
		printBlueprints(st)
		fmt.Println(formatUsage(reasoner.Tracker()))
		return nil
	},
}

// formatUsage summarizes a run's capability usage for the terminal.
func formatUsage(tracker *capability.TokenTracker) string {
	in, out := tracker.Total()
	return fmt.Sprintf("%d capability calls, %d input / %d output tokens (~$%.4f)",
		tracker.Calls(), in, out, tracker.Cost())
}

// parseConstraints turns repeated key=value flags into the open
// constraint map.
func parseConstraints(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	constraints := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid constraint %q: expected key=value", pair)
		}
		constraints[key] = value
	}
	return constraints, nil
}

// printRunTrail prints the audit trail of a run.
func printRunTrail(st *pipeline.RunState) {
	if st == nil {
		return
	}
	for _, entry := range st.AuditEntries() {
		printStatus("•", entry, color.FgCyan)
	}
}

// printBlueprints prints the run outcome: the blueprint alternatives,
// or the degradation notice when the run produced none.
func printBlueprints(st *pipeline.RunState) {
	if st.Blueprints == nil || len(st.Blueprints.Alternatives) == 0 {
		printStatus("✗", "no composition blueprints produced", color.FgRed)
		return
	}

	printStatus("✓", fmt.Sprintf("%d blueprint alternative(s)", len(st.Blueprints.Alternatives)), color.FgGreen)
	for i, alt := range st.Blueprints.Alternatives {
		fmt.Printf("\n%s %d: %s\n", color.New(color.Bold).Sprint("Alternative"), i+1, alt.Description)
		for _, step := range alt.Steps {
			deps := "none"
			if step.HasDependencies() {
				parts := make([]string, len(step.Deps))
				for j, d := range step.Deps {
					parts[j] = fmt.Sprintf("%d", d)
				}
				deps = strings.Join(parts, ", ")
			}
			fmt.Printf("  [%d] %s -> %s (depends on: %s)\n", step.ID, step.Kind, step.ServiceName, deps)
		}
	}
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

func init() {
	composeCmd.Flags().StringArrayVar(&composeConstraints, "constraint", nil, "Constraint as key=value (repeatable)")
	composeCmd.Flags().BoolVar(&composeJSON, "json", false, "Print the full run state as JSON")
}
