package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"whatsapp-flow-editor/internal/flow"
	"whatsapp-flow-editor/internal/schema"
)

// ValidationResult is the JSON payload of validate.
type ValidationResult struct {
	Valid       bool                `json:"valid"`
	Name        string              `json:"name"`
	Nodes       int                 `json:"nodes"`
	Edges       int                 `json:"edges"`
	Errors      []string            `json:"errors,omitempty"`
	Diagnostics []schema.Diagnostic `json:"diagnostics,omitempty"`
}

// NewValidateCommand checks a flow file the way an explicit save would.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <flow-file>",
		Short: "Validate a flow file without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			f, err := LoadFlowFile(args[0])
			if err != nil {
				return out.Fail(ExitCommandError, err, nil, func(w io.Writer) {
					fmt.Fprintf(w, "✗ %v\n", err)
				})
			}

			res := validateFlow(interpreter(), f)
			if !res.Valid {
				return out.Fail(ExitFailure, errors.New("flow is invalid"), res, func(w io.Writer) {
					fmt.Fprintf(w, "✗ %s is invalid\n", displayName(f))
					for _, e := range res.Errors {
						fmt.Fprintf(w, "  - %s\n", e)
					}
					printDiagnostics(w, res.Diagnostics)
				})
			}
			return out.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s is valid (%d nodes, %d edges)\n", displayName(f), res.Nodes, res.Edges)
				printDiagnostics(w, res.Diagnostics)
			})
		},
	}
}

func validateFlow(interp *schema.Interpreter, f *flow.Flow) ValidationResult {
	normalized := f.Normalize()
	res := ValidationResult{
		Name:        f.Name,
		Nodes:       len(normalized.Nodes),
		Edges:       len(normalized.Edges),
		Diagnostics: interp.Diagnose(f),
	}

	var fieldErrs schema.ValidationErrors
	if err := interp.ValidateFlow(f); errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			res.Errors = append(res.Errors, fe.Error())
		}
	}
	// The name is reported above; check the graph on its own.
	graph := *normalized
	graph.Name = "graph"
	if err := graph.Validate(); err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	res.Valid = len(res.Errors) == 0
	return res
}

func displayName(f *flow.Flow) string {
	if f.Name == "" {
		return "flow"
	}
	return fmt.Sprintf("flow %q", f.Name)
}

func printDiagnostics(w io.Writer, diags []schema.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "! node %s: %s\n", d.NodeID, d.Message)
	}
}

// NewNormalizeCommand prints a flow in its persisted shape.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <flow-file>",
		Short: "Print a flow as it would be saved",
		Long: `Print a flow as it would be saved: nodes reduced to their persisted
fields, duplicate edges removed and missing config keys filled with
their defaults.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			f, err := LoadFlowFile(args[0])
			if err != nil {
				return out.Fail(ExitCommandError, err, nil, func(w io.Writer) {
					fmt.Fprintf(w, "✗ %v\n", err)
				})
			}

			normalized := normalizeFlow(interpreter(), f)
			raw, err := json.MarshalIndent(normalized, "", "  ")
			if err != nil {
				return out.Fail(ExitFailure, err, nil, nil)
			}
			return out.Success(normalized, func(w io.Writer) {
				fmt.Fprintf(w, "%s\n", raw)
			})
		},
	}
}

// normalizeFlow reduces f and adds default values for config keys the
// block defines but the node lacks. Unknown block types are left as they
// are.
func normalizeFlow(interp *schema.Interpreter, f *flow.Flow) *flow.Flow {
	out := f.Normalize()
	for i := range out.Nodes {
		n := &out.Nodes[i]
		defaults, err := interp.DefaultConfig(n.Type)
		if err != nil {
			continue
		}
		for k, v := range defaults {
			if _, ok := n.Data.Config[k]; !ok {
				n.Data.Config[k] = v
			}
		}
	}
	return out
}
