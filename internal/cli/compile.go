package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled schema.
type CompilationResult struct {
	Fingerprint string     `json:"fingerprint"`
	Schema      *ir.Schema `json:"schema"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema>",
		Short: "Compile a CUE schema to JSON",
		Long: `Compile a CUE entity schema to its JSON form.

The schema is a .cue file or a directory of them. The output carries the
schema fingerprint that keys cached translations.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := schema.Load(path, schema.LoadModeCollectAll)
	if len(loadErrors) > 0 {
		var loadErr *schema.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Error(), errorMessages(loadErrors))
		}
		return formatter.Fail(ExitCommandError, schema.ErrCodeGeneric, loadErrors[0].Error(), nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	result := CompilationResult{
		Fingerprint: loadResult.Schema.Fingerprint(),
		Schema:      loadResult.Schema,
	}

	if opts.Output != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return formatter.Fail(ExitCommandError, schema.ErrCodeGeneric, fmt.Sprintf("marshal schema: %v", err), nil)
		}
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0644); err != nil {
			return formatter.Fail(ExitCommandError, schema.ErrCodeWriteFailed, fmt.Sprintf("write %s: %v", opts.Output, err), nil)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d entities, %d enums\n", len(result.Schema.Entities), len(result.Schema.Enums))
	fmt.Fprintf(formatter.Writer, "  fingerprint: %s\n", result.Fingerprint)
	return nil
}

func errorMessages(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
