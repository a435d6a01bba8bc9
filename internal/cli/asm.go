package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lambdaq/internal/bytecode"
)

// ClosureExt is the extension of encoded closure files.
const ClosureExt = ".lqc"

// AsmOptions holds flags for the asm command.
type AsmOptions struct {
	*RootOptions
	Output string
}

// AsmResult describes an encoded closure.
type AsmResult struct {
	Output       string `json:"output"`
	Locals       int    `json:"locals"`
	Instructions int    `json:"instructions"`
	Constants    int    `json:"constants"`
	Bytes        int    `json:"bytes"`
}

// NewAsmCommand creates the asm command.
func NewAsmCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AsmOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "asm <file>",
		Short: "Assemble a closure body",
		Long: `Assemble the text form of a closure body into its binary encoding.

The output defaults to the input path with the ` + ClosureExt + ` extension.

Examples:
  lambdaq asm where_country.asm
  lambdaq asm where_country.asm -o closures/where_country` + ClosureExt,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsm(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file")

	return cmd
}

func runAsm(opts *AsmOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	src, err := os.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeAsmFailed, fmt.Sprintf("read %s: %v", path, err), nil)
	}

	prog, err := bytecode.Assemble(string(src))
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeAsmFailed, fmt.Sprintf("%s: %v", path, err), nil)
	}
	data, err := bytecode.Encode(prog)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeAsmFailed, fmt.Sprintf("%s: %v", path, err), nil)
	}

	out := opts.Output
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ClosureExt
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeAsmFailed, fmt.Sprintf("write %s: %v", out, err), nil)
	}

	result := AsmResult{
		Output:       out,
		Locals:       prog.MaxLocals,
		Instructions: len(prog.Code),
		Constants:    len(prog.Pool),
		Bytes:        len(data),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Wrote %s (%d instructions, %d constants, %d bytes)\n",
		out, result.Instructions, result.Constants, result.Bytes)
	return nil
}

// DisasmResult is the JSON payload of the disasm command.
type DisasmResult struct {
	Source string `json:"source"`
}

// NewDisasmCommand creates the disasm command.
func NewDisasmCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm <file>",
		Short: "Disassemble an encoded closure body",
		Long: `Print the text form of an encoded closure body. The output is
accepted by asm.

Examples:
  lambdaq disasm where_country` + ClosureExt,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisasm(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDisasm(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDecodeFailed, fmt.Sprintf("read %s: %v", path, err), nil)
	}
	prog, err := bytecode.Decode(data)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeDecodeFailed, fmt.Sprintf("%s: %v", path, err), nil)
	}

	src := bytecode.Disassemble(prog)
	if formatter.Format == "json" {
		return formatter.Success(DisasmResult{Source: src})
	}
	fmt.Fprint(formatter.Writer, src)
	return nil
}
