package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/lambdaq/internal/harness"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/jpql"
	"github.com/roach88/lambdaq/internal/translate"
)

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	Schema string
	Hints  map[string]string
}

// TranslateResult is the JSON payload of the translate command.
type TranslateResult struct {
	*translate.Result
	Debug string `json:"debug"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <query.yaml>",
		Short: "Translate a query to JPQL",
		Long: `Translate one query to JPQL.

The query file names the root entity and lists its clauses, each a closure
in assembly form with its captured values:

  entity: Customer
  clauses:
    - kind: where
      code: |
        load 1
        invokevirtual Customer.getCountry:()String
        load 0
        invokevirtual String.equals:(Object)boolean
        return
      captured:
        - {type: String, value: UK}

Exit codes:
  0 - Query translated (possibly with residual clauses)
  1 - Translation failed with exceptionOnTranslationFail set
  2 - Command error

Examples:
  lambdaq translate query.yaml --schema shop.cue
  lambdaq translate query.yaml --schema shop.cue --hint exceptionOnTranslationFail=false
  lambdaq translate query.yaml --schema ./schema --cache cache.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE schema file or directory (required)")
	cmd.Flags().StringToStringVar(&opts.Hints, "hint", nil, "query hint name=value (repeatable)")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runTranslate(ctx context.Context, opts *TranslateOptions, queryFile string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	o, err := loadOptions(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	s, err := loadSchema(opts.Schema, formatter)
	if err != nil {
		return err
	}

	step, err := harness.LoadQuery(queryFile)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeQueryFile, err.Error(), nil)
	}
	if len(opts.Hints) > 0 && step.Hints == nil {
		step.Hints = make(map[string]any)
	}
	for name, value := range opts.Hints {
		step.Hints[name] = parseHintValue(value)
	}

	st, err := openCache(o, formatter)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	q, err := harness.NewQuery(newTranslator(s, o, st), *step)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeQueryFile, err.Error(), nil)
	}

	res, err := q.Build(ctx)
	if err != nil {
		if terr, ok := ir.AsTranslationError(err); ok {
			return formatter.Fail(ExitFailure, ErrCodeTranslateFailed, terr.Error(), terr)
		}
		return formatter.Fail(ExitCommandError, ErrCodeTranslateFailed, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.encode(CLIResponse{
			Status: "ok",
			Data:   TranslateResult{Result: res, Debug: res.DebugString()},
			RunID:  res.RunID,
		})
	}
	outputTranslateText(formatter, res)
	return nil
}

// parseHintValue types a command-line hint value: booleans and integers
// are recognised, anything else stays a string.
func parseHintValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func outputTranslateText(f *OutputFormatter, res *translate.Result) {
	w := f.Writer
	fmt.Fprintln(w, res.Text)
	for _, p := range res.Params {
		lit, err := jpql.FormatLiteral(&jpql.Literal{Value: literalValue(p.Value), T: p.Type})
		if err != nil {
			lit = fmt.Sprintf("%v", p.Value)
		}
		fmt.Fprintf(w, "  :param%d = %s (%s)\n", p.Ordinal, lit, p.Type)
	}
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for _, r := range res.Residual {
		if r.Reason != nil {
			fmt.Fprintf(w, "residual: clause %d (%s): %v\n", r.Index, r.Clause.Kind, r.Reason)
		} else {
			fmt.Fprintf(w, "residual: clause %d (%s)\n", r.Index, r.Clause.Kind)
		}
	}
	if f.Verbose {
		aliases := make([]string, 0, len(res.Aliases))
		for a := range res.Aliases {
			aliases = append(aliases, a)
		}
		sort.Strings(aliases)
		for _, a := range aliases {
			fmt.Fprintf(f.GetErrWriter(), "alias %s = %s\n", a, res.Aliases[a])
		}
		fmt.Fprintf(f.GetErrWriter(), "run %s, query key %s, page size %d\n", res.RunID, res.QueryKey, res.PageSize)
	}
}

func literalValue(v any) any {
	if n, ok := v.(int); ok {
		return int64(n)
	}
	return v
}
