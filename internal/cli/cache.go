package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/lambdaq/internal/store"
)

// CacheOptions holds flags for the cache subcommands.
type CacheOptions struct {
	*RootOptions
	Limit int
}

// CacheEntry is the listed form of a stored translation.
type CacheEntry struct {
	Key       string `json:"key"`
	ClosureID string `json:"closure_id"`
	Version   string `json:"version"`
	Steps     int    `json:"steps"`
	Error     string `json:"error,omitempty"`
}

// QueryEntry is the listed form of a query log record.
type QueryEntry struct {
	Seq      int64  `json:"seq"`
	RunID    string `json:"run_id"`
	Entity   string `json:"entity"`
	Text     string `json:"text"`
	Params   int    `json:"params"`
	Residual int    `json:"residual"`
}

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the translation cache",
		Long: `Inspect and maintain the durable translation cache.

The cache database is named by --cache or by cache_path in the --config
options file.

Examples:
  lambdaq cache stats --cache cache.db
  lambdaq cache list --cache cache.db
  lambdaq cache queries --cache cache.db --limit 20
  lambdaq cache prune --cache cache.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	queries := &cobra.Command{
		Use:   "queries",
		Short: "Show the most recent entries of the query log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(opts, cmd, listQueries)
		},
	}
	queries.Flags().IntVar(&opts.Limit, "limit", 50, "number of entries to show (0 for all)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Count cached translations and logged queries",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCache(opts, cmd, cacheStats)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List cached translations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCache(opts, cmd, listTranslations)
			},
		},
		queries,
		&cobra.Command{
			Use:   "prune",
			Short: "Delete translations recorded by other translator versions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCache(opts, cmd, pruneCache)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every cached translation and logged query",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCache(opts, cmd, clearCache)
			},
		},
	)
	for _, sub := range cmd.Commands() {
		sub.SilenceUsage = true
		sub.SilenceErrors = true
	}

	return cmd
}

type cacheFunc func(ctx context.Context, opts *CacheOptions, st *store.Store, f *OutputFormatter) error

// withCache opens the configured cache, runs fn and closes the cache.
func withCache(opts *CacheOptions, cmd *cobra.Command, fn cacheFunc) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	o, err := loadOptions(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	if o.CachePath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeCacheFailed, "no cache configured (use --cache or cache_path in --config)", nil)
	}
	st, err := openCache(o, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, opts, st, formatter)
}

func cacheStats(ctx context.Context, _ *CacheOptions, st *store.Store, f *OutputFormatter) error {
	stats, err := st.Stats(ctx)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeCacheFailed, err.Error(), nil)
	}
	if f.Format == "json" {
		return f.Success(stats)
	}
	fmt.Fprintf(f.Writer, "Translations: %d (%d failures, %d stale)\n", stats.Translations, stats.Failures, stats.Stale)
	fmt.Fprintf(f.Writer, "Queries:      %d\n", stats.Queries)
	return nil
}

func listTranslations(ctx context.Context, _ *CacheOptions, st *store.Store, f *OutputFormatter) error {
	translations, err := st.ListTranslations(ctx)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeCacheFailed, err.Error(), nil)
	}
	entries := make([]CacheEntry, len(translations))
	for i, t := range translations {
		entries[i] = CacheEntry{
			Key:       t.Key,
			ClosureID: t.ClosureID,
			Version:   t.TranslatorVersion + "/" + t.EncodingVersion,
			Steps:     t.Steps,
		}
		if t.Err != nil {
			entries[i].Error = string(t.Err.Code)
		}
	}
	if f.Format == "json" {
		return f.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(f.Writer, "No cached translations.")
		return nil
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tCLOSURE\tVERSION\tSTEPS\tRESULT")
	for _, e := range entries {
		result := "ok"
		if e.Error != "" {
			result = e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", shortKey(e.Key), shortKey(e.ClosureID), e.Version, e.Steps, result)
	}
	return tw.Flush()
}

func listQueries(ctx context.Context, opts *CacheOptions, st *store.Store, f *OutputFormatter) error {
	records, err := st.ListQueries(ctx, opts.Limit)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeCacheFailed, err.Error(), nil)
	}
	entries := make([]QueryEntry, len(records))
	for i, r := range records {
		entries[i] = QueryEntry{
			Seq:      r.Seq,
			RunID:    r.RunID,
			Entity:   r.Entity,
			Text:     r.Text,
			Params:   len(r.Params),
			Residual: r.Residual,
		}
	}
	if f.Format == "json" {
		return f.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(f.Writer, "No logged queries.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(f.Writer, "#%d %s %s\n", e.Seq, e.RunID, e.Entity)
		fmt.Fprintf(f.Writer, "  %s\n", e.Text)
		if e.Residual > 0 {
			fmt.Fprintf(f.Writer, "  %d residual clause(s)\n", e.Residual)
		}
	}
	return nil
}

func pruneCache(ctx context.Context, _ *CacheOptions, st *store.Store, f *OutputFormatter) error {
	n, err := st.Prune(ctx)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeCacheFailed, err.Error(), nil)
	}
	if f.Format == "json" {
		return f.Success(map[string]int64{"pruned": n})
	}
	fmt.Fprintf(f.Writer, "✓ Pruned %d stale translation(s)\n", n)
	return nil
}

func clearCache(ctx context.Context, _ *CacheOptions, st *store.Store, f *OutputFormatter) error {
	if err := st.Clear(ctx); err != nil {
		return f.Fail(ExitFailure, ErrCodeCacheFailed, err.Error(), nil)
	}
	if f.Format == "json" {
		return f.Success(map[string]bool{"cleared": true})
	}
	fmt.Fprintln(f.Writer, "✓ Cache cleared")
	return nil
}

func shortKey(k string) string {
	if len(k) > 16 {
		return k[:16]
	}
	return k
}
