package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lambdaq/internal/config"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/schema"
	"github.com/roach88/lambdaq/internal/store"
	"github.com/roach88/lambdaq/internal/translate"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadOptions reads the options file, if any, and applies the --cache
// override.
func loadOptions(opts *RootOptions, f *OutputFormatter) (config.Options, error) {
	o := config.Default()
	if opts.Config != "" {
		var err error
		if o, err = config.Load(opts.Config); err != nil {
			return o, f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		f.VerboseLog("Loaded options from %s", opts.Config)
	}
	if opts.Cache != "" {
		o = o.With(config.WithCachePath(opts.Cache))
	}
	return o.With(config.WithLogger(f.Logger())), nil
}

// loadSchema loads a schema, reporting the first error.
func loadSchema(path string, f *OutputFormatter) (*ir.Schema, error) {
	result, errs := schema.Load(path, schema.LoadModeFailFast)
	if len(errs) > 0 {
		var loadErr *schema.LoadError
		if errors.As(errs[0], &loadErr) {
			return nil, f.Fail(ExitCommandError, loadErr.Code, loadErr.Error(), nil)
		}
		return nil, f.Fail(ExitCommandError, schema.ErrCodeGeneric, errs[0].Error(), nil)
	}
	f.VerboseLog("Loaded %d entities and %d enums from %s", len(result.Schema.Entities), len(result.Schema.Enums), path)
	return result.Schema, nil
}

// openCache opens the durable cache named by the options. It returns nil
// when no cache path is configured.
func openCache(o config.Options, f *OutputFormatter) (*store.Store, error) {
	if o.CachePath == "" {
		return nil, nil
	}
	st, err := store.Open(o.CachePath)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeCacheFailed, fmt.Sprintf("open cache: %v", err), nil)
	}
	f.VerboseLog("Using translation cache %s", o.CachePath)
	return st, nil
}

// newTranslator builds a translator, backed by st when it is not nil.
func newTranslator(s *ir.Schema, o config.Options, st *store.Store) *translate.Translator {
	if st == nil {
		return translate.New(s, o)
	}
	cache := translate.NewCache(translate.WithDurable(st), translate.WithCacheLogger(o.Log()))
	return translate.New(s, o, translate.WithCache(cache), translate.WithQueryLog(st))
}
