package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File is the on-disk form of Options. Unset fields keep their defaults.
type File struct {
	PageSize               *int              `toml:"page_size" yaml:"page_size"`
	UseCaching             *bool             `toml:"use_caching" yaml:"use_caching"`
	DieOnError             *bool             `toml:"die_on_error" yaml:"die_on_error"`
	ObjectEqualsSafe       *bool             `toml:"object_equals_safe" yaml:"object_equals_safe"`
	AllEqualsSafe          *bool             `toml:"all_equals_safe" yaml:"all_equals_safe"`
	CollectionContainsSafe *bool             `toml:"collection_contains_safe" yaml:"collection_contains_safe"`
	CustomFunctions        map[string]string `toml:"custom_functions" yaml:"custom_functions"`
	CachePath              string            `toml:"cache_path" yaml:"cache_path"`
	MaxSteps               *int              `toml:"max_steps" yaml:"max_steps"`

	// Hints are applied last, by their original names.
	Hints map[string]any `toml:"hints" yaml:"hints"`
}

// LoadFile reads a config file. The format follows the extension: .toml,
// or .yaml / .yml. Unknown keys are errors.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported format %q (want .toml, .yaml or .yml)", path, ext)
	}
	return &f, nil
}

// Apply returns o overridden by the values set in f.
func (f *File) Apply(o Options) (Options, error) {
	var opts []Option
	if f.PageSize != nil {
		if *f.PageSize <= 0 {
			return o, fmt.Errorf("page_size must be positive, got %d", *f.PageSize)
		}
		opts = append(opts, WithPageSize(*f.PageSize))
	}
	if f.UseCaching != nil {
		opts = append(opts, WithCaching(*f.UseCaching))
	}
	if f.DieOnError != nil {
		opts = append(opts, WithDieOnError(*f.DieOnError))
	}
	if f.ObjectEqualsSafe != nil {
		opts = append(opts, WithObjectEqualsSafe(*f.ObjectEqualsSafe))
	}
	if f.AllEqualsSafe != nil {
		opts = append(opts, WithAllEqualsSafe(*f.AllEqualsSafe))
	}
	if f.CollectionContainsSafe != nil {
		opts = append(opts, WithCollectionContainsSafe(*f.CollectionContainsSafe))
	}
	for method, fn := range f.CustomFunctions {
		opts = append(opts, WithCustomFunction(method, fn))
	}
	if f.CachePath != "" {
		opts = append(opts, WithCachePath(f.CachePath))
	}
	if f.MaxSteps != nil {
		opts = append(opts, WithMaxSteps(*f.MaxSteps))
	}
	o = o.With(opts...)

	names := make([]string, 0, len(f.Hints))
	for name := range f.Hints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		next, ok := o.WithHint(name, f.Hints[name])
		if !ok {
			return o, fmt.Errorf("invalid hint %s=%v", name, f.Hints[name])
		}
		o = next
	}
	return o, nil
}

// Load reads path and applies it over the defaults.
func Load(path string) (Options, error) {
	f, err := LoadFile(path)
	if err != nil {
		return Options{}, err
	}
	return f.Apply(Default())
}
