package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lambdaq/internal/translate"
)

// DefaultRunID prefixes the run IDs of scenarios that do not set one.
const DefaultRunID = "test-run"

// Scenario is a set of queries translated against one schema.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE schema file or directory. Relative paths are
	// resolved against the scenario file.
	Schema string `yaml:"schema"`

	// Hints are applied to the default options of every query.
	Hints map[string]any `yaml:"hints,omitempty"`

	// RunID prefixes the run IDs; query i gets "<RunID>-<i+1>".
	RunID string `yaml:"run_id,omitempty"`

	// Queries are built in order.
	Queries []QueryStep `yaml:"queries"`

	// Assertions are evaluated after every query has been built.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// QueryStep is one query of a scenario.
type QueryStep struct {
	Name   string `yaml:"name"`
	Entity string `yaml:"entity"`

	// Hints apply to this query only.
	Hints map[string]any `yaml:"hints,omitempty"`

	Clauses []ClauseStep `yaml:"clauses"`

	// Expect is checked against the built query. Nil skips the check.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ClauseStep is a clause whose closure is written in assembly.
type ClauseStep struct {
	// Kind is where, select or sortedBy.
	Kind string `yaml:"kind"`

	// Code is the closure body in assembly form.
	Code string `yaml:"code"`

	// Args are the closure argument types. Empty means one argument of
	// the query entity's type.
	Args []string `yaml:"args,omitempty"`

	// Captured are the captured variables in slot order.
	Captured []CapturedValue `yaml:"captured,omitempty"`

	Descending bool `yaml:"descending,omitempty"`
}

// CapturedValue is a captured variable. Type is a type descriptor as in
// the schema; Value is converted to the matching Go value.
type CapturedValue struct {
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

// ExpectClause specifies the expected outcome of a query. Empty fields
// are not checked.
type ExpectClause struct {
	// Text is the exact query text.
	Text string `yaml:"text,omitempty"`

	// Debug is the query text with parameters inlined.
	Debug string `yaml:"debug,omitempty"`

	// Params are the expected parameter values in ordinal order.
	Params []any `yaml:"params,omitempty"`

	// Residual is the expected number of untranslated clauses.
	Residual *int `yaml:"residual,omitempty"`

	// Error is the expected translation error code. It implies the query
	// fails, which only happens with exceptionOnTranslationFail set.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the scenario as a whole.
type Assertion struct {
	// Type specifies the assertion type:
	// - "text_contains": query Query's text contains Text
	// - "same_key": every query in Queries shares one query key
	// - "residual_count": query Query has Count residual clauses
	// - "error_code": query Query failed or fell back with Code
	// - "translations": the cache holds Count interpretations
	Type string `yaml:"type"`

	Query   string   `yaml:"query,omitempty"`
	Queries []string `yaml:"queries,omitempty"`
	Text    string   `yaml:"text,omitempty"`
	Code    string   `yaml:"code,omitempty"`
	Count   int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTextContains  = "text_contains"
	AssertSameKey       = "same_key"
	AssertResidualCount = "residual_count"
	AssertErrorCode     = "error_code"
	AssertTranslations  = "translations"
)

// LoadScenario reads and parses a scenario YAML file. The schema path is
// resolved against the scenario's directory. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadQuery reads a single query step from a YAML file.
func LoadQuery(path string) (*QueryStep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}

	var step QueryStep
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&step); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if step.Name == "" {
		step.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := validateQuery(0, step); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	return &step, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema not found: %s", s.Schema)
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	names := make(map[string]bool)
	for i, q := range s.Queries {
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if names[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate name %q", i, q.Name)
		}
		names[q.Name] = true
		if err := validateQuery(i, q); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, names); err != nil {
			return err
		}
	}
	return nil
}

func validateQuery(i int, q QueryStep) error {
	if q.Entity == "" {
		return fmt.Errorf("queries[%d]: entity is required", i)
	}
	for j, c := range q.Clauses {
		if _, err := translate.ParseClauseKind(c.Kind); err != nil {
			return fmt.Errorf("queries[%d].clauses[%d]: %w", i, j, err)
		}
		if c.Code == "" {
			return fmt.Errorf("queries[%d].clauses[%d]: code is required", i, j)
		}
		for k, v := range c.Captured {
			if v.Type == "" {
				return fmt.Errorf("queries[%d].clauses[%d].captured[%d]: type is required", i, j, k)
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, queries map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needQuery := func() error {
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for %s", index, a.Type)
		}
		if !queries[a.Query] {
			return fmt.Errorf("assertions[%d]: unknown query %q", index, a.Query)
		}
		return nil
	}

	switch a.Type {
	case AssertTextContains:
		if err := needQuery(); err != nil {
			return err
		}
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for text_contains", index)
		}
	case AssertSameKey:
		if len(a.Queries) < 2 {
			return fmt.Errorf("assertions[%d]: at least two queries are required for same_key", index)
		}
		for _, q := range a.Queries {
			if !queries[q] {
				return fmt.Errorf("assertions[%d]: unknown query %q", index, q)
			}
		}
	case AssertResidualCount:
		if err := needQuery(); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for residual_count", index)
		}
	case AssertErrorCode:
		if err := needQuery(); err != nil {
			return err
		}
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	case AssertTranslations:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for translations", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
