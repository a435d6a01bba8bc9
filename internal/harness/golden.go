package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/lambdaq/internal/ir"
)

// Snapshot is the golden form of a scenario run.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical
// JSON serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"query":    ev.Query,
			"entity":   ev.Entity,
			"residual": ev.Residual,
		}
		if ev.RunID != "" {
			m["run_id"] = ev.RunID
		}
		if ev.Text != "" {
			m["text"] = ev.Text
			m["debug"] = ev.Debug
		}
		if len(ev.Params) > 0 {
			m["params"] = anySlice(ev.Params)
		}
		if len(ev.Warnings) > 0 {
			m["warnings"] = anySlice(ev.Warnings)
		}
		if ev.Reason != "" {
			m["reason"] = ev.Reason
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		trace[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
	}
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Marshal returns the canonical JSON form of the snapshot.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Trace: result.Trace}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
