package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		switch {
		case ev.Error != "":
			fmt.Fprintf(&buf, "  [%d] %s: failed with %s\n", i+1, ev.Query, ev.Error)
		default:
			fmt.Fprintf(&buf, "  [%d] %s: %s\n", i+1, ev.Query, ev.Text)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and returns
// the messages of those that failed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTextContains:
			err = assertTextContains(result.Trace, assertion)
		case AssertSameKey:
			err = assertSameKey(result.Trace, assertion)
		case AssertResidualCount:
			err = assertResidualCount(result.Trace, assertion)
		case AssertErrorCode:
			err = assertErrorCode(result.Trace, assertion)
		case AssertTranslations:
			err = assertTranslations(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func find(trace []TraceEvent, typ, query string) (TraceEvent, error) {
	for _, ev := range trace {
		if ev.Query == query {
			return ev, nil
		}
	}
	return TraceEvent{}, &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("query %s in trace", query),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTextContains checks that a query's text contains a fragment.
func assertTextContains(trace []TraceEvent, assertion Assertion) error {
	ev, err := find(trace, AssertTextContains, assertion.Query)
	if err != nil {
		return err
	}
	if !strings.Contains(ev.Text, assertion.Text) {
		return &AssertionError{
			Type:     AssertTextContains,
			Expected: fmt.Sprintf("%s text containing %q", assertion.Query, assertion.Text),
			Actual:   fmt.Sprintf("%q", ev.Text),
			Trace:    trace,
		}
	}
	return nil
}

// assertSameKey checks that queries share one plan. Queries differing only
// in captured values must.
func assertSameKey(trace []TraceEvent, assertion Assertion) error {
	var key string
	for i, name := range assertion.Queries {
		ev, err := find(trace, AssertSameKey, name)
		if err != nil {
			return err
		}
		if ev.QueryKey == "" {
			return &AssertionError{
				Type:     AssertSameKey,
				Expected: fmt.Sprintf("%s to build", name),
				Actual:   fmt.Sprintf("failed with %s", ev.Error),
				Trace:    trace,
			}
		}
		if i == 0 {
			key = ev.QueryKey
			continue
		}
		if ev.QueryKey != key {
			return &AssertionError{
				Type:     AssertSameKey,
				Expected: fmt.Sprintf("queries %v to share a key", assertion.Queries),
				Actual:   fmt.Sprintf("%s has key %s, %s has %s", assertion.Queries[0], key, name, ev.QueryKey),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertResidualCount checks how many clauses were left untranslated.
func assertResidualCount(trace []TraceEvent, assertion Assertion) error {
	ev, err := find(trace, AssertResidualCount, assertion.Query)
	if err != nil {
		return err
	}
	if ev.Residual != assertion.Count {
		return &AssertionError{
			Type:     AssertResidualCount,
			Expected: fmt.Sprintf("%s with %d residual clauses", assertion.Query, assertion.Count),
			Actual:   fmt.Sprintf("%d residual clauses", ev.Residual),
			Trace:    trace,
		}
	}
	return nil
}

// assertErrorCode checks the error a query failed with, or the reason its
// first residual clause was not translated.
func assertErrorCode(trace []TraceEvent, assertion Assertion) error {
	ev, err := find(trace, AssertErrorCode, assertion.Query)
	if err != nil {
		return err
	}
	got := ev.Error
	if got == "" {
		got = ev.Reason
	}
	if got != assertion.Code {
		return &AssertionError{
			Type:     AssertErrorCode,
			Expected: fmt.Sprintf("%s to fail with %s", assertion.Query, assertion.Code),
			Actual:   orNone(got),
			Trace:    trace,
		}
	}
	return nil
}

// assertTranslations checks the number of distinct interpretations held
// by the cache.
func assertTranslations(result *Result, assertion Assertion) error {
	if result.Cache.Translations != assertion.Count {
		return &AssertionError{
			Type:     AssertTranslations,
			Expected: fmt.Sprintf("%d cached translations", assertion.Count),
			Actual:   fmt.Sprintf("%d", result.Cache.Translations),
			Trace:    result.Trace,
		}
	}
	return nil
}
