// Package testutil holds deterministic helpers shared by the translator's
// tests and the scenario harness.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/lambdaq/internal/bytecode"
	"github.com/roach88/lambdaq/internal/ir"
)

// Schema returns the customer/supplier schema most tests translate
// against. Each call returns a fresh schema the caller may extend.
//
//	Customer { name String, country String, salary int, debt long }
//	Supplier { name String, hasFreeShipping boolean }
func Schema() *ir.Schema {
	s := ir.NewSchema()
	s.AddEntity(&ir.Entity{Name: "Customer", Fields: map[string]ir.Field{
		"name":    {Name: "name", Type: ir.String},
		"country": {Name: "country", Type: ir.String},
		"salary":  {Name: "salary", Type: ir.Int},
		"debt":    {Name: "debt", Type: ir.Long},
	}})
	s.AddEntity(&ir.Entity{Name: "Supplier", Fields: map[string]ir.Field{
		"name":            {Name: "name", Type: ir.String},
		"hasFreeShipping": {Name: "hasFreeShipping", Type: ir.Bool},
	}})
	return s
}

// Code assembles src and returns its binary encoding.
func Code(t testing.TB, src string) []byte {
	t.Helper()
	prog, err := bytecode.Assemble(src)
	require.NoError(t, err)
	code, err := bytecode.Encode(prog)
	require.NoError(t, err)
	return code
}
