package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lambdaq/internal/bytecode"
	"github.com/roach88/lambdaq/internal/ir"
)

func TestSequentialRunIDs(t *testing.T) {
	g := NewSequentialRunIDs("scenario")
	assert.Equal(t, "scenario-1", g.Generate())
	assert.Equal(t, "scenario-2", g.Generate())
	assert.Equal(t, 2, g.Count())

	g.Reset()
	assert.Equal(t, 0, g.Count())
	assert.Equal(t, "scenario-1", g.Generate())
}

func TestSequentialRunIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "test-run-1", NewSequentialRunIDs("").Generate())
}

func TestSequentialRunIDs_Concurrent(t *testing.T) {
	g := NewSequentialRunIDs("c")
	const n = 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.Equal(t, n, g.Count())
}

func TestSchema(t *testing.T) {
	s := Schema()
	c, ok := s.Entity("Customer")
	require.True(t, ok)
	assert.Len(t, c.Fields, 4)

	assert.Equal(t, s.Fingerprint(), Schema().Fingerprint())

	// Fresh per call.
	s.AddEntity(&ir.Entity{Name: "Item"})
	assert.Len(t, Schema().Entities, 2)
}

func TestCode(t *testing.T) {
	code := Code(t, "load 0\nreturn\n")
	prog, err := bytecode.Decode(code)
	require.NoError(t, err)
	assert.Len(t, prog.Code, 2)
}
