package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/lambdaq/internal/ir"
)

// createTestStore opens a store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTranslation returns a successful translation whose value is a
// field read of the row.
func createTestTranslation(key string) Translation {
	return Translation{
		Key:       key,
		ClosureID: "closure-" + key,
		Value: ir.IRObject{
			"kind":  ir.IRString("field"),
			"type":  ir.IRString("string"),
			"field": ir.IRString("name"),
			"base": ir.IRObject{
				"kind":  ir.IRString("arg"),
				"type":  ir.IRString("entity:Customer"),
				"index": ir.IRInt(0),
			},
		},
		Steps: 4,
	}
}

// withVersion makes rows written during the test carry another translator
// version.
func withVersion(t *testing.T, version string) {
	t.Helper()
	old := translatorVersion
	translatorVersion = version
	t.Cleanup(func() { translatorVersion = old })
}
