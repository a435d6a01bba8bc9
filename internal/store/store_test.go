package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/lambdaq/internal/ir"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestWriteTranslation_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestTranslation("k1")

	inserted, err := s.WriteTranslation(ctx, want)
	if err != nil {
		t.Fatalf("WriteTranslation() failed: %v", err)
	}
	if !inserted {
		t.Error("first write was not inserted")
	}

	got, ok, err := s.ReadTranslation(ctx, "k1")
	if err != nil {
		t.Fatalf("ReadTranslation() failed: %v", err)
	}
	if !ok {
		t.Fatal("translation not found")
	}
	if diff := cmp.Diff(want.Value, got.Value); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
	if got.Err != nil {
		t.Errorf("unexpected error %v", got.Err)
	}
	if got.Steps != 4 || got.Seq != 1 {
		t.Errorf("steps=%d seq=%d, want 4 and 1", got.Steps, got.Seq)
	}
	if got.TranslatorVersion != ir.TranslatorVersion {
		t.Errorf("translator version %q", got.TranslatorVersion)
	}
}

func TestWriteTranslation_Failure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	failed := Translation{
		Key:       "k2",
		ClosureID: "c2",
		Err:       ir.NewUnsupportedOperation("String.matches has no query equivalent").WithExpr("A.name.matches(\"x\")"),
	}
	if _, err := s.WriteTranslation(ctx, failed); err != nil {
		t.Fatalf("WriteTranslation() failed: %v", err)
	}

	got, ok, err := s.ReadTranslation(ctx, "k2")
	if err != nil || !ok {
		t.Fatalf("ReadTranslation() = %v, %v", ok, err)
	}
	if got.Value != nil {
		t.Errorf("value = %v, want nil", got.Value)
	}
	if got.Err == nil || !ir.IsUnsupportedOperation(got.Err) {
		t.Fatalf("err = %v, want UNSUPPORTED_OPERATION", got.Err)
	}
	if got.Err.Expr != `A.name.matches("x")` || got.Err.Closure != "c2" {
		t.Errorf("err = %+v", got.Err)
	}
}

func TestWriteTranslation_RequiresExactlyOneOutcome(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteTranslation(ctx, Translation{Key: "empty"}); err == nil {
		t.Error("expected error for a translation with neither value nor error")
	}

	both := createTestTranslation("both")
	both.Err = ir.NewTypeMismatch("x")
	if _, err := s.WriteTranslation(ctx, both); err == nil {
		t.Error("expected error for a translation with both value and error")
	}
}

func TestWriteTranslation_FirstWriteWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestTranslation("k")
	second := createTestTranslation("k")
	second.Steps = 99

	if _, err := s.WriteTranslation(ctx, first); err != nil {
		t.Fatal(err)
	}
	inserted, err := s.WriteTranslation(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("second write of the same key was inserted")
	}

	got, _, err := s.ReadTranslation(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if got.Steps != first.Steps {
		t.Errorf("steps = %d, want %d", got.Steps, first.Steps)
	}
}

func TestReadTranslation_Missing(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.ReadTranslation(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ReadTranslation() failed: %v", err)
	}
	if ok {
		t.Error("found a translation that was never written")
	}
}

func TestReadTranslation_IgnoresOtherVersions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	withVersion(t, "0.0.1")
	if _, err := s.WriteTranslation(ctx, createTestTranslation("old")); err != nil {
		t.Fatal(err)
	}
	translatorVersion = ir.TranslatorVersion

	_, ok, err := s.ReadTranslation(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("translation from another version was returned")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Translations != 1 || stats.Stale != 1 {
		t.Errorf("stats = %+v, want 1 translation, 1 stale", stats)
	}

	n, err := s.Prune(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d rows, want 1", n)
	}
}

func TestListTranslations_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"c", "a", "b"} {
		if _, err := s.WriteTranslation(ctx, createTestTranslation(key)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListTranslations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, tr := range list {
		keys = append(keys, tr.Key)
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, keys); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestQueries_Log(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, run := range []string{"run-1", "run-2", "run-3"} {
		err := s.WriteQuery(ctx, QueryRecord{
			RunID:    run,
			QueryKey: "q",
			Entity:   "Customer",
			Text:     "SELECT A FROM Customer A WHERE A.country = :param0",
			Params:   ir.IRArray{ir.IRObject{"ordinal": ir.IRInt(0), "slot": ir.IRInt(i)}},
		})
		if err != nil {
			t.Fatalf("WriteQuery() failed: %v", err)
		}
	}
	if err := s.WriteQuery(ctx, QueryRecord{RunID: "run-1", Text: "ignored"}); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListQueries(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d queries, want 3", len(all))
	}

	recent, err := s.ListQueries(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].RunID != "run-2" || recent[1].RunID != "run-3" {
		t.Errorf("recent = %+v", recent)
	}
	want := ir.IRArray{ir.IRObject{"ordinal": ir.IRInt(0), "slot": ir.IRInt(2)}}
	if diff := cmp.Diff(want, recent[1].Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestClear(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteTranslation(ctx, createTestTranslation("k")); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteQuery(ctx, QueryRecord{RunID: "r", QueryKey: "q", Entity: "Customer", Text: "SELECT A FROM Customer A"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (Stats{}) {
		t.Errorf("stats after clear = %+v", stats)
	}
}
