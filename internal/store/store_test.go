package store

import (
	"errors"
	"sort"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(path, title, content string) Record {
	return Record{
		Title:   title,
		Content: content,
		File:    path,
		Path:    path,
		Lastmod: 1000,
	}
}

func TestUpsertInvisibleUntilCommit(t *testing.T) {
	s := openTestStore(t)

	if err := s.Upsert(testRecord("/notes/a.md", "Alpha", "first note")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	paths, err := s.List("alpha")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("staged record visible before commit: %v", paths)
	}

	if _, err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	paths, err = s.List("alpha")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/notes/a.md" {
		t.Errorf("List = %v, want [/notes/a.md]", paths)
	}
}

func TestUpsertReplacesWholesale(t *testing.T) {
	s := openTestStore(t)

	if err := s.Upsert(testRecord("/notes/a.md", "Alpha", "old body")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	if err := s.Upsert(testRecord("/notes/a.md", "Alpha", "new body")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	// Exactly one live record per path.
	n, err := s.ExactCount(FieldPath, "/notes/a.md")
	if err != nil {
		t.Fatalf("ExactCount: %v", err)
	}
	if n != 1 {
		t.Errorf("ExactCount = %d, want 1", n)
	}

	old, err := s.List("old")
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 0 {
		t.Errorf("old body still matches after replace: %v", old)
	}
}

func TestCommitSequence(t *testing.T) {
	s := openTestStore(t)

	seq0 := s.Seq()

	if err := s.Upsert(testRecord("/notes/a.md", "A", "a")); err != nil {
		t.Fatal(err)
	}
	seq1, err := s.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if seq1 <= seq0 {
		t.Errorf("seq did not increase: %d -> %d", seq0, seq1)
	}

	// An empty staged set commits as a no-op with a stable sequence.
	seq2, err := s.Commit()
	if err != nil {
		t.Fatal(err)
	}
	seq3, err := s.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if seq2 != seq1 || seq3 != seq1 {
		t.Errorf("empty commits changed seq: %d, %d (want %d)", seq2, seq3, seq1)
	}

	if err := s.Upsert(testRecord("/notes/b.md", "B", "b")); err != nil {
		t.Fatal(err)
	}
	seq4, err := s.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if seq4 <= seq1 {
		t.Errorf("seq not monotonic: %d after %d", seq4, seq1)
	}
}

func TestTagQueryExactness(t *testing.T) {
	s := openTestStore(t)

	work := testRecord("/notes/w.md", "Work note", "meeting minutes")
	work.Tag = []string{"work"}
	home := testRecord("/notes/h.md", "Home note", "grocery list")
	home.Tag = []string{"home"}

	if err := s.Upsert(work); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(home); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	paths, err := s.List("tag:work")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/notes/w.md" {
		t.Errorf("tag:work = %v, want exactly [/notes/w.md]", paths)
	}
}

func TestWildcardMatchesEverything(t *testing.T) {
	s := openTestStore(t)

	want := []string{"/notes/a.md", "/notes/b.md", "/notes/c.md"}
	for _, p := range want {
		if err := s.Upsert(testRecord(p, "T", "body")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	paths, err := s.List(Wildcard)
	if err != nil {
		t.Fatalf("List(*): %v", err)
	}
	sort.Strings(paths)
	if len(paths) != len(want) {
		t.Fatalf("wildcard = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("wildcard[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestDeleteByQuery(t *testing.T) {
	s := openTestStore(t)

	if err := s.Upsert(testRecord("/notes/a.md", "Keep me", "staying")); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(testRecord("/notes/b.md", "Drop me", "leaving")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	if _, err := s.DeleteByQuery("leaving"); err != nil {
		t.Fatalf("DeleteByQuery: %v", err)
	}

	paths, err := s.List(Wildcard)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != "/notes/a.md" {
		t.Errorf("after delete, List(*) = %v, want [/notes/a.md]", paths)
	}
}

func TestBadQuery(t *testing.T) {
	s := openTestStore(t)

	_, err := s.List(`title:"unclosed`)
	if err == nil {
		t.Fatal("expected QueryError for malformed query")
	}
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Errorf("error = %v, want *QueryError", err)
	}
}

func TestExactCountMissing(t *testing.T) {
	s := openTestStore(t)
	n, err := s.ExactCount(FieldPath, "/does/not/exist.md")
	if err != nil {
		t.Fatalf("ExactCount: %v", err)
	}
	if n != 0 {
		t.Errorf("ExactCount = %d, want 0", n)
	}
}

func TestAllReportsCorruption(t *testing.T) {
	s := openTestStore(t)

	// A record staged through the raw batch without a lastmod field
	// models schema drift from an older store layout.
	if err := s.batch.Index("/notes/drift.md", map[string]interface{}{
		"path":  "/notes/drift.md",
		"title": "Drifted",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	_, err := s.All()
	if err == nil {
		t.Fatal("expected CorruptionError for record without lastmod")
	}
	var ce *CorruptionError
	if !errors.As(err, &ce) {
		t.Errorf("error = %v, want *CorruptionError", err)
	}
}

func TestAllTracked(t *testing.T) {
	s := openTestStore(t)

	rec := testRecord("/notes/a.md", "A", "a")
	rec.Lastmod = 4242
	if err := s.Upsert(rec); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	tracked, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(tracked) != 1 {
		t.Fatalf("All = %d records, want 1", len(tracked))
	}
	if tracked[0].Path != "/notes/a.md" || tracked[0].Lastmod != 4242 {
		t.Errorf("All[0] = %+v, want path=/notes/a.md lastmod=4242", tracked[0])
	}
}

func TestResetKeepsSequence(t *testing.T) {
	s := openTestStore(t)

	if err := s.Upsert(testRecord("/notes/a.md", "A", "a")); err != nil {
		t.Fatal(err)
	}
	seq, err := s.Commit()
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	paths, err := s.List(Wildcard)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Errorf("index not empty after reset: %v", paths)
	}
	if s.Seq() != seq {
		t.Errorf("Seq = %d after reset, want %d", s.Seq(), seq)
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Upsert(testRecord("/notes/a.md", "Persistent", "kept on disk")); err != nil {
		t.Fatal(err)
	}
	seq, err := s.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()

	if s2.Seq() != seq {
		t.Errorf("Seq after reopen = %d, want %d", s2.Seq(), seq)
	}
	paths, err := s2.List("persistent")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Errorf("List after reopen = %v, want one hit", paths)
	}
}
