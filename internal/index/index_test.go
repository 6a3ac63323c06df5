package index

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/anchorlink/internal/apperr"
	"github.com/starford/anchorlink/internal/models"
	"github.com/starford/anchorlink/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestUpsertAndGetNote(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:        "work/Project.md",
		Title:       "Project",
		Checksum:    "abc123",
		Frontmatter: map[string]interface{}{"title": "The Project", "tags": []interface{}{"a", "b"}},
		Headings:    []models.Heading{{Level: 1, Text: "Project"}, {Level: 2, Text: "Tasks"}},
		UpdatedAt:   time.Now(),
	}
	if err := db.UpsertNote(row); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}

	got, err := db.GetNote("work/Project.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Name != "Project" {
		t.Errorf("name = %q, want Project", got.Name)
	}
	if got.Frontmatter["title"] != "The Project" {
		t.Errorf("frontmatter title = %v", got.Frontmatter["title"])
	}
	if len(got.Headings) != 2 || got.Headings[1].Text != "Tasks" || got.Headings[1].Level != 2 {
		t.Errorf("headings = %+v", got.Headings)
	}

	cs, err := db.GetChecksum("work/Project.md")
	if err != nil || cs != "abc123" {
		t.Errorf("checksum = %q, %v", cs, err)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "Old", Checksum: "1"})
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "New", Checksum: "2"})

	got, err := db.GetNote("up.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Title != "New" || got.Checksum != "2" {
		t.Errorf("note not updated: %+v", got)
	}
	all, _ := db.AllChecksums()
	if len(all) != 1 {
		t.Errorf("expected 1 row, got %d", len(all))
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "del.md", Checksum: "x"})
	if err := db.DeleteNote("del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if cs, _ := db.GetChecksum("del.md"); cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	if _, err := db.GetNote("del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetNote after delete: %v", err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	cs, err := testDB(t).GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestResolveLinkpath(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"Project.md", "archive/2023/Project.md", "work/Tasks.md", "deep/nested/Tasks.md", "Mixed Case.md"} {
		if err := db.UpsertNote(NoteRow{Path: p, Checksum: p}); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		link string
		want string
	}{
		{"Project", "Project.md"},
		{"Project.md", "Project.md"},
		{"archive/2023/Project", "archive/2023/Project.md"},
		{"2023/Project", "archive/2023/Project.md"},
		{"Tasks", "work/Tasks.md"},
		{"nested/Tasks", "deep/nested/Tasks.md"},
		{"mixed case", "Mixed Case.md"},
	}
	for _, tc := range cases {
		got, err := db.ResolveLinkpath(tc.link)
		if err != nil {
			t.Errorf("ResolveLinkpath(%q): %v", tc.link, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveLinkpath(%q) = %q, want %q", tc.link, got, tc.want)
		}
	}

	for _, miss := range []string{"", "Nope", "other/Tasks"} {
		if _, err := db.ResolveLinkpath(miss); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("ResolveLinkpath(%q): expected ErrNotFound, got %v", miss, err)
		}
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("Project.md", []byte("---\ntitle: The Project\n---\n# Project\n## Tasks\n### Open\n"))
	_ = store.Write("sub/Other.md", []byte("plain"))
	_ = db.UpsertNote(NoteRow{Path: "gone.md", Checksum: "stale"})

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	all, _ := db.AllChecksums()
	if len(all) != 2 {
		t.Fatalf("expected 2 notes, got %v", all)
	}
	if _, ok := all["gone.md"]; ok {
		t.Error("stale note not removed")
	}

	fm, err := db.Frontmatter("Project.md")
	if err != nil {
		t.Fatalf("Frontmatter: %v", err)
	}
	if fm["title"] != "The Project" {
		t.Errorf("frontmatter = %v", fm)
	}

	hs, err := db.Headings("Project")
	if err != nil {
		t.Fatalf("Headings: %v", err)
	}
	want := []models.Heading{{Level: 1, Text: "Project"}, {Level: 2, Text: "Tasks"}, {Level: 3, Text: "Open"}}
	if len(hs) != len(want) {
		t.Fatalf("headings = %+v", hs)
	}
	for i := range want {
		if hs[i] != want[i] {
			t.Errorf("heading %d = %+v, want %+v", i, hs[i], want[i])
		}
	}

	// A second sync with nothing changed keeps the rows.
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	again, _ := db.AllChecksums()
	if len(again) != 2 || again["Project.md"] != all["Project.md"] {
		t.Errorf("second sync changed rows: %v", again)
	}
}
