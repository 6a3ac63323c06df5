package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/anchorlink/internal/apperr"
	"github.com/starford/anchorlink/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path        string
	Name        string
	Title       string
	Checksum    string
	Frontmatter map[string]interface{}
	Headings    []models.Heading
	UpdatedAt   time.Time
}

// NoteName returns the link name of a vault path: the file name without .md.
func NoteName(p string) string {
	return strings.TrimSuffix(path.Base(p), ".md")
}

// UpsertNote inserts or replaces a note.
func (db *DB) UpsertNote(n NoteRow) error {
	if n.Name == "" {
		n.Name = NoteName(n.Path)
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now().UTC()
	}
	fm := n.Frontmatter
	if fm == nil {
		fm = map[string]interface{}{}
	}
	fmJSON, err := json.Marshal(fm)
	if err != nil {
		return fmt.Errorf("index: encode frontmatter %s: %w", n.Path, err)
	}
	hs := n.Headings
	if hs == nil {
		hs = []models.Heading{}
	}
	hsJSON, _ := json.Marshal(hs)

	_, err = db.conn.Exec(`
		INSERT INTO notes (path, name, title, checksum, frontmatter, headings, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name        = excluded.name,
			title       = excluded.title,
			checksum    = excluded.checksum,
			frontmatter = excluded.frontmatter,
			headings    = excluded.headings,
			updated_at  = excluded.updated_at
	`, n.Path, n.Name, n.Title, n.Checksum, string(fmJSON), string(hsJSON), n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}
	return nil
}

// DeleteNote removes a note. Deleting an unknown path is not an error.
func (db *DB) DeleteNote(p string) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE path = ?`, p); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a note, or "" if it is not indexed.
func (db *DB) GetChecksum(p string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, p).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path to checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetNote loads one note by its vault path.
func (db *DB) GetNote(p string) (*NoteRow, error) {
	var (
		n      NoteRow
		fmJSON string
		hsJSON string
	)
	err := db.conn.QueryRow(`
		SELECT path, name, title, checksum, frontmatter, headings, updated_at
		FROM notes WHERE path = ?`, p).
		Scan(&n.Path, &n.Name, &n.Title, &n.Checksum, &fmJSON, &hsJSON, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: note %s: %w", p, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	if err := json.Unmarshal([]byte(fmJSON), &n.Frontmatter); err != nil {
		return nil, fmt.Errorf("index: decode frontmatter %s: %w", p, err)
	}
	if err := json.Unmarshal([]byte(hsJSON), &n.Headings); err != nil {
		return nil, fmt.Errorf("index: decode headings %s: %w", p, err)
	}
	return &n, nil
}

// ResolveLinkpath maps the target of a wikilink to a vault path. An exact
// path match (with or without .md) wins; otherwise the shortest path whose
// file name matches, compared case-insensitively. A linkpath with folders
// only matches notes under those folders.
func (db *DB) ResolveLinkpath(linkpath string) (string, error) {
	linkpath = strings.TrimSpace(linkpath)
	if linkpath == "" {
		return "", fmt.Errorf("index: resolve: empty linkpath: %w", apperr.ErrNotFound)
	}
	exact := linkpath
	if !strings.HasSuffix(strings.ToLower(exact), ".md") {
		exact += ".md"
	}

	var found string
	err := db.conn.QueryRow(`SELECT path FROM notes WHERE path = ? COLLATE NOCASE LIMIT 1`, exact).Scan(&found)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("index: resolve %s: %w", linkpath, err)
	}

	rows, err := db.conn.Query(`SELECT path FROM notes WHERE name = ?`, NoteName(exact))
	if err != nil {
		return "", fmt.Errorf("index: resolve %s: %w", linkpath, err)
	}
	defer rows.Close()

	suffix := "/" + strings.ToLower(exact)
	var candidates []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return "", err
		}
		if strings.Contains(linkpath, "/") && !strings.HasSuffix(strings.ToLower(p), suffix) {
			continue
		}
		candidates = append(candidates, p)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("index: resolve %s: %w", linkpath, apperr.ErrNotFound)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) < len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], nil
}

// Frontmatter returns the frontmatter of the note at path.
func (db *DB) Frontmatter(p string) (map[string]interface{}, error) {
	n, err := db.GetNote(p)
	if err != nil {
		return nil, err
	}
	return n.Frontmatter, nil
}

// Headings resolves linkpath and returns the headings of that note.
func (db *DB) Headings(linkpath string) ([]models.Heading, error) {
	p, err := db.ResolveLinkpath(linkpath)
	if err != nil {
		return nil, err
	}
	n, err := db.GetNote(p)
	if err != nil {
		return nil, err
	}
	return n.Headings, nil
}
