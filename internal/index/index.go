package index

import "github.com/starford/anchorlink/internal/models"

// NoteIndex is the read/write surface of the note index.
type NoteIndex interface {
	UpsertNote(n NoteRow) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	GetNote(path string) (*NoteRow, error)
	ResolveLinkpath(linkpath string) (string, error)
	Frontmatter(path string) (map[string]interface{}, error)
	Headings(linkpath string) ([]models.Heading, error)
	Ping() error
	Close() error
}

var _ NoteIndex = (*DB)(nil)
