// Package storage gives read and write access to the Markdown notes of a vault.
package storage

import "github.com/starford/anchorlink/internal/models"

// Provider is the interface for vault note operations. Paths are relative to
// the vault root and use forward slashes.
type Provider interface {
	// List returns metadata for every note (.md file) under dir, skipping
	// hidden directories such as .obsidian and .trash.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the note at path. A missing note yields
	// an error wrapping apperr.ErrNotFound.
	Read(path string) ([]byte, error)
	// Write atomically replaces the note at path.
	Write(path string, content []byte) error
	// Root returns the absolute vault directory.
	Root() string
}
