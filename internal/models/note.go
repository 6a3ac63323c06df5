// Package models defines the domain types for anchorlink.
package models

import (
	"fmt"
	"time"
)

// Position is a cursor location in a document. Ch is a byte offset into the line.
type Position struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

// String renders the position as line:ch.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Ch)
}

// LinkReference is an anchor link extracted from a single line of text.
//
// HeadingPath always holds at least one element; a plain [[Note]] link never
// produces a LinkReference. Block-reference segments keep their leading ^.
type LinkReference struct {
	NoteName            string   `json:"note_name"`
	HeadingPath         []string `json:"heading_path"`
	ExistingDisplayText *string  `json:"existing_display_text,omitempty"`
	IsEmbed             bool     `json:"is_embed"`
	MatchStart          int      `json:"match_start"`
	MatchEnd            int      `json:"match_end"`
}

// Candidate is one generated display text offered to the user.
type Candidate struct {
	DisplayText string `json:"display_text"`
	Label       string `json:"label"`
}

// NoteMetadata is a lightweight representation returned by vault list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Heading is a Markdown heading found in a vault note.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}
