package api

import (
	"github.com/starford/anchorlink/internal/models"
	"github.com/starford/anchorlink/internal/noteservice"
	"github.com/starford/anchorlink/internal/session"
)

// OpenSessionRequest is the request body for opening a session.
type OpenSessionRequest = session.OpenRequest

// SessionSnapshot is the session response type (aliased from the domain layer).
type SessionSnapshot = session.Snapshot

// TypeRequest is the request body for typing into a session.
type TypeRequest struct {
	Text string `json:"text" example:"[[Note#Heading]]" validate:"required"`
}

// AcceptRequest picks a candidate of the open suggestion.
type AcceptRequest struct {
	Index int `json:"index" example:"1"`
}

// SaveRequest writes a session back to the vault.
type SaveRequest struct {
	Path  string `json:"path,omitempty" example:"notes/hello.md"`
	Force bool   `json:"force,omitempty"`
}

// TextAtCursor is a text with a cursor inside it.
type TextAtCursor struct {
	Text   string          `json:"text" example:"see [[Note#Heading]]" validate:"required"`
	Cursor models.Position `json:"cursor"`
}

// FillRequest fills either an inline text or a vault note.
type FillRequest struct {
	Text  string `json:"text,omitempty"`
	Path  string `json:"path,omitempty" example:"notes/hello.md"`
	Write bool   `json:"write,omitempty"`
}

// ComposeResponse is the result of a stateless auto-insert.
type ComposeResponse = noteservice.ComposeResult

// SuggestResponse is the open suggestion for a stateless request.
type SuggestResponse = noteservice.SuggestResult

// FillResponse is the result of a fill.
type FillResponse = noteservice.FillResult

// HeadingsResponse lists the headings of a note.
type HeadingsResponse struct {
	Name     string           `json:"name" example:"Note" validate:"required"`
	Headings []models.Heading `json:"headings" validate:"required"`
}

// TitleResponse is a resolved display name.
type TitleResponse struct {
	Name  string `json:"name" example:"Note" validate:"required"`
	Title string `json:"title" example:"My Note" validate:"required"`
}
