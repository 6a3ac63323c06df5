// Package editor defines the host-editor collaborators used by the
// display-text core, and an in-memory Document implementing them.
package editor

import (
	"time"

	"github.com/starford/anchorlink/internal/models"
)

// Origin tags attached to buffer changes.
const (
	// OriginDisplayText marks edits made by the display-text core.
	OriginDisplayText = "headerDisplayText"
	// OriginInput marks text typed by the user.
	OriginInput = "+input"
)

// Persistent as a notice duration keeps the notice up until it is hidden.
const Persistent time.Duration = 0

// LineReader gives read access to the current line text and cursor.
type LineReader interface {
	// Line returns the text of line n, or "" when n is out of range.
	Line(n int) string
	Cursor() models.Position
}

// Buffer is a LineReader that can also be edited.
type Buffer interface {
	LineReader
	// ReplaceRange replaces [from, to) with text. from == to inserts.
	ReplaceRange(text string, from, to models.Position, origin string)
}

// TitleResolver maps a note name to a display title taken from the note's
// frontmatter property. An empty property returns noteName untouched.
type TitleResolver interface {
	ResolveTitle(noteName, property string) (string, error)
}

// Notice is a notification that is currently shown.
type Notice interface {
	Hide()
}

// Notifier shows transient or persistent notifications.
type Notifier interface {
	Notify(message string, d time.Duration) Notice
}

// SuggestionRenderer paints one candidate of a suggestion list.
type SuggestionRenderer interface {
	RenderSuggestion(c models.Candidate)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string, time.Duration) Notice { return nopNotice{} }

type nopNotice struct{}

func (nopNotice) Hide() {}

// IdentityResolver resolves every note to its own name.
type IdentityResolver struct{}

// ResolveTitle implements TitleResolver.
func (IdentityResolver) ResolveTitle(noteName, _ string) (string, error) { return noteName, nil }
