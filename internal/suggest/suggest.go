// Package suggest decides when to offer display-text suggestions for the
// anchor link just closed at the cursor, and applies the accepted one.
package suggest

import (
	"log/slog"

	"github.com/starford/anchorlink/internal/display"
	"github.com/starford/anchorlink/internal/editor"
	"github.com/starford/anchorlink/internal/metrics"
	"github.com/starford/anchorlink/internal/models"
	"github.com/starford/anchorlink/internal/parser"
	"github.com/starford/anchorlink/internal/settings"
)

// Trigger describes an open suggestion context.
type Trigger struct {
	// Start and End bound the insertion range, just before the closing ]].
	Start models.Position `json:"start"`
	End   models.Position `json:"end"`
	// Query is the raw link text between [[ and ]].
	Query string               `json:"query"`
	Link  models.LinkReference `json:"link"`
}

// Session holds the trigger state of one document. It is not safe for
// concurrent use; callers drive it from a single goroutine.
type Session struct {
	suppressUntil *models.Position
	recorder      metrics.Recorder
}

// NewSession returns an idle session.
func NewSession(rec metrics.Recorder) *Session {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Session{recorder: rec}
}

// Suppressed reports the latched position, if any.
func (s *Session) Suppressed() (models.Position, bool) {
	if s.suppressUntil == nil {
		return models.Position{}, false
	}
	return *s.suppressUntil, true
}

// Evaluate runs on every cursor event and returns the trigger to open, if any.
//
// After an accept, an evaluation at the latched position yields nothing and
// keeps the latch. The first evaluation anywhere else drops the latch and
// also yields nothing.
func (s *Session) Evaluate(buf editor.LineReader, cfg settings.Settings) (*Trigger, bool) {
	if !cfg.Suggest {
		return nil, false
	}
	cursor := buf.Cursor()
	if s.suppressUntil != nil {
		if *s.suppressUntil != cursor {
			s.suppressUntil = nil
		}
		s.recorder.IncSuppressed()
		return nil, false
	}

	m, ok := parser.MatchWithDisplay(buf.Line(cursor.Line), cursor.Ch)
	if !ok {
		return nil, false
	}
	if m.Link.IsEmbed && cfg.IgnoreEmbedded {
		return nil, false
	}

	at := models.Position{Line: cursor.Line, Ch: m.Close}
	s.recorder.IncTrigger()
	return &Trigger{Start: at, End: at, Query: m.Inner, Link: m.Link}, true
}

// Candidates builds the three suggestion variants for t. The note name goes
// through the title resolver when a title property is configured.
func Candidates(t Trigger, cfg settings.Settings, r editor.TitleResolver, logger *slog.Logger) []models.Candidate {
	note := display.ResolveNoteName(r, t.Link.NoteName, cfg.TitleProperty, logger)
	return display.Candidates(note, t.Link.HeadingPath, cfg.Sep)
}

// Render paints every candidate in order.
func Render(r editor.SuggestionRenderer, cands []models.Candidate) {
	for _, c := range cands {
		r.RenderSuggestion(c)
	}
}

// Accept writes |c.DisplayText into the link of t, replacing any display text
// the link already had, and latches the session at the end of the inserted
// text. The latched position is returned.
func (s *Session) Accept(buf editor.Buffer, t Trigger, c models.Candidate) models.Position {
	start := t.Start
	if seg, ok := parser.DisplaySegment(t.Query); ok {
		start.Ch -= len(seg)
		if start.Ch < 0 {
			start.Ch = 0
		}
	}
	text := "|" + c.DisplayText
	buf.ReplaceRange(text, start, t.End, editor.OriginDisplayText)

	end := models.Position{Line: start.Line, Ch: start.Ch + len(text)}
	s.suppressUntil = &end
	s.recorder.IncAccept(c.Label)
	return end
}

// Reset clears the latch.
func (s *Session) Reset() {
	s.suppressUntil = nil
}
