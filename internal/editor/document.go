package editor

import (
	"fmt"
	"strings"

	"github.com/starford/anchorlink/internal/apperr"
	"github.com/starford/anchorlink/internal/models"
)

// Change describes one applied edit.
type Change struct {
	From   models.Position `json:"from"`
	To     models.Position `json:"to"`
	Text   string          `json:"text"`
	Origin string          `json:"origin"`
}

// Document is an in-memory text buffer with a single cursor.
// It is not safe for concurrent use.
type Document struct {
	lines     []string
	cursor    models.Position
	listeners []func(Change)
}

// NewDocument creates a document holding text with the cursor at the start.
func NewDocument(text string) *Document {
	return &Document{lines: strings.Split(text, "\n")}
}

// Text returns the whole document.
func (d *Document) Text() string {
	return strings.Join(d.lines, "\n")
}

// LineCount returns the number of lines.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// Line implements LineReader.
func (d *Document) Line(n int) string {
	if n < 0 || n >= len(d.lines) {
		return ""
	}
	return d.lines[n]
}

// Cursor implements LineReader.
func (d *Document) Cursor() models.Position {
	return d.cursor
}

// SetCursor moves the cursor. The position must lie inside the document.
func (d *Document) SetCursor(p models.Position) error {
	if p.Line < 0 || p.Line >= len(d.lines) || p.Ch < 0 || p.Ch > len(d.lines[p.Line]) {
		return fmt.Errorf("%w: %s", apperr.ErrInvalidPosition, p)
	}
	d.cursor = p
	return nil
}

// OnChange registers fn to be called after every applied edit.
func (d *Document) OnChange(fn func(Change)) {
	d.listeners = append(d.listeners, fn)
}

// ReplaceRange implements Buffer. Out-of-range positions are clamped. A
// cursor at or after the end of the range moves with the text that follows it.
func (d *Document) ReplaceRange(text string, from, to models.Position, origin string) {
	from, to = d.clamp(from), d.clamp(to)
	start, end := d.offset(from), d.offset(to)
	if end < start {
		start, end = end, start
		from, to = to, from
	}

	cur := d.offset(d.cursor)
	full := d.Text()
	full = full[:start] + text + full[end:]
	d.lines = strings.Split(full, "\n")

	switch {
	case cur >= end:
		cur += len(text) - (end - start)
	case cur > start:
		cur = start + len(text)
	}
	d.cursor = d.position(cur)

	ch := Change{From: from, To: to, Text: text, Origin: origin}
	for _, fn := range d.listeners {
		fn(ch)
	}
}

func (d *Document) clamp(p models.Position) models.Position {
	if p.Line < 0 {
		p.Line = 0
	}
	if p.Line >= len(d.lines) {
		p.Line = len(d.lines) - 1
	}
	if p.Ch < 0 {
		p.Ch = 0
	}
	if p.Ch > len(d.lines[p.Line]) {
		p.Ch = len(d.lines[p.Line])
	}
	return p
}

func (d *Document) offset(p models.Position) int {
	off := 0
	for i := 0; i < p.Line; i++ {
		off += len(d.lines[i]) + 1
	}
	return off + p.Ch
}

func (d *Document) position(off int) models.Position {
	for i, l := range d.lines {
		if off <= len(l) {
			return models.Position{Line: i, Ch: off}
		}
		off -= len(l) + 1
	}
	last := len(d.lines) - 1
	return models.Position{Line: last, Ch: len(d.lines[last])}
}
