// Package display turns a link's note name and heading path into display text.
package display

import (
	"log/slog"
	"strings"

	"github.com/starford/anchorlink/internal/editor"
	"github.com/starford/anchorlink/internal/settings"
)

// Options are the settings the composer reads.
type Options struct {
	Placement settings.Placement
	Headings  settings.HeadingMode
	Sep       string
}

// OptionsFrom picks the composer options out of a settings snapshot.
func OptionsFrom(s settings.Settings) Options {
	return Options{
		Placement: s.IncludeNoteName,
		Headings:  s.WhichHeadings,
		Sep:       s.Sep,
	}
}

// Compose builds the display text for noteName and headings. Missing heading
// elements count as empty text. The separator is trusted to be sanitized.
func Compose(noteName string, headings []string, opts Options) string {
	text := stripBlockMarker(selectHeadings(headings, opts.Headings, opts.Sep))
	return place(noteName, text, opts.Placement, opts.Sep)
}

func selectHeadings(headings []string, mode settings.HeadingMode, sep string) string {
	switch mode {
	case settings.LastHeader:
		return at(headings, len(headings)-1)
	case settings.FirstHeader:
		return at(headings, 0)
	default:
		return strings.Join(headings, sep)
	}
}

func place(noteName, heading string, p settings.Placement, sep string) string {
	switch p {
	case settings.NoteNameFirst:
		return noteName + sep + heading
	case settings.NoteNameLast:
		return heading + sep + noteName
	default:
		return heading
	}
}

func at(s []string, i int) string {
	if i < 0 || i >= len(s) {
		return ""
	}
	return s[i]
}

// stripBlockMarker removes exactly one leading ^.
func stripBlockMarker(s string) string {
	return strings.TrimPrefix(s, "^")
}

// ResolveNoteName returns the note's title property when property is set and
// the note has a value for it, else name. Resolver errors are logged and
// treated as an absent property.
func ResolveNoteName(r editor.TitleResolver, name, property string, logger *slog.Logger) string {
	if property == "" || r == nil {
		return name
	}
	title, err := r.ResolveTitle(name, property)
	if err != nil {
		if logger != nil {
			logger.Warn("display: title lookup failed",
				slog.String("note", name),
				slog.String("property", property),
				slog.String("error", err.Error()))
		}
		return name
	}
	if title == "" {
		return name
	}
	return title
}
