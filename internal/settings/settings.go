// Package settings holds the display-text configuration snapshot, its
// defaults, validation, and persistence.
package settings

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Placement controls where the note name goes relative to the heading text.
type Placement string

// Placement values.
const (
	HeadersOnly   Placement = "headersOnly"
	NoteNameFirst Placement = "noteNameFirst"
	NoteNameLast  Placement = "noteNameLast"
)

// HeadingMode selects which heading-path segments make up the heading text.
type HeadingMode string

// HeadingMode values.
const (
	AllHeaders  HeadingMode = "allHeaders"
	LastHeader  HeadingMode = "lastHeader"
	FirstHeader HeadingMode = "firstHeader"
)

// ForbiddenSeparatorChars may not appear in a separator; each would corrupt
// the link syntax it is written into.
const ForbiddenSeparatorChars = "[]#^|"

// Settings is an immutable snapshot of the display-text configuration.
// Values are passed by value; nothing mutates a snapshot in place.
type Settings struct {
	IncludeNoteName Placement   `yaml:"includeNoteName" json:"includeNoteName"`
	TitleProperty   string      `yaml:"titleProperty" json:"titleProperty"`
	WhichHeadings   HeadingMode `yaml:"whichHeadings" json:"whichHeadings"`
	IncludeNotice   bool        `yaml:"includeNotice" json:"includeNotice"`
	Sep             string      `yaml:"sep" json:"sep"`
	Suggest         bool        `yaml:"suggest" json:"suggest"`
	IgnoreEmbedded  bool        `yaml:"ignoreEmbedded" json:"ignoreEmbedded"`
}

// Defaults returns the settings used when nothing is stored.
func Defaults() Settings {
	return Settings{
		IncludeNoteName: HeadersOnly,
		TitleProperty:   "",
		WhichHeadings:   AllHeaders,
		IncludeNotice:   false,
		Sep:             " ",
		Suggest:         true,
		IgnoreEmbedded:  true,
	}
}

// Validate validates the settings.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.IncludeNoteName, validation.Required, validation.In(HeadersOnly, NoteNameFirst, NoteNameLast)),
		validation.Field(&s.WhichHeadings, validation.Required, validation.In(AllHeaders, LastHeader, FirstHeader)),
		validation.Field(&s.Sep, validation.By(validSeparator)),
	)
}

func validSeparator(value interface{}) error {
	sep, _ := value.(string)
	if strings.ContainsAny(sep, ForbiddenSeparatorChars) {
		return validation.NewError("validation_separator", "must not contain any of "+ForbiddenSeparatorChars)
	}
	return nil
}

// SanitizeSeparator strips every forbidden character from sep and reports
// whether anything was removed.
func SanitizeSeparator(sep string) (string, bool) {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(ForbiddenSeparatorChars, r) {
			return -1
		}
		return r
	}, sep)
	return clean, clean != sep
}

// normalize replaces invalid enum values with defaults and strips forbidden
// separator characters. It returns the names of the fields it changed.
func (s Settings) normalize() (Settings, []string) {
	def := Defaults()
	var fixed []string
	if err := validation.Validate(s.IncludeNoteName, validation.Required, validation.In(HeadersOnly, NoteNameFirst, NoteNameLast)); err != nil {
		s.IncludeNoteName = def.IncludeNoteName
		fixed = append(fixed, "includeNoteName")
	}
	if err := validation.Validate(s.WhichHeadings, validation.Required, validation.In(AllHeaders, LastHeader, FirstHeader)); err != nil {
		s.WhichHeadings = def.WhichHeadings
		fixed = append(fixed, "whichHeadings")
	}
	if sep, changed := SanitizeSeparator(s.Sep); changed {
		s.Sep = sep
		fixed = append(fixed, "sep")
	}
	return s, fixed
}
