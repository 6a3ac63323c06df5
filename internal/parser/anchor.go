package parser

import (
	"regexp"
	"strings"

	"github.com/starford/anchorlink/internal/models"
)

var (
	// anchorNoDisplayRe matches [[Target#Heading...]] with no |display, ending
	// at the end of the input. The optional leading ! is part of the match.
	// No | may appear anywhere inside, so [[A|b#c]] is not a match.
	anchorNoDisplayRe = regexp.MustCompile(`!?\[\[([^\]|]+#[^|\n\r\]]+)\]\]$`)

	// anchorDisplayRe matches the same link shape but tolerates an existing
	// |display segment.
	anchorDisplayRe = regexp.MustCompile(`(\[\[([^\]]+#[^\n\r\]]+)\]\])$`)

	displayRe = regexp.MustCompile(`\|([^\]]+)`)
)

// Match is an anchor link whose closing ]] ends exactly at the cursor.
type Match struct {
	Link models.LinkReference
	// Inner is the raw text between [[ and ]], display segment included.
	Inner string
	// Close is the byte offset of the closing ]].
	Close int
}

// ClosesLink reports whether the two bytes before ch are "]]".
func ClosesLink(line string, ch int) bool {
	if ch < 2 || ch > len(line) {
		return false
	}
	return line[ch-2:ch] == "]]"
}

// MatchNoDisplay finds an anchor link without display text that ends at ch.
func MatchNoDisplay(line string, ch int) (Match, bool) {
	if !ClosesLink(line, ch) {
		return Match{}, false
	}
	prefix := line[:ch]
	loc := anchorNoDisplayRe.FindStringSubmatchIndex(prefix)
	if loc == nil {
		return Match{}, false
	}

	inner := prefix[loc[2]:loc[3]]
	note, headings := SplitTarget(inner)
	return Match{
		Link: models.LinkReference{
			NoteName:    note,
			HeadingPath: headings,
			IsEmbed:     prefix[loc[0]] == '!',
			MatchStart:  loc[0],
			MatchEnd:    loc[1],
		},
		Inner: inner,
		Close: loc[1] - 2,
	}, true
}

// MatchWithDisplay finds an anchor link ending at ch whether or not it
// already carries display text. The embed marker sits just before the match.
func MatchWithDisplay(line string, ch int) (Match, bool) {
	if !ClosesLink(line, ch) {
		return Match{}, false
	}
	prefix := line[:ch]
	loc := anchorDisplayRe.FindStringSubmatchIndex(prefix)
	if loc == nil {
		return Match{}, false
	}

	inner := prefix[loc[4]:loc[5]]
	target, display, hasDisplay := strings.Cut(inner, "|")
	note, headings := SplitTarget(target)
	// A # that only appears inside the display segment is not an anchor.
	if len(headings) == 0 {
		return Match{}, false
	}

	ref := models.LinkReference{
		NoteName:    note,
		HeadingPath: headings,
		IsEmbed:     loc[0] > 0 && prefix[loc[0]-1] == '!',
		MatchStart:  loc[0],
		MatchEnd:    loc[1],
	}
	if hasDisplay {
		ref.ExistingDisplayText = &display
	}
	return Match{
		Link:  ref,
		Inner: inner,
		Close: loc[3] - 2,
	}, true
}

// SplitTarget splits a link target on # into the note name and heading path.
func SplitTarget(target string) (string, []string) {
	parts := strings.Split(target, "#")
	return parts[0], parts[1:]
}

// DisplaySegment returns the first |display segment found in query, pipe
// included.
func DisplaySegment(query string) (string, bool) {
	seg := displayRe.FindString(query)
	return seg, seg != ""
}
