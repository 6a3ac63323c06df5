package display

import (
	"strings"

	"github.com/starford/anchorlink/internal/models"
)

// Candidate labels, in the order Candidates returns them.
const (
	LabelHeadingOnly = "Don't include note name"
	LabelNoteFirst   = "Note name and then heading(s)"
	LabelNoteLast    = "Heading(s) and then note name"
)

// Candidates returns the three suggestion variants for a link: heading only,
// note name first, note name last. Every heading segment is joined with sep;
// the placement and heading-mode settings do not apply here.
func Candidates(noteName string, headings []string, sep string) []models.Candidate {
	heading := stripBlockMarker(strings.Join(headings, sep))
	return []models.Candidate{
		{DisplayText: heading, Label: LabelHeadingOnly},
		{DisplayText: noteName + sep + heading, Label: LabelNoteFirst},
		{DisplayText: heading + sep + noteName, Label: LabelNoteLast},
	}
}
