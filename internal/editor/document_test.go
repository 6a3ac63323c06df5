package editor

import (
	"errors"
	"testing"

	"github.com/starford/anchorlink/internal/apperr"
	"github.com/starford/anchorlink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_LineAndText(t *testing.T) {
	d := NewDocument("first\nsecond")
	assert.Equal(t, 2, d.LineCount())
	assert.Equal(t, "second", d.Line(1))
	assert.Equal(t, "", d.Line(5))
	assert.Equal(t, "", d.Line(-1))
	assert.Equal(t, "first\nsecond", d.Text())
}

func TestDocument_SetCursor(t *testing.T) {
	d := NewDocument("abc\nde")
	require.NoError(t, d.SetCursor(models.Position{Line: 1, Ch: 2}))
	assert.Equal(t, models.Position{Line: 1, Ch: 2}, d.Cursor())

	err := d.SetCursor(models.Position{Line: 1, Ch: 3})
	assert.True(t, errors.Is(err, apperr.ErrInvalidPosition))
	err = d.SetCursor(models.Position{Line: 2, Ch: 0})
	assert.True(t, errors.Is(err, apperr.ErrInvalidPosition))
}

func TestDocument_InsertBeforeCursorShiftsCursor(t *testing.T) {
	d := NewDocument("[[A#b]]")
	require.NoError(t, d.SetCursor(models.Position{Line: 0, Ch: 7}))

	at := models.Position{Line: 0, Ch: 5}
	d.ReplaceRange("|b", at, at, OriginDisplayText)

	assert.Equal(t, "[[A#b|b]]", d.Text())
	assert.Equal(t, models.Position{Line: 0, Ch: 9}, d.Cursor())
}

func TestDocument_InsertAtCursorAdvancesCursor(t *testing.T) {
	d := NewDocument("ab")
	require.NoError(t, d.SetCursor(models.Position{Line: 0, Ch: 1}))
	at := d.Cursor()
	d.ReplaceRange("X\nY", at, at, OriginInput)

	assert.Equal(t, "aX\nYb", d.Text())
	assert.Equal(t, models.Position{Line: 1, Ch: 1}, d.Cursor())
}

func TestDocument_ReplaceRangeNotifiesWithOrigin(t *testing.T) {
	d := NewDocument("[[A#b|old]]")
	var got []Change
	d.OnChange(func(c Change) { got = append(got, c) })

	d.ReplaceRange("|new", models.Position{Ch: 5}, models.Position{Ch: 9}, OriginDisplayText)

	assert.Equal(t, "[[A#b|new]]", d.Text())
	require.Len(t, got, 1)
	assert.Equal(t, OriginDisplayText, got[0].Origin)
	assert.Equal(t, "|new", got[0].Text)
}

func TestDocument_CursorInsideReplacedRangeMovesToEnd(t *testing.T) {
	d := NewDocument("0123456789")
	require.NoError(t, d.SetCursor(models.Position{Ch: 4}))
	d.ReplaceRange("xy", models.Position{Ch: 2}, models.Position{Ch: 6}, OriginInput)

	assert.Equal(t, "01xy6789", d.Text())
	assert.Equal(t, models.Position{Ch: 4}, d.Cursor())
}

func TestDocument_ReplaceRangeClampsPositions(t *testing.T) {
	d := NewDocument("abc")
	d.ReplaceRange("!", models.Position{Line: 3, Ch: 99}, models.Position{Line: 3, Ch: 99}, OriginInput)
	assert.Equal(t, "abc!", d.Text())
}
