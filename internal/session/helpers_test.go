package session

import (
	"testing"

	"github.com/starford/anchorlink/internal/index"
	"github.com/starford/anchorlink/internal/testutil"
	"github.com/starford/anchorlink/internal/title"
)

func resolverFor(t *testing.T, db index.NoteIndex) *title.Resolver {
	t.Helper()
	r, err := title.New(db, 32, testutil.QuietLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}
