package noteservice

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/anchorlink/internal/apperr"
	"github.com/starford/anchorlink/internal/models"
	"github.com/starford/anchorlink/internal/settings"
	"github.com/starford/anchorlink/internal/testutil"
	"github.com/starford/anchorlink/internal/title"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSettings settings.Settings

func (s staticSettings) Current() settings.Settings { return settings.Settings(s) }

var vault = map[string]string{
	"Project.md":      "---\ntitle: Big Project\n---\n# Tasks\n## Open\n",
	"notes/Errand.md": "# Shopping\n",
}

func newService(t *testing.T, cfg settings.Settings) *Service {
	t.Helper()
	store, db := testutil.IndexedVault(t, vault)
	r, err := title.New(db, 16, testutil.QuietLogger(), nil)
	require.NoError(t, err)
	return NewService(Options{
		Settings: staticSettings(cfg),
		Resolver: r,
		Store:    store,
		Index:    db,
		Logger:   testutil.QuietLogger(),
	})
}

func TestCompose(t *testing.T) {
	svc := newService(t, settings.Defaults())
	line := "see [[Project#Tasks#Open]]"

	res, err := svc.Compose(context.Background(), line, models.Position{Ch: len(line)})
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.Equal(t, "see [[Project#Tasks#Open|Tasks Open]]", res.Text)
	assert.Equal(t, models.Position{Ch: len(res.Text)}, res.Cursor)

	res, err = svc.Compose(context.Background(), "[[Project]]", models.Position{Ch: 11})
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.Equal(t, "[[Project]]", res.Text)
}

func TestCompose_UsesTitleProperty(t *testing.T) {
	cfg := settings.Defaults()
	cfg.IncludeNoteName = settings.NoteNameFirst
	cfg.TitleProperty = "title"
	cfg.Sep = " > "
	svc := newService(t, cfg)

	res, err := svc.Compose(context.Background(), "[[Project#Tasks]]", models.Position{Ch: 17})
	require.NoError(t, err)
	assert.Equal(t, "[[Project#Tasks|Big Project > Tasks]]", res.Text)
}

func TestCompose_BadCursor(t *testing.T) {
	svc := newService(t, settings.Defaults())
	_, err := svc.Compose(context.Background(), "abc", models.Position{Ch: 9})
	assert.True(t, errors.Is(err, apperr.ErrInvalidPosition))
}

func TestSuggest(t *testing.T) {
	svc := newService(t, settings.Defaults())
	line := "[[Project#Tasks]]"

	res, err := svc.Suggest(context.Background(), line, models.Position{Ch: len(line)})
	require.NoError(t, err)
	require.NotNil(t, res.Trigger)
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, "Tasks", res.Candidates[0].DisplayText)
	assert.Equal(t, "Project Tasks", res.Candidates[1].DisplayText)
	assert.Equal(t, "Tasks Project", res.Candidates[2].DisplayText)

	res, err = svc.Suggest(context.Background(), "plain", models.Position{Ch: 5})
	require.NoError(t, err)
	assert.Nil(t, res.Trigger)
	assert.Empty(t, res.Candidates)
}

func TestFill(t *testing.T) {
	svc := newService(t, settings.Defaults())
	res := svc.Fill(context.Background(), "a [[Project#Tasks]] b\n```\n[[Project#Tasks]]\n```\n")
	assert.Equal(t, 1, res.Edits)
	assert.Equal(t, "a [[Project#Tasks|Tasks]] b\n```\n[[Project#Tasks]]\n```\n", res.Text)
}

func TestFillNote_Write(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, settings.Defaults())
	require.NoError(t, svc.opts.Store.Write("links.md", []byte("[[Errand#Shopping]]\n")))

	res, err := svc.FillNote(ctx, "links.md", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Edits)
	assert.False(t, res.Wrote)
	data, err := svc.opts.Store.Read("links.md")
	require.NoError(t, err)
	assert.Equal(t, "[[Errand#Shopping]]\n", string(data), "dry run leaves the note alone")

	res, err = svc.FillNote(ctx, "links.md", true)
	require.NoError(t, err)
	assert.True(t, res.Wrote)
	data, err = svc.opts.Store.Read("links.md")
	require.NoError(t, err)
	assert.Equal(t, "[[Errand#Shopping|Shopping]]\n", string(data))

	res, err = svc.FillNote(ctx, "links.md", true)
	require.NoError(t, err)
	assert.Zero(t, res.Edits)
	assert.False(t, res.Wrote)
}

func TestFillNote_Missing(t *testing.T) {
	svc := newService(t, settings.Defaults())
	_, err := svc.FillNote(context.Background(), "nope.md", false)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestResolveTitle(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, settings.Defaults())

	got, err := svc.ResolveTitle(ctx, "Project", "title")
	require.NoError(t, err)
	assert.Equal(t, "Big Project", got)

	got, err = svc.ResolveTitle(ctx, "Project", "")
	require.NoError(t, err)
	assert.Equal(t, "Project", got, "no property configured")
}

func TestHeadings(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, settings.Defaults())

	hs, err := svc.Headings(ctx, "Errand")
	require.NoError(t, err)
	assert.Equal(t, []models.Heading{{Level: 1, Text: "Shopping"}}, hs)

	_, err = svc.Headings(ctx, "Missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
