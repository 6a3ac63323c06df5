// Package noteservice exposes the stateless display-text operations shared by
// the HTTP API and the MCP server: composing, suggesting and filling display
// text for anchor links, plus the vault lookups behind them.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/anchorlink/internal/apperr"
	"github.com/starford/anchorlink/internal/autoinsert"
	"github.com/starford/anchorlink/internal/editor"
	"github.com/starford/anchorlink/internal/index"
	"github.com/starford/anchorlink/internal/metrics"
	"github.com/starford/anchorlink/internal/models"
	"github.com/starford/anchorlink/internal/settings"
	"github.com/starford/anchorlink/internal/storage"
	"github.com/starford/anchorlink/internal/suggest"
)

// SettingsSource hands out the current settings snapshot.
type SettingsSource interface {
	Current() settings.Settings
}

// Options configures a Service. Store and Index may be nil when no vault is
// attached; the operations that need them then fail with apperr.ErrNotFound.
type Options struct {
	Settings SettingsSource
	Resolver editor.TitleResolver
	Store    storage.Provider
	Index    index.NoteIndex
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// ComposeResult is the outcome of running auto-insert on a text.
type ComposeResult struct {
	Text     string          `json:"text"`
	Cursor   models.Position `json:"cursor"`
	Inserted bool            `json:"inserted"`
}

// SuggestResult is the open suggestion at a cursor, if any.
type SuggestResult struct {
	Trigger    *suggest.Trigger   `json:"trigger,omitempty"`
	Candidates []models.Candidate `json:"candidates"`
}

// FillResult is a text with every bare anchor link filled in.
type FillResult struct {
	Path  string `json:"path,omitempty"`
	Text  string `json:"text"`
	Edits int    `json:"edits"`
	Wrote bool   `json:"wrote,omitempty"`
}

// Service runs display-text operations against the current settings.
type Service struct {
	opts Options
	ctl  *autoinsert.Controller
}

// NewService creates a new note service.
func NewService(opts Options) *Service {
	if opts.Resolver == nil {
		opts.Resolver = editor.IdentityResolver{}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		opts: opts,
		ctl:  autoinsert.New(opts.Resolver, nil, opts.Logger, opts.Recorder),
	}
}

// Settings returns the active settings snapshot.
func (s *Service) Settings() settings.Settings {
	return s.opts.Settings.Current()
}

// Compose places the cursor in text and runs auto-insert once, as if the
// text before the cursor had just been typed.
func (s *Service) Compose(_ context.Context, text string, cursor models.Position) (ComposeResult, error) {
	doc := editor.NewDocument(text)
	if err := doc.SetCursor(cursor); err != nil {
		return ComposeResult{}, err
	}
	inserted := s.ctl.OnChange(doc, s.Settings())
	return ComposeResult{Text: doc.Text(), Cursor: doc.Cursor(), Inserted: inserted}, nil
}

// Suggest evaluates the suggestion trigger at cursor on a fresh session and
// returns the candidates it would offer.
func (s *Service) Suggest(_ context.Context, text string, cursor models.Position) (SuggestResult, error) {
	doc := editor.NewDocument(text)
	if err := doc.SetCursor(cursor); err != nil {
		return SuggestResult{}, err
	}
	cfg := s.Settings()
	t, ok := suggest.NewSession(s.opts.Recorder).Evaluate(doc, cfg)
	if !ok {
		return SuggestResult{Candidates: []models.Candidate{}}, nil
	}
	return SuggestResult{
		Trigger:    t,
		Candidates: suggest.Candidates(*t, cfg, s.opts.Resolver, s.opts.Logger),
	}, nil
}

// Fill adds display text to every anchor link in text that has none.
func (s *Service) Fill(_ context.Context, text string) FillResult {
	out, n := s.ctl.Fill(text, s.Settings())
	return FillResult{Text: out, Edits: n}
}

// FillNote fills a vault note. With write set, a changed note is written back
// and re-indexed.
func (s *Service) FillNote(ctx context.Context, path string, write bool) (FillResult, error) {
	if s.opts.Store == nil {
		return FillResult{}, fmt.Errorf("fill %s: no vault: %w", path, apperr.ErrNotFound)
	}
	data, err := s.opts.Store.Read(path)
	if err != nil {
		return FillResult{}, err
	}
	res := s.Fill(ctx, string(data))
	res.Path = path
	if !write || res.Edits == 0 {
		return res, nil
	}

	out := []byte(res.Text)
	if err := s.opts.Store.Write(path, out); err != nil {
		return res, err
	}
	res.Wrote = true
	if s.opts.Index != nil {
		if err := index.IndexNote(s.opts.Index, path, out); err != nil {
			s.opts.Logger.Warn("fill: reindex failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	s.opts.Logger.Info("fill: note rewritten", slog.String("path", path), slog.Int("links", res.Edits))
	return res, nil
}

// ResolveTitle resolves the display name for a note. An empty property falls
// back to the configured titleProperty.
func (s *Service) ResolveTitle(_ context.Context, name, property string) (string, error) {
	if property == "" {
		property = s.Settings().TitleProperty
	}
	return s.opts.Resolver.ResolveTitle(name, property)
}

// Headings lists the headings of the note a linkpath resolves to.
func (s *Service) Headings(_ context.Context, linkpath string) ([]models.Heading, error) {
	if s.opts.Index == nil {
		return nil, fmt.Errorf("headings %s: no index: %w", linkpath, apperr.ErrNotFound)
	}
	hs, err := s.opts.Index.Headings(linkpath)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(hs), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
