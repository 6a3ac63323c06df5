// Package session keeps in-memory editing sessions. Every operation on every
// session runs to completion on one dispatch goroutine, so the display-text
// core sees one event at a time no matter how many callers there are.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/starford/anchorlink/internal/apperr"
	"github.com/starford/anchorlink/internal/autoinsert"
	"github.com/starford/anchorlink/internal/checksum"
	"github.com/starford/anchorlink/internal/editor"
	"github.com/starford/anchorlink/internal/index"
	"github.com/starford/anchorlink/internal/metrics"
	"github.com/starford/anchorlink/internal/models"
	"github.com/starford/anchorlink/internal/settings"
	"github.com/starford/anchorlink/internal/sse"
	"github.com/starford/anchorlink/internal/storage"
	"github.com/starford/anchorlink/internal/suggest"
)

// ErrClosed is returned once the service has been closed.
var ErrClosed = errors.New("session: service closed")

// SettingsSource hands out the current settings snapshot.
type SettingsSource interface {
	Current() settings.Settings
}

// Options configures a Service. Only Settings is required.
type Options struct {
	Settings SettingsSource
	Resolver editor.TitleResolver
	Store    storage.Provider
	Index    index.NoteIndex
	Broker   *sse.Broker
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// OpenRequest opens a session on free text or on a vault note.
type OpenRequest struct {
	Text   string           `json:"text"`
	Path   string           `json:"path,omitempty"`
	Cursor *models.Position `json:"cursor,omitempty"`
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID         string             `json:"id"`
	Path       string             `json:"path,omitempty"`
	Text       string             `json:"text"`
	Cursor     models.Position    `json:"cursor"`
	Version    int                `json:"version"`
	Trigger    *suggest.Trigger   `json:"trigger,omitempty"`
	Candidates []models.Candidate `json:"candidates,omitempty"`
	Suppressed *models.Position   `json:"suppressed,omitempty"`
}

type session struct {
	id      string
	path    string
	baseSum string
	doc     *editor.Document
	trig    *suggest.Session
	ctl     *autoinsert.Controller
	open    *suggest.Trigger
	cands   []models.Candidate
	version int
}

// Service owns all sessions.
type Service struct {
	opts Options

	reqCh   chan func(map[string]*session)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New starts a service.
func New(opts Options) *Service {
	if opts.Resolver == nil {
		opts.Resolver = editor.IdentityResolver{}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Service{
		opts:    opts,
		reqCh:   make(chan func(map[string]*session)),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Service) run() {
	defer close(s.stopped)
	sessions := make(map[string]*session)
	for {
		select {
		case <-s.stopCh:
			s.opts.Recorder.SetOpenSessions(0)
			return
		case fn := <-s.reqCh:
			fn(sessions)
			s.opts.Recorder.SetOpenSessions(len(sessions))
		}
	}
}

// Close stops the dispatch loop. Pending and later calls fail with ErrClosed.
func (s *Service) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	<-s.stopped
}

// do runs fn on the dispatch goroutine and waits for it.
func (s *Service) do(ctx context.Context, fn func(map[string]*session) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	done := make(chan error, 1)
	req := func(m map[string]*session) { done <- fn(m) }

	select {
	case s.reqCh <- req:
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-s.stopped:
		return ErrClosed
	}
}

// withSession runs fn against session id.
func (s *Service) withSession(ctx context.Context, id string, fn func(*session) error) error {
	return s.do(ctx, func(m map[string]*session) error {
		sess, ok := m[id]
		if !ok {
			return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
		}
		return fn(sess)
	})
}

// Open creates a session. When req.Path is set the note is read from the
// vault and req.Text is ignored.
func (s *Service) Open(ctx context.Context, req OpenRequest) (Snapshot, error) {
	text := req.Text
	var baseSum string
	if req.Path != "" {
		if s.opts.Store == nil {
			return Snapshot{}, fmt.Errorf("session: open %s: no vault configured: %w", req.Path, apperr.ErrNotFound)
		}
		data, err := s.opts.Store.Read(req.Path)
		if err != nil {
			return Snapshot{}, err
		}
		text = string(data)
		baseSum = checksum.Sum(data)
	}

	id := uuid.NewString()
	doc := editor.NewDocument(text)
	if req.Cursor != nil {
		if err := doc.SetCursor(*req.Cursor); err != nil {
			return Snapshot{}, err
		}
	}

	var notifier editor.Notifier = editor.NopNotifier{}
	if s.opts.Broker != nil {
		notifier = sse.NewNotifier(s.opts.Broker, id)
	}
	sess := &session{
		id:      id,
		path:    req.Path,
		baseSum: baseSum,
		doc:     doc,
		trig:    suggest.NewSession(s.opts.Recorder),
		ctl:     autoinsert.New(s.opts.Resolver, notifier, s.opts.Logger, s.opts.Recorder),
	}
	doc.OnChange(func(c editor.Change) { s.changed(sess, c) })

	var snap Snapshot
	err := s.do(ctx, func(m map[string]*session) error {
		m[id] = sess
		snap = sess.snapshot()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.opts.Logger.Info("session: opened", slog.String("id", id), slog.String("path", req.Path))
	return snap, nil
}

// Get returns the current state of a session.
func (s *Service) Get(ctx context.Context, id string) (Snapshot, error) {
	var snap Snapshot
	err := s.withSession(ctx, id, func(sess *session) error {
		snap = sess.snapshot()
		return nil
	})
	return snap, err
}

// Type inserts text at the cursor as user input, then delivers the
// buffer-change event to the auto-insert controller and the cursor event to
// the suggestion trigger.
func (s *Service) Type(ctx context.Context, id, text string) (Snapshot, error) {
	var snap Snapshot
	err := s.withSession(ctx, id, func(sess *session) error {
		cfg := s.opts.Settings.Current()
		at := sess.doc.Cursor()
		sess.doc.ReplaceRange(text, at, at, editor.OriginInput)
		sess.ctl.OnChange(sess.doc, cfg)
		s.evaluate(sess, cfg)
		snap = sess.snapshot()
		return nil
	})
	return snap, err
}

// MoveCursor places the cursor and evaluates the suggestion trigger there.
func (s *Service) MoveCursor(ctx context.Context, id string, pos models.Position) (Snapshot, error) {
	var snap Snapshot
	err := s.withSession(ctx, id, func(sess *session) error {
		if err := sess.doc.SetCursor(pos); err != nil {
			return err
		}
		s.evaluate(sess, s.opts.Settings.Current())
		snap = sess.snapshot()
		return nil
	})
	return snap, err
}

// Accept applies candidate index of the open suggestion. The cursor ends up
// after the inserted text, where the next trigger evaluation is suppressed.
func (s *Service) Accept(ctx context.Context, id string, candidate int) (Snapshot, error) {
	var snap Snapshot
	err := s.withSession(ctx, id, func(sess *session) error {
		if sess.open == nil {
			return fmt.Errorf("session %s: %w", id, apperr.ErrNoSuggestion)
		}
		if candidate < 0 || candidate >= len(sess.cands) {
			return fmt.Errorf("session %s: candidate %d of %d: %w", id, candidate, len(sess.cands), apperr.ErrNoSuggestion)
		}
		end := sess.trig.Accept(sess.doc, *sess.open, sess.cands[candidate])
		sess.open, sess.cands = nil, nil
		if err := sess.doc.SetCursor(end); err != nil {
			return err
		}
		s.evaluate(sess, s.opts.Settings.Current())
		snap = sess.snapshot()
		return nil
	})
	return snap, err
}

// Save writes the session text back to its note, or to path when given.
// Saving over a note that changed on disk since it was opened fails with
// apperr.ErrConflict unless force is set.
func (s *Service) Save(ctx context.Context, id, path string, force bool) (Snapshot, error) {
	if s.opts.Store == nil {
		return Snapshot{}, fmt.Errorf("session: save: no vault configured: %w", apperr.ErrConflict)
	}
	var snap Snapshot
	err := s.withSession(ctx, id, func(sess *session) error {
		target := path
		if target == "" {
			target = sess.path
		}
		if target == "" {
			return fmt.Errorf("session %s: save: no note path: %w", id, apperr.ErrConflict)
		}

		if !force && target == sess.path && sess.baseSum != "" {
			existing, err := s.opts.Store.Read(target)
			if err != nil && !errors.Is(err, apperr.ErrNotFound) {
				return err
			}
			if err == nil && checksum.Sum(existing) != sess.baseSum {
				return fmt.Errorf("session %s: %s changed on disk: %w", id, target, apperr.ErrConflict)
			}
		}

		data := []byte(sess.doc.Text())
		if err := s.opts.Store.Write(target, data); err != nil {
			return err
		}
		if s.opts.Index != nil {
			if err := index.IndexNote(s.opts.Index, target, data); err != nil {
				s.opts.Logger.Warn("session: reindex failed", slog.String("path", target), slog.String("error", err.Error()))
			}
		}
		sess.path = target
		sess.baseSum = checksum.Sum(data)
		snap = sess.snapshot()
		return nil
	})
	if err == nil {
		s.opts.Logger.Info("session: saved", slog.String("id", id), slog.String("path", snap.Path))
	}
	return snap, err
}

// CloseSession discards a session.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	err := s.do(ctx, func(m map[string]*session) error {
		if _, ok := m[id]; !ok {
			return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
		}
		delete(m, id)
		return nil
	})
	if err == nil {
		s.opts.Logger.Info("session: closed", slog.String("id", id))
	}
	return err
}

// Count returns the number of open sessions.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, func(m map[string]*session) error {
		n = len(m)
		return nil
	})
	return n, err
}

// evaluate runs the trigger state machine at the cursor and refreshes the
// open suggestion.
func (s *Service) evaluate(sess *session, cfg settings.Settings) {
	t, ok := sess.trig.Evaluate(sess.doc, cfg)
	if !ok {
		sess.open, sess.cands = nil, nil
		return
	}
	sess.open = t
	sess.cands = suggest.Candidates(*t, cfg, s.opts.Resolver, s.opts.Logger)
	s.publish(sess, sse.TypeSuggestOpened, map[string]interface{}{
		"trigger":    t,
		"candidates": sess.cands,
	})
}

func (s *Service) changed(sess *session, c editor.Change) {
	sess.version++
	s.publish(sess, sse.TypeDocumentChanged, map[string]interface{}{
		"version": sess.version,
		"change":  c,
	})
}

func (s *Service) publish(sess *session, typ string, data interface{}) {
	if s.opts.Broker == nil {
		return
	}
	s.opts.Broker.Publish(sse.Event{Type: typ, Session: sess.id, Data: data})
}

func (sess *session) snapshot() Snapshot {
	snap := Snapshot{
		ID:      sess.id,
		Path:    sess.path,
		Text:    sess.doc.Text(),
		Cursor:  sess.doc.Cursor(),
		Version: sess.version,
	}
	if sess.open != nil {
		t := *sess.open
		snap.Trigger = &t
		snap.Candidates = append([]models.Candidate(nil), sess.cands...)
	}
	if p, ok := sess.trig.Suppressed(); ok {
		snap.Suppressed = &p
	}
	return snap
}
