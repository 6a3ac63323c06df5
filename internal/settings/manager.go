package settings

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/starford/anchorlink/internal/editor"
)

// SeparatorAdvisory is shown while the user's separator contains forbidden characters.
const SeparatorAdvisory = "Separators cannot contain any of the following characters: " + ForbiddenSeparatorChars

// Patch is a partial settings update. Nil fields are left unchanged.
type Patch struct {
	IncludeNoteName *Placement   `json:"includeNoteName,omitempty"`
	TitleProperty   *string      `json:"titleProperty,omitempty"`
	WhichHeadings   *HeadingMode `json:"whichHeadings,omitempty"`
	IncludeNotice   *bool        `json:"includeNotice,omitempty"`
	Sep             *string      `json:"sep,omitempty"`
	Suggest         *bool        `json:"suggest,omitempty"`
	IgnoreEmbedded  *bool        `json:"ignoreEmbedded,omitempty"`
}

// Manager owns the process-wide settings snapshot. Readers take a copy with
// Current; the snapshot is only replaced on explicit settings changes.
type Manager struct {
	store    *Store
	notifier editor.Notifier
	logger   *slog.Logger

	current atomic.Pointer[Settings]

	// mu serializes Apply and guards sepWarning.
	mu         sync.Mutex
	sepWarning editor.Notice
}

// NewManager loads the stored settings and returns a manager serving them.
// A load failure is logged and Defaults are served.
func NewManager(store *Store, notifier editor.Notifier, logger *slog.Logger) *Manager {
	if notifier == nil {
		notifier = editor.NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{store: store, notifier: notifier, logger: logger}

	cfg, err := store.Load()
	if err != nil {
		logger.Warn("settings: load failed, using defaults", slog.String("error", err.Error()))
		cfg = Defaults()
	}
	m.current.Store(&cfg)
	return m
}

// Current returns the active snapshot.
func (m *Manager) Current() Settings {
	return *m.current.Load()
}

// Apply merges p into the current settings, validates the result, swaps the
// snapshot, and saves it without waiting. A separator is sanitized rather
// than rejected. A rejected patch changes nothing, the separator advisory
// included.
func (m *Manager) Apply(p Patch) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.Current()
	if p.IncludeNoteName != nil {
		next.IncludeNoteName = *p.IncludeNoteName
	}
	if p.TitleProperty != nil {
		next.TitleProperty = *p.TitleProperty
	}
	if p.WhichHeadings != nil {
		next.WhichHeadings = *p.WhichHeadings
	}
	if p.IncludeNotice != nil {
		next.IncludeNotice = *p.IncludeNotice
	}
	if p.Suggest != nil {
		next.Suggest = *p.Suggest
	}
	if p.IgnoreEmbedded != nil {
		next.IgnoreEmbedded = *p.IgnoreEmbedded
	}
	sepChanged := false
	if p.Sep != nil {
		next.Sep, sepChanged = SanitizeSeparator(*p.Sep)
	}

	if err := next.Validate(); err != nil {
		return m.Current(), err
	}

	if p.Sep != nil {
		m.setSeparatorAdvisory(sepChanged)
	}
	m.current.Store(&next)
	m.store.Save(next)
	m.logger.Debug("settings: applied",
		slog.String("include_note_name", string(next.IncludeNoteName)),
		slog.String("which_headings", string(next.WhichHeadings)),
		slog.Bool("suggest", next.Suggest))
	return next, nil
}

// SetSeparator sanitizes and applies a new separator and returns the value
// actually stored.
func (m *Manager) SetSeparator(sep string) string {
	next, _ := m.Apply(Patch{Sep: &sep})
	return next.Sep
}

// setSeparatorAdvisory keeps one persistent advisory up while the last
// separator input was invalid and hides it once a valid one arrives.
// Callers hold m.mu.
func (m *Manager) setSeparatorAdvisory(invalid bool) {
	if invalid {
		if m.sepWarning == nil {
			m.sepWarning = m.notifier.Notify(SeparatorAdvisory, editor.Persistent)
		}
		return
	}
	if m.sepWarning != nil {
		m.sepWarning.Hide()
		m.sepWarning = nil
	}
}

// Reload re-reads the settings file, e.g. after an external edit.
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.store.Load()
	if err != nil {
		return err
	}
	m.current.Store(&cfg)
	m.logger.Info("settings: reloaded", slog.String("path", m.store.Path()))
	return nil
}

// Wait blocks until pending saves are on disk.
func (m *Manager) Wait() {
	m.store.Wait()
}
