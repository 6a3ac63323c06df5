package sse

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/starford/anchorlink/internal/editor"
)

// NoticePayload is the data of notice.shown and notice.hidden events.
type NoticePayload struct {
	ID         string `json:"id"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Persistent bool   `json:"persistent,omitempty"`
}

// Notifier shows notices by publishing them on a broker. Clients render
// notice.shown and remove the notice on notice.hidden or after DurationMS.
type Notifier struct {
	broker  *Broker
	session string
}

// NewNotifier returns a notifier whose notices go to clients of session;
// an empty session reaches every client.
func NewNotifier(b *Broker, session string) *Notifier {
	return &Notifier{broker: b, session: session}
}

// Notify implements editor.Notifier.
func (n *Notifier) Notify(message string, d time.Duration) editor.Notice {
	p := NoticePayload{
		ID:         uuid.NewString(),
		Message:    message,
		DurationMS: d.Milliseconds(),
		Persistent: d == editor.Persistent,
	}
	n.broker.Publish(Event{Type: TypeNoticeShown, Session: n.session, Data: p})
	return &notice{n: n, id: p.ID}
}

type notice struct {
	n    *Notifier
	id   string
	once sync.Once
}

// Hide publishes notice.hidden the first time it is called.
func (s *notice) Hide() {
	s.once.Do(func() {
		s.n.broker.Publish(Event{Type: TypeNoticeHidden, Session: s.n.session, Data: NoticePayload{ID: s.id}})
	})
}
