package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeDocumentChanged, Session: "s1", Data: map[string]string{"text": "[[A#b|b]]"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: document.changed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"text":"[[A#b|b]]"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishSessionFilter(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	all := b.Subscribe("")
	one := b.Subscribe("s1")
	two := b.Subscribe("s2")

	b.Publish(Event{Type: TypeDocumentChanged, Session: "s1", Data: map[string]string{}})
	b.Publish(Event{Type: TypeSettingsChanged, Data: map[string]string{}})

	if got := len(drain(all)); got != 2 {
		t.Errorf("unfiltered client got %d events, want 2", got)
	}
	if got := len(drain(one)); got != 2 {
		t.Errorf("s1 client got %d events, want 2", got)
	}
	msgs := drain(two)
	if len(msgs) != 1 || !strings.Contains(msgs[0], TypeSettingsChanged) {
		t.Errorf("s2 client got %v, want only the global event", msgs)
	}
}

func TestPublishNoteEvent_IndexThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("created", "a.md")
	b.PublishNoteEvent("updated", "b.md")

	indexCount, noteCount := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, TypeIndexUpdated) {
			indexCount++
		} else if strings.Contains(s, TypeNoteChanged) {
			noteCount++
		}
	}
	if noteCount != 2 {
		t.Errorf("note events = %d, want 2", noteCount)
	}
	if indexCount != 1 {
		t.Errorf("index events = %d, want 1 (throttled)", indexCount)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?session=abc", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeDocumentChanged, Session: "abc", Data: map[string]string{"id": "abc"}})
	b.Publish(Event{Type: TypeDocumentChanged, Session: "other", Data: map[string]string{"id": "other"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, `"id":"abc"`) {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, `"id":"other"`) {
		t.Errorf("handler delivered another session's event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypeNoteChanged, Data: map[string]string{"path": "x.md"}})
	b.PublishNoteEvent("updated", "x.md")
}
