package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/anchorlink/internal/noteservice"
	"github.com/starford/anchorlink/internal/settings"
	"github.com/starford/anchorlink/internal/storage"
	"github.com/starford/anchorlink/internal/testutil"
	"github.com/starford/anchorlink/internal/title"
)

type staticSettings settings.Settings

func (s staticSettings) Current() settings.Settings { return settings.Settings(s) }

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	store, db := testutil.IndexedVault(t, map[string]string{
		"Project.md":   "---\nalias: The Project\n---\n# Tasks\n## Open\n",
		"daily/log.md": "[[Project#Tasks]]\n",
	})
	resolver, err := title.New(db, 16, testutil.QuietLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	notes := noteservice.NewService(noteservice.Options{
		Settings: staticSettings(settings.Defaults()),
		Resolver: resolver,
		Store:    store,
		Index:    db,
		Logger:   testutil.QuietLogger(),
	})
	return New(notes, store), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "compose_display_text":
		result, err = srv.composeDisplayText(ctx, req)
	case "suggest_display_text":
		result, err = srv.suggestDisplayText(ctx, req)
	case "fill_display_text":
		result, err = srv.fillDisplayText(ctx, req)
	case "resolve_title":
		result, err = srv.resolveTitle(ctx, req)
	case "list_headings":
		result, err = srv.listHeadings(ctx, req)
	case "get_settings":
		result, err = srv.getSettings(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestComposeDisplayText(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "compose_display_text", map[string]interface{}{
		"text": "intro\nsee [[Project#Tasks#Open]]",
	})
	var res noteservice.ComposeResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v (%s)", err, resultText(r))
	}
	if !res.Inserted || res.Text != "intro\nsee [[Project#Tasks#Open|Tasks Open]]" {
		t.Errorf("compose = %+v", res)
	}
}

func TestComposeDisplayText_ExplicitCursor(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "compose_display_text", map[string]interface{}{
		"text": "[[Project#Tasks]] tail",
		"line": float64(0),
		"ch":   float64(17),
	})
	var res noteservice.ComposeResult
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if res.Text != "[[Project#Tasks|Tasks]] tail" {
		t.Errorf("compose = %q", res.Text)
	}

	r = callTool(t, srv, "compose_display_text", map[string]interface{}{
		"text": "abc",
		"ch":   float64(40),
	})
	if !r.IsError {
		t.Error("expected error for cursor past end of line")
	}
}

func TestSuggestDisplayText(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "suggest_display_text", map[string]interface{}{"text": "[[Project#Tasks#Open]]"})
	var res noteservice.SuggestResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("candidates = %d, want 3", len(res.Candidates))
	}
	if res.Candidates[2].DisplayText != "Tasks Open Project" {
		t.Errorf("candidate 2 = %q", res.Candidates[2].DisplayText)
	}
}

func TestFillDisplayText(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "fill_display_text", map[string]interface{}{"text": "[[Project#Tasks]]"})
	if !strings.Contains(resultText(r), `"edits": 1`) {
		t.Errorf("fill text = %s", resultText(r))
	}

	r = callTool(t, srv, "fill_display_text", map[string]interface{}{"path": "daily/log.md", "write": true})
	if r.IsError {
		t.Fatalf("fill note: %s", resultText(r))
	}
	data, _ := store.Read("daily/log.md")
	if string(data) != "[[Project#Tasks|Tasks]]\n" {
		t.Errorf("note after fill = %q", data)
	}

	r = callTool(t, srv, "fill_display_text", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without text or path")
	}
}

func TestResolveTitle(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "resolve_title", map[string]interface{}{"name": "Project", "property": "alias"})
	if got := resultText(r); got != "The Project" {
		t.Errorf("title = %q", got)
	}
	r = callTool(t, srv, "resolve_title", map[string]interface{}{"name": "Project"})
	if got := resultText(r); got != "Project" {
		t.Errorf("title without property = %q", got)
	}
}

func TestListHeadings(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_headings", map[string]interface{}{"name": "Project"})
	if got := resultText(r); got != "# Tasks\n## Open" {
		t.Errorf("headings = %q", got)
	}
	r = callTool(t, srv, "list_headings", map[string]interface{}{"name": "Ghost"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetSettings(t *testing.T) {
	srv, _ := testServer(t)

	var got settings.Settings
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "get_settings", nil))), &got); err != nil {
		t.Fatal(err)
	}
	if got != settings.Defaults() {
		t.Errorf("settings = %+v", got)
	}
}

func TestListNotes(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_notes", map[string]interface{}{"folder": "daily"})
	if got := resultText(r); got != "daily/log.md" {
		t.Errorf("list = %q", got)
	}
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	srv, _ := testServer(t)

	in, inW := io.Pipe()
	defer inW.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, in, io.Discard) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve after cancel: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

func TestServe_StopsOnEOF(t *testing.T) {
	srv, _ := testServer(t)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), strings.NewReader(""), io.Discard) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve at EOF: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return at end of input")
	}
}
