// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes anchorlink tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/anchorlink/internal/models"
	"github.com/starford/anchorlink/internal/noteservice"
	"github.com/starford/anchorlink/internal/storage"
)

const rulesURI = "anchorlink://display-rules"

// Server wraps the MCP server with anchorlink tools.
type Server struct {
	mcp   *server.MCPServer
	notes *noteservice.Service
	store storage.Provider
}

// New creates a new MCP server with all anchorlink tools registered.
// store may be nil, which disables list_notes results.
func New(notes *noteservice.Service, store storage.Provider) *Server {
	s := &Server{notes: notes, store: store}

	s.mcp = server.NewMCPServer(
		"anchorlink",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("compose_display_text",
		mcp.WithDescription("Add display text to the anchor link whose closing ]] sits right before the cursor, "+
			"using the current settings. Returns the new text and whether anything was inserted."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Markdown text containing the link")),
		mcp.WithNumber("line", mcp.Description("Zero-based cursor line (default: last line)")),
		mcp.WithNumber("ch", mcp.Description("Zero-based cursor column in bytes (default: end of line)")),
	), s.composeDisplayText)

	s.mcp.AddTool(mcp.NewTool("suggest_display_text",
		mcp.WithDescription("List the display text candidates offered for the anchor link right before the cursor."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Markdown text containing the link")),
		mcp.WithNumber("line", mcp.Description("Zero-based cursor line (default: last line)")),
		mcp.WithNumber("ch", mcp.Description("Zero-based cursor column in bytes (default: end of line)")),
	), s.suggestDisplayText)

	s.mcp.AddTool(mcp.NewTool("fill_display_text",
		mcp.WithDescription("Add display text to every anchor link without one, outside code fences. "+
			"Pass text, or path to fill a vault note."),
		mcp.WithString("text", mcp.Description("Markdown text to fill")),
		mcp.WithString("path", mcp.Description("Relative path of a vault note to fill instead of text")),
		mcp.WithBoolean("write", mcp.Description("Write the filled note back to the vault (path only)")),
	), s.fillDisplayText)

	s.mcp.AddTool(mcp.NewTool("resolve_title",
		mcp.WithDescription("Resolve the name anchorlink shows for a note: the frontmatter property "+
			"when set on the note, otherwise the note name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name or linkpath as written in the link")),
		mcp.WithString("property", mcp.Description("Frontmatter property (default: configured titleProperty)")),
	), s.resolveTitle)

	s.mcp.AddTool(mcp.NewTool("list_headings",
		mcp.WithDescription("List the headings of a note, to build [[Note#Heading]] links."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name or linkpath")),
	), s.listHeadings)

	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Return the current display text settings."),
	), s.getSettings)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_display_rules",
		mcp.WithDescription("Returns the rules anchorlink follows when writing display text."),
	), s.getDisplayRules)

	s.mcp.AddResource(
		mcp.NewResource(rulesURI, "Display Text Rules",
			mcp.WithResourceDescription("How anchorlink composes display text for anchor links."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
	)

	return s
}

// ServeStdio serves on stdin/stdout until stdin closes or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads JSON-RPC requests from in and writes responses to out until in
// is exhausted or ctx is cancelled. Cancellation is not an error.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(s.mcp).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// cursorArg reads the optional line/ch arguments. Missing values place the
// cursor at the end of the text.
func cursorArg(req mcp.CallToolRequest, text string) models.Position {
	lines := strings.Split(text, "\n")
	line := req.GetInt("line", len(lines)-1)
	ch := -1
	if line >= 0 && line < len(lines) {
		ch = len(lines[line])
	}
	return models.Position{Line: line, Ch: req.GetInt("ch", ch)}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) composeDisplayText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.notes.Compose(ctx, text, cursorArg(req, text))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) suggestDisplayText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.notes.Suggest(ctx, text, cursorArg(req, text))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) fillDisplayText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text or path is required"), nil
		}
		return jsonResult(s.notes.Fill(ctx, text))
	}
	res, err := s.notes.FillNote(ctx, path, req.GetBool("write", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fill %s: %v", path, err)), nil
	}
	return jsonResult(res)
}

func (s *Server) resolveTitle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// A failed lookup still yields the raw name.
	title, _ := s.notes.ResolveTitle(ctx, name, req.GetString("property", ""))
	return mcp.NewToolResultText(title), nil
}

func (s *Server) listHeadings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hs, err := s.notes.Headings(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	if len(hs) == 0 {
		return mcp.NewToolResultText("no headings found"), nil
	}
	var b strings.Builder
	for _, h := range hs {
		b.WriteString(strings.Repeat("#", h.Level))
		b.WriteByte(' ')
		b.WriteString(h.Text)
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(strings.TrimSuffix(b.String(), "\n")), nil
}

func (s *Server) getSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.notes.Settings())
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("no vault configured"), nil
	}
	metas, err := s.store.List(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getDisplayRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DisplayRules), nil
}

func (s *Server) readRulesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      rulesURI,
			MIMEType: "text/markdown",
			Text:     DisplayRules,
		},
	}, nil
}
