// Package autoinsert fills in display text for an anchor link as soon as its
// closing ]] is typed.
package autoinsert

import (
	"log/slog"
	"strings"
	"time"

	"github.com/starford/anchorlink/internal/display"
	"github.com/starford/anchorlink/internal/editor"
	"github.com/starford/anchorlink/internal/metrics"
	"github.com/starford/anchorlink/internal/models"
	"github.com/starford/anchorlink/internal/parser"
	"github.com/starford/anchorlink/internal/settings"
)

// Notice is shown after an automatic insert when includeNotice is on.
const Notice = "Updated anchor link display text."

// NoticeDuration is how long the notice stays up.
const NoticeDuration = 5 * time.Second

// Controller reacts to buffer changes.
type Controller struct {
	resolver editor.TitleResolver
	notifier editor.Notifier
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New creates a controller. Nil collaborators are replaced with no-ops.
func New(resolver editor.TitleResolver, notifier editor.Notifier, logger *slog.Logger, rec metrics.Recorder) *Controller {
	if resolver == nil {
		resolver = editor.IdentityResolver{}
	}
	if notifier == nil {
		notifier = editor.NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Controller{resolver: resolver, notifier: notifier, logger: logger, recorder: rec}
}

// OnChange runs after every buffer change. If the cursor sits right after
// the ]] of an anchor link with no display text, the composed display text
// is inserted before the ]] and true is returned. A second call on the same
// buffer finds the | and does nothing.
func (c *Controller) OnChange(buf editor.Buffer, cfg settings.Settings) bool {
	link, ok := c.insert(buf, cfg)
	if !ok {
		return false
	}
	c.recorder.IncAutoInsert(link.IsEmbed)
	if cfg.IncludeNotice {
		c.notifier.Notify(Notice, NoticeDuration)
	}
	return true
}

func (c *Controller) insert(buf editor.Buffer, cfg settings.Settings) (models.LinkReference, bool) {
	cursor := buf.Cursor()
	m, ok := parser.MatchNoDisplay(buf.Line(cursor.Line), cursor.Ch)
	if !ok {
		return models.LinkReference{}, false
	}
	if m.Link.IsEmbed && cfg.IgnoreEmbedded {
		return models.LinkReference{}, false
	}

	note := display.ResolveNoteName(c.resolver, m.Link.NoteName, cfg.TitleProperty, c.logger)
	text := display.Compose(note, m.Link.HeadingPath, display.OptionsFrom(cfg))

	at := models.Position{Line: cursor.Line, Ch: m.Close}
	buf.ReplaceRange("|"+text, at, at, editor.OriginDisplayText)
	c.logger.Debug("autoinsert: display text added",
		slog.String("note", m.Link.NoteName),
		slog.String("at", at.String()),
		slog.String("text", text))
	return m.Link, true
}

// Fill runs the insert path once for every ]] in text, outside fenced code
// blocks, as if the cursor had just been placed after it. It returns the new
// text and the number of links filled. No notices are shown.
func (c *Controller) Fill(text string, cfg settings.Settings) (string, int) {
	doc := editor.NewDocument(text)
	filled := 0
	inFence := false

	for n := 0; n < doc.LineCount(); n++ {
		trim := strings.TrimSpace(doc.Line(n))
		if strings.HasPrefix(trim, "```") || strings.HasPrefix(trim, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		from := 0
		for {
			line := doc.Line(n)
			idx := strings.Index(line[from:], "]]")
			if idx < 0 {
				break
			}
			end := from + idx + 2
			if err := doc.SetCursor(models.Position{Line: n, Ch: end}); err != nil {
				break
			}
			if link, ok := c.insert(doc, cfg); ok {
				filled++
				c.recorder.IncAutoInsert(link.IsEmbed)
				end = doc.Cursor().Ch
			}
			from = end
		}
	}

	if filled > 0 {
		c.logger.Info("autoinsert: filled document", slog.Int("links", filled))
	}
	return doc.Text(), filled
}
