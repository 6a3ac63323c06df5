package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/anchorlink/internal/models"
	"github.com/starford/anchorlink/internal/noteservice"
	"github.com/starford/anchorlink/internal/session"
	"github.com/starford/anchorlink/internal/settings"
	"github.com/starford/anchorlink/internal/sse"
)

// SettingsManager reads and updates the display settings.
type SettingsManager interface {
	Current() settings.Settings
	Apply(p settings.Patch) (settings.Settings, error)
}

// Handler holds API route handlers.
type Handler struct {
	notes    *noteservice.Service
	sessions *session.Service
	settings SettingsManager
	broker   *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(notes *noteservice.Service, sessions *session.Service, sm SettingsManager, broker *sse.Broker) *Handler {
	return &Handler{notes: notes, sessions: sessions, settings: sm, broker: broker}
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Open an editing session on a text or a vault note
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	true	"Initial text, note path and cursor"
//	@Success		201		{object}	SessionSnapshot
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.sessions.Open(r.Context(), req)
	if err != nil {
		writeError(w, "open session", err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get the state of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionSnapshot
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// CloseSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Close a session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		204	"Session closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.CloseSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Type handles POST /api/sessions/{id}/type.
//
//	@Summary		Insert text at the cursor
//	@Description	Runs auto-insert on the change, then the suggestion trigger at the new cursor.
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session ID"
//	@Param			body	body		TypeRequest	true	"Typed text"
//	@Success		200		{object}	SessionSnapshot
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/type [post]
func (h *Handler) Type(w http.ResponseWriter, r *http.Request) {
	var req TypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.sessions.Type(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeError(w, "type", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// MoveCursor handles POST /api/sessions/{id}/cursor.
//
//	@Summary		Move the cursor
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		models.Position	true	"New cursor"
//	@Success		200		{object}	SessionSnapshot
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/cursor [post]
func (h *Handler) MoveCursor(w http.ResponseWriter, r *http.Request) {
	var pos models.Position
	if !decodeJSON(w, r, &pos) {
		return
	}
	snap, err := h.sessions.MoveCursor(r.Context(), chi.URLParam(r, "id"), pos)
	if err != nil {
		writeError(w, "move cursor", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Accept handles POST /api/sessions/{id}/accept.
//
//	@Summary		Accept a candidate of the open suggestion
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		AcceptRequest	true	"Candidate index"
//	@Success		200		{object}	SessionSnapshot
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	var req AcceptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.sessions.Accept(r.Context(), chi.URLParam(r, "id"), req.Index)
	if err != nil {
		writeError(w, "accept", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Save handles POST /api/sessions/{id}/save.
//
//	@Summary		Write the session back to the vault
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session ID"
//	@Param			body	body		SaveRequest	false	"Target path and force flag"
//	@Success		200		{object}	SessionSnapshot
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.sessions.Save(r.Context(), chi.URLParam(r, "id"), req.Path, req.Force)
	if err != nil {
		writeError(w, "save", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get the display settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	settings.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Current())
}

// PatchSettings handles PATCH /api/settings.
//
//	@Summary		Update some display settings
//	@Description	Invalid separator characters are stripped; invalid enum values are rejected.
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		settings.Patch	true	"Fields to change"
//	@Success		200		{object}	settings.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [patch]
func (h *Handler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	var p settings.Patch
	if !decodeJSON(w, r, &p) {
		return
	}
	next, err := h.settings.Apply(p)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if h.broker != nil {
		h.broker.Publish(sse.Event{Type: sse.TypeSettingsChanged, Data: next})
	}
	writeJSON(w, http.StatusOK, next)
}

// Compose handles POST /api/compose.
//
//	@Summary		Add display text to the anchor link closed at the cursor
//	@Tags			display
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextAtCursor	true	"Text and cursor"
//	@Success		200		{object}	ComposeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/compose [post]
func (h *Handler) Compose(w http.ResponseWriter, r *http.Request) {
	var req TextAtCursor
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.notes.Compose(r.Context(), req.Text, req.Cursor)
	if err != nil {
		writeError(w, "compose", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Suggest handles POST /api/suggest.
//
//	@Summary		List display text candidates for the anchor link at the cursor
//	@Tags			display
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextAtCursor	true	"Text and cursor"
//	@Success		200		{object}	SuggestResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/suggest [post]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req TextAtCursor
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.notes.Suggest(r.Context(), req.Text, req.Cursor)
	if err != nil {
		writeError(w, "suggest", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Fill handles POST /api/fill.
//
//	@Summary		Add display text to every anchor link that has none
//	@Description	Fills the inline text, or the vault note at path. write=true rewrites the note.
//	@Tags			display
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FillRequest	true	"Text or note path"
//	@Success		200		{object}	FillResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/fill [post]
func (h *Handler) Fill(w http.ResponseWriter, r *http.Request) {
	var req FillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		if req.Write {
			writeJSON(w, http.StatusBadRequest, errorBody("write requires path"))
			return
		}
		writeJSON(w, http.StatusOK, h.notes.Fill(r.Context(), req.Text))
		return
	}
	res, err := h.notes.FillNote(r.Context(), req.Path, req.Write)
	if err != nil {
		writeError(w, "fill", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Headings handles GET /api/notes/headings.
//
//	@Summary		List the headings of a note
//	@Tags			notes
//	@Produce		json
//	@Param			name	query		string	true	"Note name or linkpath"
//	@Success		200		{object}	HeadingsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/headings [get]
func (h *Handler) Headings(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'name' is required"))
		return
	}
	hs, err := h.notes.Headings(r.Context(), name)
	if err != nil {
		writeError(w, "headings", err)
		return
	}
	writeJSON(w, http.StatusOK, HeadingsResponse{Name: name, Headings: hs})
}

// Title handles GET /api/notes/title.
//
//	@Summary		Resolve the display name of a note
//	@Tags			notes
//	@Produce		json
//	@Param			name		query		string	true	"Note name or linkpath"
//	@Param			property	query		string	false	"Frontmatter property, defaults to titleProperty"
//	@Success		200			{object}	TitleResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/title [get]
func (h *Handler) Title(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'name' is required"))
		return
	}
	title, err := h.notes.ResolveTitle(r.Context(), name, q.Get("property"))
	if err != nil {
		// The raw name is still a usable title.
		slog.Warn("title lookup failed", slog.String("name", name), slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, TitleResponse{Name: name, Title: title})
}
