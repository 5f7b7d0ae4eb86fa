package handlers

import (
	"net/http"
	"strconv"

	"studio/internal/domain"
	"studio/internal/gateway"
)

type chatRequest struct {
	Message     string `json:"message"`
	CharacterID string `json:"character_id,omitempty"`
}

type confirmRequest struct {
	AspectRatio   string `json:"aspect_ratio,omitempty"`
	Modifications string `json:"modifications,omitempty"`
	EditedPrompt  string `json:"edited_prompt,omitempty"`
}

type chatView struct {
	Message           string                    `json:"message"`
	SessionID         string                    `json:"session_id"`
	State             domain.ConversationState  `json:"state"`
	PendingGeneration *domain.PendingGeneration `json:"pending_generation,omitempty"`
	PendingEdit       *domain.PendingEdit       `json:"pending_edit,omitempty"`
	ActionTaken       string                    `json:"action_taken,omitempty"`
	Result            map[string]any            `json:"result,omitempty"`
	ActiveTask        *taskView                 `json:"active_task,omitempty"`
}

func (a *App) chatView(resp *gateway.ChatResponse) chatView {
	view := chatView{
		Message:           resp.Message,
		SessionID:         resp.SessionID,
		State:             a.Session.State(),
		PendingGeneration: resp.PendingGeneration,
		PendingEdit:       resp.PendingEdit,
		ActionTaken:       resp.ActionTaken,
		Result:            resp.Result,
	}
	if resp.ActiveTask != nil {
		tv := newTaskView(*resp.ActiveTask)
		view.ActiveTask = &tv
	}
	return view
}

func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.Session.SetCharacter(req.CharacterID)

	resp, err := a.Session.SendMessage(r.Context(), req.Message)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.watch(resp.SessionID, resp.ActiveTask)
	a.json(w, http.StatusOK, a.chatView(resp))
}

func (a *App) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.Session.Confirm(r.Context(), req.AspectRatio, req.Modifications, req.EditedPrompt)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.watch(resp.SessionID, resp.ActiveTask)
	a.json(w, http.StatusOK, a.chatView(resp))
}

func (a *App) Cancel(w http.ResponseWriter, r *http.Request) {
	a.Session.Cancel(r.Context())
	a.json(w, http.StatusOK, map[string]any{
		"message": "cancelled",
		"state":   a.Session.State(),
	})
}

func (a *App) Clear(w http.ResponseWriter, r *http.Request) {
	a.Session.Clear(r.Context())
	a.StopPolling()
	a.Tracker.Reset()
	a.json(w, http.StatusOK, map[string]any{
		"message": "session cleared",
		"state":   a.Session.State(),
	})
}

func (a *App) Transcript(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = a.Session.ID()
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}

	messages, err := a.History.Transcript(sessionID, limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	type entry struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]entry, 0, len(messages))
	for _, m := range messages {
		out = append(out, entry{Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")})
	}
	a.json(w, http.StatusOK, map[string]any{"session_id": sessionID, "messages": out})
}
