package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/gateway"
)

type editChatRequest struct {
	Message         string `json:"message"`
	SourceImagePath string `json:"source_image_path"`
	CharacterID     string `json:"character_id,omitempty"`
}

type editConfirmRequest struct {
	AspectRatio  string `json:"aspect_ratio,omitempty"`
	EditedPrompt string `json:"edited_prompt,omitempty"`
}

type directEditRequest struct {
	Prompt          string `json:"prompt"`
	SourceImagePath string `json:"source_image_path"`
	CharacterID     string `json:"character_id,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
}

type saveEditRequest struct {
	ImageURL    string         `json:"image_url"`
	CharacterID string         `json:"character_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (a *App) EditChat(w http.ResponseWriter, r *http.Request) {
	var req editChatRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.Session.SetCharacter(req.CharacterID)

	resp, err := a.Session.SendEditMessage(r.Context(), req.Message, req.SourceImagePath)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.watch(resp.SessionID, resp.ActiveTask)
	a.json(w, http.StatusOK, a.chatView(resp))
}

func (a *App) EditConfirm(w http.ResponseWriter, r *http.Request) {
	var req editConfirmRequest
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.Session.Confirm(r.Context(), req.AspectRatio, "", req.EditedPrompt)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.watch(resp.SessionID, resp.ActiveTask)
	a.json(w, http.StatusOK, a.chatView(resp))
}

// DirectEdit skips the conversational flow and applies one prompt to one
// source image. The finished edit is recorded as a local task so the result
// shows up in the task pane alongside backend jobs.
func (a *App) DirectEdit(w http.ResponseWriter, r *http.Request) {
	var req directEditRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.fail(w, domain.ErrEmptyMessage)
		return
	}
	if strings.TrimSpace(req.SourceImagePath) == "" {
		a.fail(w, domain.ErrSourceImageRequired)
		return
	}

	resp, err := a.Gateway.DirectEdit(r.Context(), gateway.DirectEditRequest{
		Prompt:          req.Prompt,
		SourceImagePath: req.SourceImagePath,
		CharacterID:     req.CharacterID,
		AspectRatio:     req.AspectRatio,
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	taskID := "edit-" + uuid.NewString()[:8]
	a.Tracker.Register(domain.GenerationTask{
		TaskID:    taskID,
		Status:    domain.TaskStatusCompleted,
		Progress:  100,
		Stage:     "completed",
		Prompt:    req.Prompt,
		ResultURL: resp.ImageURL,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})

	a.json(w, http.StatusOK, map[string]any{
		"success":   resp.Success,
		"task_id":   taskID,
		"image_id":  resp.ImageID,
		"image_url": resp.ImageURL,
		"message":   resp.Message,
		"metadata":  resp.Metadata,
	})
}

func (a *App) SaveEdit(w http.ResponseWriter, r *http.Request) {
	var req saveEditRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.ImageURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image_url required")
		return
	}
	resp, err := a.Gateway.SaveEdit(r.Context(), gateway.SaveEditRequest{
		ImageURL:    req.ImageURL,
		CharacterID: req.CharacterID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, resp)
}
