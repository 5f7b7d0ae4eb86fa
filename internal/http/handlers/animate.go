package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"studio/internal/domain"
	"studio/internal/gateway"
)

type analyzeRequest struct {
	ImageID  string `json:"image_id,omitempty"`
	ImageURL string `json:"image_url"`
}

type animateRequest struct {
	ImageID                string  `json:"image_id,omitempty"`
	ImageURL               string  `json:"image_url"`
	CharacterID            string  `json:"character_id,omitempty"`
	Prompt                 string  `json:"prompt"`
	ReferenceVideoURL      string  `json:"reference_video_url,omitempty"`
	ReferenceVideoDuration float64 `json:"reference_video_duration,omitempty"`
	AddSubtitles           bool    `json:"add_subtitles,omitempty"`
}

type motionTypeView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var titleCaser = cases.Title(language.English)

func motionLabel(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func (a *App) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.ImageURL == "" && req.ImageID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image_url or image_id required")
		return
	}

	resp, err := a.Gateway.AnalyzeImage(r.Context(), gateway.AnalyzeRequest{
		ImageID:  req.ImageID,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	motions := make([]motionTypeView, 0, len(resp.SuggestedMotionTypes))
	for _, value := range resp.SuggestedMotionTypes {
		motions = append(motions, motionTypeView{Value: value, Label: motionLabel(value)})
	}
	a.json(w, http.StatusOK, map[string]any{
		"suggested_prompt": resp.SuggestedPrompt,
		"image_analysis":   resp.ImageAnalysis,
		"motion_types":     motions,
	})
}

// Animate starts a video generation from an existing image and records it as
// a local task keyed by a synthetic id.
func (a *App) Animate(w http.ResponseWriter, r *http.Request) {
	var req animateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.ImageURL == "" && req.ImageID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image_url or image_id required")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.fail(w, domain.ErrEmptyMessage)
		return
	}

	resp, err := a.Gateway.Animate(r.Context(), gateway.AnimateRequest{
		ImageID:                req.ImageID,
		ImageURL:               req.ImageURL,
		CharacterID:            req.CharacterID,
		Prompt:                 req.Prompt,
		ReferenceVideoURL:      req.ReferenceVideoURL,
		ReferenceVideoDuration: req.ReferenceVideoDuration,
		AddSubtitles:           req.AddSubtitles,
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	taskID := "anim-" + uuid.NewString()[:8]
	a.Tracker.Register(domain.GenerationTask{
		TaskID:    taskID,
		Status:    domain.TaskStatusCompleted,
		Progress:  100,
		Stage:     "completed",
		Prompt:    req.Prompt,
		ResultURL: resp.VideoURL,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})

	a.json(w, http.StatusOK, map[string]any{
		"success":   resp.Success,
		"task_id":   taskID,
		"video_id":  resp.VideoID,
		"video_url": resp.VideoURL,
		"message":   resp.Message,
	})
}
