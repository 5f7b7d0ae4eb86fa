package gateway

import "studio/internal/domain"

// ChatRequest is one user turn sent to the backend agent.
type ChatRequest struct {
	Message            string                    `json:"message"`
	CharacterID        string                    `json:"character_id,omitempty"`
	SessionID          string                    `json:"session_id,omitempty"`
	ReferenceImagePath string                    `json:"reference_image_path,omitempty"`
	ReferenceImageMode domain.ReferenceImageMode `json:"reference_image_mode,omitempty"`
}

// ChatResponse is the shared response shape of the chat, confirm and
// image-edit endpoints.
type ChatResponse struct {
	Message           string                    `json:"message"`
	SessionID         string                    `json:"session_id"`
	State             domain.ConversationState  `json:"state"`
	PendingGeneration *domain.PendingGeneration `json:"pending_generation,omitempty"`
	PendingEdit       *domain.PendingEdit       `json:"pending_edit,omitempty"`
	ActionTaken       string                    `json:"action_taken,omitempty"`
	Result            map[string]any            `json:"result,omitempty"`
	ActiveTask        *domain.GenerationTask    `json:"active_task,omitempty"`
}

// ConfirmRequest approves a pending generation. The pending plan and
// character id ride along so the backend can rebuild a session lost to a
// restart.
type ConfirmRequest struct {
	SessionID         string                    `json:"session_id"`
	AspectRatio       string                    `json:"aspect_ratio"`
	Modifications     string                    `json:"modifications,omitempty"`
	EditedPrompt      string                    `json:"edited_prompt,omitempty"`
	CharacterID       string                    `json:"character_id,omitempty"`
	PendingGeneration *domain.PendingGeneration `json:"pending_generation,omitempty"`
}

// EditChatRequest is one edit-flow turn keyed on a source image.
type EditChatRequest struct {
	Message         string `json:"message"`
	SourceImagePath string `json:"source_image_path"`
	CharacterID     string `json:"character_id,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
}

// EditConfirmRequest approves a pending image edit.
type EditConfirmRequest struct {
	SessionID    string              `json:"session_id"`
	AspectRatio  string              `json:"aspect_ratio"`
	EditedPrompt string              `json:"edited_prompt,omitempty"`
	CharacterID  string              `json:"character_id,omitempty"`
	PendingEdit  *domain.PendingEdit `json:"pending_edit,omitempty"`
}

// DirectEditRequest fires a prompt+source-image edit without agent analysis.
type DirectEditRequest struct {
	Prompt          string `json:"prompt"`
	SourceImagePath string `json:"source_image_path"`
	CharacterID     string `json:"character_id"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
}

// DirectEditResponse acknowledges a direct edit or a gallery save.
type DirectEditResponse struct {
	Success  bool           `json:"success"`
	ImageID  string         `json:"image_id,omitempty"`
	ImageURL string         `json:"image_url,omitempty"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SaveEditRequest persists an accepted edit result to the gallery.
type SaveEditRequest struct {
	ImageURL    string         `json:"image_url"`
	CharacterID string         `json:"character_id"`
	Metadata    map[string]any `json:"metadata"`
}

// AnalyzeRequest asks the backend to inspect an image for animation.
type AnalyzeRequest struct {
	ImageID  string `json:"image_id"`
	ImageURL string `json:"image_url"`
}

// AnalyzeResponse carries the backend's animation suggestions.
type AnalyzeResponse struct {
	SuggestedPrompt      string   `json:"suggested_prompt"`
	ImageAnalysis        string   `json:"image_analysis"`
	SuggestedMotionTypes []string `json:"suggested_motion_types"`
}

// AnimateRequest starts a video generation from an existing image.
type AnimateRequest struct {
	ImageID                string  `json:"image_id"`
	ImageURL               string  `json:"image_url"`
	CharacterID            string  `json:"character_id"`
	Prompt                 string  `json:"prompt"`
	ReferenceVideoURL      string  `json:"reference_video_url,omitempty"`
	ReferenceVideoDuration float64 `json:"reference_video_duration,omitempty"`
	AddSubtitles           bool    `json:"add_subtitles,omitempty"`
}

// AnimateResponse acknowledges a started animation job.
type AnimateResponse struct {
	Success  bool   `json:"success"`
	VideoID  string `json:"video_id,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	Message  string `json:"message"`
}
