package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"studio/internal/storage"
	"studio/pkg/zip"
)

const maxUploadBytes = 10 << 20

// UploadReferenceFile accepts a multipart image upload, stores it locally and
// attaches it as the session's reference image.
func (a *App) UploadReferenceFile(w http.ResponseWriter, r *http.Request) {
	if a.Uploads == nil {
		a.error(w, http.StatusNotImplemented, "uploads_disabled", "upload storage not configured")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable upload")
		return
	}
	if len(data) > maxUploadBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit")
		return
	}

	key, err := a.Uploads.SaveImage(r.Context(), header.Filename, data)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			a.error(w, http.StatusBadRequest, "bad_request", "unsupported image format")
			return
		}
		a.fail(w, err)
		return
	}

	path := "/uploads/" + key
	a.Session.AttachUpload(path)
	a.json(w, http.StatusOK, map[string]any{
		"path":      path,
		"reference": newReferenceView(a.Session.ReferenceState()),
	})
}

// Export bundles the session transcript and the tracked tasks into a zip
// download.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = a.Session.ID()
	}

	messages, err := a.History.Transcript(sessionID, 0)
	if err != nil {
		a.fail(w, err)
		return
	}
	type entry struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	transcript := make([]entry, 0, len(messages))
	for _, m := range messages {
		transcript = append(transcript, entry{Role: m.Role, Content: m.Content})
	}
	transcriptJSON, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		a.fail(w, err)
		return
	}

	active := a.Tracker.ActiveTasks()
	views := make([]taskView, 0, len(active))
	for _, task := range active {
		views = append(views, newTaskView(task))
	}
	tasksJSON, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		a.fail(w, err)
		return
	}

	archive, err := zip.Archive([]zip.Entry{
		{Name: "transcript.json", Data: transcriptJSON},
		{Name: "tasks.json", Data: tasksJSON},
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="session-export.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
