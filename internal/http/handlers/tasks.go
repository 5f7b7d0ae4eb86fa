package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/gateway"
	"studio/internal/tasks"
)

type taskView struct {
	TaskID            string            `json:"task_id"`
	Status            domain.TaskStatus `json:"status"`
	Progress          int               `json:"progress"`
	Stage             string            `json:"stage"`
	StageLabel        string            `json:"stage_label"`
	Prompt            string            `json:"prompt,omitempty"`
	ReferenceImageURL string            `json:"reference_image_url,omitempty"`
	ResultURL         string            `json:"result_url,omitempty"`
	Error             string            `json:"error,omitempty"`
	CreatedAt         string            `json:"created_at,omitempty"`
}

func newTaskView(task domain.GenerationTask) taskView {
	return taskView{
		TaskID:            task.TaskID,
		Status:            task.Status,
		Progress:          tasks.DisplayProgress(task),
		Stage:             task.Stage,
		StageLabel:        tasks.StageLabel(task.Stage),
		Prompt:            task.Prompt,
		ReferenceImageURL: task.ReferenceImageURL,
		ResultURL:         task.ResultURL,
		Error:             task.Error,
		CreatedAt:         task.CreatedAt,
	}
}

func (a *App) ListTasks(w http.ResponseWriter, r *http.Request) {
	active := a.Tracker.ActiveTasks()
	out := make([]taskView, 0, len(active))
	for _, task := range active {
		out = append(out, newTaskView(task))
	}
	a.json(w, http.StatusOK, map[string]any{"tasks": out})
}

// GetTask returns the current snapshot of one task. Local knowledge wins;
// otherwise the backend is asked. A task nobody knows about is reported as a
// failed snapshot rather than an error, so pollers written against this
// endpoint always converge.
func (a *App) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = a.Session.ID()
	}

	if task, ok := a.Tracker.Get(taskID); ok {
		a.json(w, http.StatusOK, newTaskView(task))
		return
	}

	snapshot, err := a.Gateway.Task(r.Context(), sessionID, taskID)
	if err != nil {
		var apiErr *gateway.APIError
		if errors.Is(err, domain.ErrTaskNotFound) || (errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound) {
			a.json(w, http.StatusOK, newTaskView(domain.GenerationTask{
				TaskID: taskID,
				Status: domain.TaskStatusFailed,
				Stage:  "not_found",
				Error:  "Task not found (server may have restarted)",
			}))
			return
		}
		a.fail(w, err)
		return
	}

	a.Tracker.Observe(*snapshot)
	a.json(w, http.StatusOK, newTaskView(*snapshot))
}

func (a *App) ReleaseTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	a.Tracker.Release(taskID)
	w.WriteHeader(http.StatusNoContent)
}
