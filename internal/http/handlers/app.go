package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"studio/internal/agent"
	"studio/internal/domain"
	"studio/internal/gateway"
	"studio/internal/history"
	"studio/internal/infra"
	"studio/internal/storage"
	"studio/internal/tasks"
)

// Gateway is the slice of the backend client the handlers call directly.
// Conversation turns go through the session instead.
type Gateway interface {
	Task(ctx context.Context, sessionID, taskID string) (*domain.GenerationTask, error)
	DirectEdit(ctx context.Context, req gateway.DirectEditRequest) (*gateway.DirectEditResponse, error)
	SaveEdit(ctx context.Context, req gateway.SaveEditRequest) (*gateway.DirectEditResponse, error)
	AnalyzeImage(ctx context.Context, req gateway.AnalyzeRequest) (*gateway.AnalyzeResponse, error)
	Animate(ctx context.Context, req gateway.AnimateRequest) (*gateway.AnimateResponse, error)
}

type App struct {
	Logger  infra.Logger
	Session *agent.Session
	Tracker *tasks.Tracker
	Poller  *tasks.Poller
	Gateway Gateway
	History *history.Store
	Uploads *storage.FileStore

	mu    sync.Mutex
	polls map[string]func()
}

func NewApp(logger infra.Logger, session *agent.Session, tracker *tasks.Tracker, poller *tasks.Poller, gw Gateway, hist *history.Store, uploads *storage.FileStore) *App {
	return &App{
		Logger:  logger,
		Session: session,
		Tracker: tracker,
		Poller:  poller,
		Gateway: gw,
		History: hist,
		Uploads: uploads,
		polls:   make(map[string]func()),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

// fail maps a domain or gateway error to an HTTP response.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrInstructionRequired),
		errors.Is(err, domain.ErrSourceImageRequired):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNoPendingAction):
		a.error(w, http.StatusConflict, "no_pending_action", domain.ErrNoPendingAction.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", backendDetail(err, domain.ErrUnauthorized.Error()))
	case errors.Is(err, domain.ErrInsufficientBalance):
		a.error(w, http.StatusPaymentRequired, "insufficient_tokens", backendDetail(err, domain.ErrInsufficientBalance.Error()))
	default:
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			a.error(w, http.StatusBadGateway, "backend_error", apiErr.Detail)
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: unexpected failure")
		a.error(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// backendDetail returns the backend's own detail string for an error, so the
// user sees exactly what the backend said rather than the wrapped chain.
func backendDetail(err error, fallback string) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// watch begins polling a backend-acknowledged task. The poller loop stops
// itself at a terminal snapshot; the stop handle covers shutdown and session
// clears. Handles for tasks that have since finished are swept here so the
// map stays bounded by the number of in-flight tasks.
func (a *App) watch(sessionID string, task *domain.GenerationTask) {
	if task == nil || a.Poller == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, stop := range a.polls {
		if tracked, ok := a.Tracker.Get(id); !ok || tracked.Status.Terminal() {
			stop()
			delete(a.polls, id)
		}
	}
	if _, ok := a.polls[task.TaskID]; ok {
		return
	}
	a.polls[task.TaskID] = a.Poller.Start(context.Background(), sessionID, task.TaskID)
}

// StopPolling cancels every outstanding poll loop.
func (a *App) StopPolling() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, stop := range a.polls {
		stop()
		delete(a.polls, id)
	}
}
