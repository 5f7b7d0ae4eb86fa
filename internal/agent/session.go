package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"studio/internal/domain"
	"studio/internal/gateway"
	"studio/internal/infra"
)

// Backend is the slice of the gateway the state machine drives.
type Backend interface {
	Chat(ctx context.Context, req gateway.ChatRequest) (*gateway.ChatResponse, error)
	Confirm(ctx context.Context, req gateway.ConfirmRequest) (*gateway.ChatResponse, error)
	EditChat(ctx context.Context, req gateway.EditChatRequest) (*gateway.ChatResponse, error)
	EditConfirm(ctx context.Context, req gateway.EditConfirmRequest) (*gateway.ChatResponse, error)
	Cancel(ctx context.Context, sessionID string) error
	Clear(ctx context.Context, sessionID string) error
}

// TaskRegistry receives tasks acknowledged by the backend.
type TaskRegistry interface {
	Register(task domain.GenerationTask)
}

// SessionOptions configures a conversation session.
type SessionOptions struct {
	Backend     Backend
	Registry    TaskRegistry
	Logger      infra.Logger
	Sink        func(Event)
	CharacterID string
}

// Session is the conversation state machine. It owns the backend session id,
// the current state, the pending action store and the reference attachment,
// and coordinates the task registry in response to user turns, confirmations
// and cancellations.
//
// Operations on one session are serialized with a mutex: when two calls
// race, the later one waits instead of producing a last-writer-wins state.
type Session struct {
	mu       sync.Mutex
	backend  Backend
	registry TaskRegistry
	logger   infra.Logger
	sink     func(Event)

	id          string
	characterID string
	state       domain.ConversationState
	pending     PendingStore
	reference   Reference
}

// NewSession constructs an idle session with no backend id bound yet.
func NewSession(opts SessionOptions) *Session {
	return &Session{
		backend:     opts.Backend,
		registry:    opts.Registry,
		logger:      opts.Logger,
		sink:        opts.Sink,
		characterID: opts.CharacterID,
		state:       domain.StateIdle,
	}
}

// SendMessage sends one user turn. The attached reference, if any, is
// resolved and validated locally before the backend is contacted; a custom
// mode without an instruction never reaches the network. On success the
// backend's declared state is adopted and the attachment is consumed. On
// failure the session reverts to idle and the attachment is kept for retry.
func (s *Session) SendMessage(ctx context.Context, text string) (*gateway.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.reference.Resolve(text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" && ref.Path == "" {
		return nil, domain.ErrEmptyMessage
	}

	s.apply(Event{Kind: EventUserMessage, SessionID: s.id, Content: text})
	s.apply(Event{Kind: EventStateChanged, SessionID: s.id, State: domain.StateUnderstanding})

	resp, err := s.backend.Chat(ctx, gateway.ChatRequest{
		Message:            text,
		CharacterID:        s.characterID,
		SessionID:          s.id,
		ReferenceImagePath: ref.Path,
		ReferenceImageMode: ref.Mode,
	})
	if err != nil {
		s.apply(Event{Kind: EventStateChanged, SessionID: s.id, State: domain.StateIdle})
		return nil, fmt.Errorf("chat: %w", err)
	}

	s.reference.Clear()
	s.adopt(resp)
	return resp, nil
}

// SendEditMessage sends one edit-flow turn keyed on a source image.
func (s *Session) SendEditMessage(ctx context.Context, text, sourceImagePath string) (*gateway.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyMessage
	}
	if strings.TrimSpace(sourceImagePath) == "" {
		return nil, domain.ErrSourceImageRequired
	}

	s.apply(Event{Kind: EventUserMessage, SessionID: s.id, Content: text})
	s.apply(Event{Kind: EventStateChanged, SessionID: s.id, State: domain.StateUnderstanding})

	resp, err := s.backend.EditChat(ctx, gateway.EditChatRequest{
		Message:         text,
		SourceImagePath: sourceImagePath,
		CharacterID:     s.characterID,
		SessionID:       s.id,
	})
	if err != nil {
		s.apply(Event{Kind: EventStateChanged, SessionID: s.id, State: domain.StateIdle})
		return nil, fmt.Errorf("edit chat: %w", err)
	}

	s.adopt(resp)
	return resp, nil
}

// Confirm approves the pending action. It fails with ErrNoPendingAction
// unless the session is awaiting confirmation with a stored plan. The plan
// variant picks the backend endpoint; modifications re-enter the planning
// flow on the backend and may yield a fresh pending action instead of a
// task. A backend failure reverts to idle with no partial state.
func (s *Session) Confirm(ctx context.Context, aspectRatio, modifications, editedPrompt string) (*gateway.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.pending.Get()
	if !ok || s.state != domain.StateAwaitingConfirmation {
		return nil, domain.ErrNoPendingAction
	}
	if aspectRatio == "" {
		aspectRatio = domain.DefaultAspectRatio
	}

	var resp *gateway.ChatResponse
	var err error
	if pending.Edit != nil {
		resp, err = s.backend.EditConfirm(ctx, gateway.EditConfirmRequest{
			SessionID:    s.id,
			AspectRatio:  aspectRatio,
			EditedPrompt: editedPrompt,
			CharacterID:  s.characterID,
			PendingEdit:  pending.Edit,
		})
	} else {
		resp, err = s.backend.Confirm(ctx, gateway.ConfirmRequest{
			SessionID:         s.id,
			AspectRatio:       aspectRatio,
			Modifications:     modifications,
			EditedPrompt:      editedPrompt,
			CharacterID:       s.characterID,
			PendingGeneration: pending.Generation,
		})
	}
	if err != nil {
		s.apply(Event{Kind: EventPendingCleared, SessionID: s.id})
		s.apply(Event{Kind: EventStateChanged, SessionID: s.id, State: domain.StateIdle})
		return nil, fmt.Errorf("confirm: %w", err)
	}

	s.adopt(resp)
	return resp, nil
}

// Cancel discards the pending action. The backend call is best-effort; local
// state always resets to idle, and repeated calls are harmless.
func (s *Session) Cancel(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != "" {
		if err := s.backend.Cancel(ctx, s.id); err != nil {
			s.logger.Warn().Err(err).Str("session_id", s.id).Msg("session: backend cancel failed")
		}
	}
	if _, ok := s.pending.Get(); ok {
		s.apply(Event{Kind: EventPendingCleared, SessionID: s.id})
	}
	if s.state != domain.StateIdle {
		s.apply(Event{Kind: EventStateChanged, SessionID: s.id, State: domain.StateIdle})
	}
}

// Clear ends the session entirely. The next SendMessage starts a brand-new
// backend session.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != "" {
		if err := s.backend.Clear(ctx, s.id); err != nil {
			s.logger.Warn().Err(err).Str("session_id", s.id).Msg("session: backend clear failed")
		}
	}
	s.reference.Clear()
	s.apply(Event{Kind: EventSessionCleared, SessionID: s.id})
}

// adopt applies a backend response. The declared state is authoritative; the
// only local correction is demoting a confirmation state that arrived
// without a plan, which is treated as a direct conversational reply.
func (s *Session) adopt(resp *gateway.ChatResponse) {
	if resp.SessionID != "" && resp.SessionID != s.id {
		s.apply(Event{Kind: EventSessionBound, SessionID: resp.SessionID})
	}

	state := resp.State
	if state == "" {
		state = domain.StateIdle
	}

	var action *domain.PendingAction
	switch {
	case resp.PendingGeneration != nil:
		action = &domain.PendingAction{Generation: resp.PendingGeneration}
	case resp.PendingEdit != nil:
		action = &domain.PendingAction{Edit: resp.PendingEdit}
	}

	if state == domain.StateAwaitingConfirmation && action != nil {
		s.apply(Event{Kind: EventPendingSet, SessionID: s.id, Pending: action})
	} else {
		if state == domain.StateAwaitingConfirmation {
			state = domain.StateIdle
		}
		if _, ok := s.pending.Get(); ok {
			s.apply(Event{Kind: EventPendingCleared, SessionID: s.id})
		}
	}

	if resp.ActiveTask != nil {
		s.registry.Register(*resp.ActiveTask)
		s.apply(Event{Kind: EventTaskRegistered, SessionID: s.id, Task: resp.ActiveTask})
	}
	if resp.Message != "" {
		s.apply(Event{Kind: EventAssistantMessage, SessionID: s.id, Content: resp.Message})
	}
	s.apply(Event{Kind: EventStateChanged, SessionID: s.id, State: state})
}

// apply is the single reducer through which all session mutation flows.
func (s *Session) apply(ev Event) {
	switch ev.Kind {
	case EventStateChanged:
		s.state = ev.State
	case EventSessionBound:
		s.id = ev.SessionID
	case EventSessionCleared:
		s.id = ""
		s.pending.Clear()
		s.state = domain.StateIdle
	case EventPendingSet:
		if ev.Pending != nil {
			s.pending.Set(*ev.Pending)
		}
	case EventPendingCleared:
		s.pending.Clear()
	}
	if s.sink != nil {
		s.sink(ev)
	}
}

// State returns the current conversation state.
func (s *Session) State() domain.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the backend session id, empty until the first chat turn binds one.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Pending returns the stored pending action, if any.
func (s *Session) Pending() (domain.PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Get()
}

// SetCharacter selects the character subsequent turns act on.
func (s *Session) SetCharacter(characterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if characterID != "" {
		s.characterID = characterID
	}
}

// AttachUpload attaches a freshly uploaded reference image.
func (s *Session) AttachUpload(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reference.AttachUpload(path)
}

// PickGalleryImage attaches a gallery image as the reference.
func (s *Session) PickGalleryImage(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reference.PickGallery(url)
}

// SetReferenceMode selects the reference mode for the current attachment.
func (s *Session) SetReferenceMode(mode domain.ReferenceImageMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reference.SetMode(mode)
}

// ClearReference detaches the reference image.
func (s *Session) ClearReference() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reference.Clear()
}

// ReferenceState returns a display snapshot of the current attachment.
func (s *Session) ReferenceState() ReferenceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reference.State()
}
