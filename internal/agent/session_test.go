package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/gateway"
)

type fakeBackend struct {
	chatFn        func(gateway.ChatRequest) (*gateway.ChatResponse, error)
	confirmFn     func(gateway.ConfirmRequest) (*gateway.ChatResponse, error)
	editChatFn    func(gateway.EditChatRequest) (*gateway.ChatResponse, error)
	editConfirmFn func(gateway.EditConfirmRequest) (*gateway.ChatResponse, error)

	chatCalls        int
	confirmCalls     int
	editConfirmCalls int
	cancelCalls      int
	clearCalls       int
}

func (f *fakeBackend) Chat(_ context.Context, req gateway.ChatRequest) (*gateway.ChatResponse, error) {
	f.chatCalls++
	return f.chatFn(req)
}

func (f *fakeBackend) Confirm(_ context.Context, req gateway.ConfirmRequest) (*gateway.ChatResponse, error) {
	f.confirmCalls++
	return f.confirmFn(req)
}

func (f *fakeBackend) EditChat(_ context.Context, req gateway.EditChatRequest) (*gateway.ChatResponse, error) {
	return f.editChatFn(req)
}

func (f *fakeBackend) EditConfirm(_ context.Context, req gateway.EditConfirmRequest) (*gateway.ChatResponse, error) {
	f.editConfirmCalls++
	return f.editConfirmFn(req)
}

func (f *fakeBackend) Cancel(context.Context, string) error {
	f.cancelCalls++
	return nil
}

func (f *fakeBackend) Clear(context.Context, string) error {
	f.clearCalls++
	return nil
}

type fakeRegistry struct {
	registered []domain.GenerationTask
}

func (r *fakeRegistry) Register(task domain.GenerationTask) {
	r.registered = append(r.registered, task)
}

func newTestSession(backend Backend) (*Session, *fakeRegistry) {
	registry := &fakeRegistry{}
	session := NewSession(SessionOptions{
		Backend:     backend,
		Registry:    registry,
		Logger:      zerolog.Nop(),
		CharacterID: "c1",
	})
	return session, registry
}

func pendingGenerationResponse(sessionID string) *gateway.ChatResponse {
	return &gateway.ChatResponse{
		Message:   "Please confirm the settings below:",
		SessionID: sessionID,
		State:     domain.StateAwaitingConfirmation,
		PendingGeneration: &domain.PendingGeneration{
			Skill:           "image_generator",
			OptimizedPrompt: "a smiling woman",
			Reasoning:       "user asked for a smile",
		},
	}
}

func TestSendMessageBindsSessionAndStoresPending(t *testing.T) {
	backend := &fakeBackend{
		chatFn: func(req gateway.ChatRequest) (*gateway.ChatResponse, error) {
			if req.SessionID != "" {
				t.Fatalf("first turn should carry no session id, got %q", req.SessionID)
			}
			if req.CharacterID != "c1" {
				t.Fatalf("character id mismatch: %q", req.CharacterID)
			}
			return pendingGenerationResponse("s1"), nil
		},
	}
	session, _ := newTestSession(backend)

	resp, err := session.SendMessage(context.Background(), "make her smile")
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if resp.SessionID != "s1" {
		t.Fatalf("response session mismatch: %q", resp.SessionID)
	}
	if session.ID() != "s1" {
		t.Fatalf("session id not bound: %q", session.ID())
	}
	if session.State() != domain.StateAwaitingConfirmation {
		t.Fatalf("state mismatch: %q", session.State())
	}
	pending, ok := session.Pending()
	if !ok || pending.Generation == nil || pending.Generation.OptimizedPrompt != "a smiling woman" {
		t.Fatalf("pending action mismatch: %+v ok=%v", pending, ok)
	}
}

func TestConfirmRegistersTaskAndAdoptsDeclaredState(t *testing.T) {
	backend := &fakeBackend{
		chatFn: func(gateway.ChatRequest) (*gateway.ChatResponse, error) {
			return pendingGenerationResponse("s1"), nil
		},
		confirmFn: func(req gateway.ConfirmRequest) (*gateway.ChatResponse, error) {
			if req.SessionID != "s1" {
				t.Fatalf("confirm session mismatch: %q", req.SessionID)
			}
			if req.AspectRatio != "9:16" {
				t.Fatalf("aspect ratio mismatch: %q", req.AspectRatio)
			}
			if req.PendingGeneration == nil {
				t.Fatalf("confirm must carry the pending plan")
			}
			return &gateway.ChatResponse{
				Message:   "Generation started...",
				SessionID: "s1",
				State:     domain.StateExecuting,
				ActiveTask: &domain.GenerationTask{
					TaskID: "t1",
					Status: domain.TaskStatusPending,
					Stage:  "preparing",
					Prompt: "a smiling woman",
				},
			}, nil
		},
	}
	session, registry := newTestSession(backend)

	if _, err := session.SendMessage(context.Background(), "make her smile"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if _, err := session.Confirm(context.Background(), "9:16", "", ""); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if session.State() != domain.StateExecuting {
		t.Fatalf("state mismatch: %q", session.State())
	}
	if _, ok := session.Pending(); ok {
		t.Fatalf("pending action not cleared after confirm")
	}
	if len(registry.registered) != 1 || registry.registered[0].TaskID != "t1" {
		t.Fatalf("task not registered: %+v", registry.registered)
	}
}

func TestConfirmWithoutPendingFailsFromEveryState(t *testing.T) {
	backend := &fakeBackend{
		confirmFn: func(gateway.ConfirmRequest) (*gateway.ChatResponse, error) {
			t.Fatalf("backend confirm must not be reached")
			return nil, nil
		},
	}
	session, _ := newTestSession(backend)

	for _, state := range []domain.ConversationState{
		domain.StateIdle,
		domain.StateUnderstanding,
		domain.StatePlanning,
		domain.StateExecuting,
	} {
		session.apply(Event{Kind: EventStateChanged, State: state})
		if _, err := session.Confirm(context.Background(), "9:16", "", ""); !errors.Is(err, domain.ErrNoPendingAction) {
			t.Fatalf("state %s: expected ErrNoPendingAction, got %v", state, err)
		}
	}
	if backend.confirmCalls != 0 {
		t.Fatalf("backend contacted despite missing pending action")
	}
}

func TestConfirmDispatchesEditVariant(t *testing.T) {
	backend := &fakeBackend{
		editChatFn: func(req gateway.EditChatRequest) (*gateway.ChatResponse, error) {
			if req.SourceImagePath != "/uploads/src.png" {
				t.Fatalf("source path mismatch: %q", req.SourceImagePath)
			}
			return &gateway.ChatResponse{
				Message:   "Please confirm the edit settings below.",
				SessionID: "s1",
				State:     domain.StateAwaitingConfirmation,
				PendingEdit: &domain.PendingEdit{
					Skill:           "image_editor",
					Params:          domain.EditParams{SourceImagePath: "/uploads/src.png", EditInstruction: "change background"},
					OptimizedPrompt: "beach background",
				},
			}, nil
		},
		editConfirmFn: func(req gateway.EditConfirmRequest) (*gateway.ChatResponse, error) {
			if req.PendingEdit == nil {
				t.Fatalf("edit confirm must carry the pending edit")
			}
			return &gateway.ChatResponse{
				Message:   "Image edited successfully!",
				SessionID: "s1",
				State:     domain.StateIdle,
			}, nil
		},
	}
	session, _ := newTestSession(backend)

	if _, err := session.SendEditMessage(context.Background(), "change background", "/uploads/src.png"); err != nil {
		t.Fatalf("SendEditMessage error: %v", err)
	}
	if _, err := session.Confirm(context.Background(), "", "", ""); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if backend.editConfirmCalls != 1 {
		t.Fatalf("edit confirm calls mismatch: %d", backend.editConfirmCalls)
	}
	if backend.confirmCalls != 0 {
		t.Fatalf("generation confirm must not be used for an edit plan")
	}
	if session.State() != domain.StateIdle {
		t.Fatalf("state mismatch: %q", session.State())
	}
}

func TestSendMessageFailureRevertsToIdle(t *testing.T) {
	quota := &gateway.APIError{Status: 402, Detail: "Insufficient tokens"}
	backend := &fakeBackend{
		chatFn: func(gateway.ChatRequest) (*gateway.ChatResponse, error) {
			return nil, quota
		},
	}
	session, registry := newTestSession(backend)

	_, err := session.SendMessage(context.Background(), "make her smile")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if session.State() != domain.StateIdle {
		t.Fatalf("state not reverted: %q", session.State())
	}
	if len(registry.registered) != 0 {
		t.Fatalf("task registered despite failure")
	}
}

func TestCustomModeWithoutInstructionNeverReachesBackend(t *testing.T) {
	backend := &fakeBackend{
		chatFn: func(gateway.ChatRequest) (*gateway.ChatResponse, error) {
			return pendingGenerationResponse("s1"), nil
		},
	}
	session, _ := newTestSession(backend)
	session.AttachUpload("/uploads/ref.jpg")
	session.SetReferenceMode(domain.RefModeCustom)

	_, err := session.SendMessage(context.Background(), "   ")
	if !errors.Is(err, domain.ErrInstructionRequired) {
		t.Fatalf("expected ErrInstructionRequired, got %v", err)
	}
	if backend.chatCalls != 0 {
		t.Fatalf("backend contacted despite validation failure: %d calls", backend.chatCalls)
	}

	if _, err := session.SendMessage(context.Background(), "copy the lighting"); err != nil {
		t.Fatalf("SendMessage with instruction error: %v", err)
	}
	if backend.chatCalls != 1 {
		t.Fatalf("chat call count mismatch: %d", backend.chatCalls)
	}
}

func TestNonCustomModeSendsWithoutInstruction(t *testing.T) {
	var got gateway.ChatRequest
	backend := &fakeBackend{
		chatFn: func(req gateway.ChatRequest) (*gateway.ChatResponse, error) {
			got = req
			return pendingGenerationResponse("s1"), nil
		},
	}
	session, _ := newTestSession(backend)
	session.PickGalleryImage("/static/gallery/42.png")

	if _, err := session.SendMessage(context.Background(), ""); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if got.ReferenceImagePath != "/static/gallery/42.png" {
		t.Fatalf("reference path mismatch: %q", got.ReferenceImagePath)
	}
	if got.ReferenceImageMode != domain.RefModePoseBackground {
		t.Fatalf("mode should default to pose_background, got %q", got.ReferenceImageMode)
	}
}

func TestEmptyMessageWithoutReferenceRejected(t *testing.T) {
	backend := &fakeBackend{
		chatFn: func(gateway.ChatRequest) (*gateway.ChatResponse, error) {
			return pendingGenerationResponse("s1"), nil
		},
	}
	session, _ := newTestSession(backend)

	if _, err := session.SendMessage(context.Background(), "  "); !errors.Is(err, domain.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if backend.chatCalls != 0 {
		t.Fatalf("backend contacted for empty turn")
	}
}

func TestCancelIsIdempotentAndAlwaysResets(t *testing.T) {
	backend := &fakeBackend{
		chatFn: func(gateway.ChatRequest) (*gateway.ChatResponse, error) {
			return pendingGenerationResponse("s1"), nil
		},
	}
	session, _ := newTestSession(backend)

	if _, err := session.SendMessage(context.Background(), "make her smile"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	session.Cancel(context.Background())
	if session.State() != domain.StateIdle {
		t.Fatalf("state not reset: %q", session.State())
	}
	if _, ok := session.Pending(); ok {
		t.Fatalf("pending action survived cancel")
	}

	session.Cancel(context.Background())
	if session.State() != domain.StateIdle {
		t.Fatalf("second cancel changed state: %q", session.State())
	}
}

func TestClearForcesBrandNewSession(t *testing.T) {
	turn := 0
	backend := &fakeBackend{
		chatFn: func(req gateway.ChatRequest) (*gateway.ChatResponse, error) {
			turn++
			if turn == 2 && req.SessionID != "" {
				t.Fatalf("turn after clear should carry no session id, got %q", req.SessionID)
			}
			return pendingGenerationResponse("s1"), nil
		},
	}
	session, _ := newTestSession(backend)

	if _, err := session.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	session.Clear(context.Background())
	if session.ID() != "" {
		t.Fatalf("session id survived clear: %q", session.ID())
	}
	if backend.clearCalls != 1 {
		t.Fatalf("backend clear calls mismatch: %d", backend.clearCalls)
	}
	if _, err := session.SendMessage(context.Background(), "hello again"); err != nil {
		t.Fatalf("SendMessage after clear error: %v", err)
	}
}

func TestDirectReplyReturnsToIdle(t *testing.T) {
	backend := &fakeBackend{
		chatFn: func(gateway.ChatRequest) (*gateway.ChatResponse, error) {
			return &gateway.ChatResponse{
				Message:   "What kind of image would you like?",
				SessionID: "s1",
				State:     domain.StateIdle,
			}, nil
		},
	}
	session, _ := newTestSession(backend)

	if _, err := session.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if session.State() != domain.StateIdle {
		t.Fatalf("state mismatch: %q", session.State())
	}
	if _, ok := session.Pending(); ok {
		t.Fatalf("unexpected pending action")
	}
}

func TestConfirmationStateWithoutPlanDemotedToIdle(t *testing.T) {
	backend := &fakeBackend{
		chatFn: func(gateway.ChatRequest) (*gateway.ChatResponse, error) {
			return &gateway.ChatResponse{
				Message:   "noted",
				SessionID: "s1",
				State:     domain.StateAwaitingConfirmation,
			}, nil
		},
	}
	session, _ := newTestSession(backend)

	if _, err := session.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if session.State() != domain.StateIdle {
		t.Fatalf("confirmation state without plan should demote to idle, got %q", session.State())
	}
}

func TestConfirmWithModificationsAdoptsFreshPlan(t *testing.T) {
	backend := &fakeBackend{
		chatFn: func(gateway.ChatRequest) (*gateway.ChatResponse, error) {
			return pendingGenerationResponse("s1"), nil
		},
		confirmFn: func(req gateway.ConfirmRequest) (*gateway.ChatResponse, error) {
			if req.Modifications != "make it at the beach" {
				t.Fatalf("modifications not forwarded: %q", req.Modifications)
			}
			revised := pendingGenerationResponse("s1")
			revised.PendingGeneration.OptimizedPrompt = "a smiling woman at the beach"
			return revised, nil
		},
	}
	session, _ := newTestSession(backend)

	if _, err := session.SendMessage(context.Background(), "make her smile"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if _, err := session.Confirm(context.Background(), "9:16", "make it at the beach", ""); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if session.State() != domain.StateAwaitingConfirmation {
		t.Fatalf("state mismatch: %q", session.State())
	}
	pending, ok := session.Pending()
	if !ok || pending.Generation.OptimizedPrompt != "a smiling woman at the beach" {
		t.Fatalf("revised plan not adopted: %+v", pending)
	}
}

func TestConfirmFailureLeavesNoPartialState(t *testing.T) {
	backend := &fakeBackend{
		chatFn: func(gateway.ChatRequest) (*gateway.ChatResponse, error) {
			return pendingGenerationResponse("s1"), nil
		},
		confirmFn: func(gateway.ConfirmRequest) (*gateway.ChatResponse, error) {
			return nil, &gateway.APIError{Status: 500, Detail: "backend exploded"}
		},
	}
	session, _ := newTestSession(backend)

	if _, err := session.SendMessage(context.Background(), "make her smile"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if _, err := session.Confirm(context.Background(), "9:16", "", ""); err == nil {
		t.Fatalf("expected confirm failure")
	}
	if session.State() != domain.StateIdle {
		t.Fatalf("state not reverted: %q", session.State())
	}
	if _, ok := session.Pending(); ok {
		t.Fatalf("pending action survived failed confirm")
	}
}

func TestSinkReceivesReducerEvents(t *testing.T) {
	backend := &fakeBackend{
		chatFn: func(gateway.ChatRequest) (*gateway.ChatResponse, error) {
			return pendingGenerationResponse("s1"), nil
		},
	}
	var kinds []EventKind
	registry := &fakeRegistry{}
	session := NewSession(SessionOptions{
		Backend:  backend,
		Registry: registry,
		Logger:   zerolog.Nop(),
		Sink:     func(ev Event) { kinds = append(kinds, ev.Kind) },
	})

	if _, err := session.SendMessage(context.Background(), "make her smile"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}

	want := map[EventKind]bool{
		EventUserMessage:      false,
		EventSessionBound:     false,
		EventPendingSet:       false,
		EventAssistantMessage: false,
		EventStateChanged:     false,
	}
	for _, kind := range kinds {
		if _, ok := want[kind]; ok {
			want[kind] = true
		}
	}
	for kind, seen := range want {
		if !seen {
			t.Fatalf("sink missed event %s (got %v)", kind, kinds)
		}
	}
}
