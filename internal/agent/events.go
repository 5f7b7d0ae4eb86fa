package agent

import "studio/internal/domain"

// EventKind enumerates the commands a session applies to its own state.
type EventKind string

const (
	EventUserMessage      EventKind = "user_message"
	EventAssistantMessage EventKind = "assistant_message"
	EventStateChanged     EventKind = "state_changed"
	EventSessionBound     EventKind = "session_bound"
	EventSessionCleared   EventKind = "session_cleared"
	EventPendingSet       EventKind = "pending_set"
	EventPendingCleared   EventKind = "pending_cleared"
	EventTaskRegistered   EventKind = "task_registered"
)

// Event is one auditable state transition. All session mutation flows
// through the reducer in Session.apply, and every applied event is forwarded
// to the configured sink (transcript journal, UI notifications).
type Event struct {
	Kind      EventKind
	SessionID string
	State     domain.ConversationState
	Content   string
	Pending   *domain.PendingAction
	Task      *domain.GenerationTask
}
