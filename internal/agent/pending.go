package agent

import "studio/internal/domain"

// PendingStore holds the agent's most recently proposed action while the
// conversation awaits confirmation. Reading while empty is a defined state,
// not an error. The owning session serializes access.
type PendingStore struct {
	action *domain.PendingAction
}

// Set overwrites the stored action unconditionally.
func (p *PendingStore) Set(action domain.PendingAction) {
	a := action
	p.action = &a
}

// Clear drops the stored action.
func (p *PendingStore) Clear() {
	p.action = nil
}

// Get returns the stored action, if any.
func (p *PendingStore) Get() (domain.PendingAction, bool) {
	if p.action == nil {
		return domain.PendingAction{}, false
	}
	return *p.action, true
}
