// Package session holds per-conversation state: the pending draft, the undo
// buffer and pending edits. State is process-wide and lost on restart;
// users simply resend their message.
package session

import (
	"sync"
	"time"

	"github.com/mfigueira/caixinha/internal/model"
)

// UndoTTL is how long a confirmed transaction stays undoable.
const UndoTTL = 10 * time.Minute

// Confirmed points at the last persisted transaction of an owner, kept so a
// quick "desfazer" can reverse a mistake.
type Confirmed struct {
	ConfirmedAt   time.Time
	TransactionID string
	Summary       string
}

// PendingEdit is a staged field change to the last confirmed transaction,
// waiting for the user to confirm it.
type PendingEdit struct {
	CreatedAt     time.Time
	TransactionID string
	Field         string
	Value         string
}

// Store is the conversation-state contract, keyed by owner (conversation)
// id. The in-process implementation below serves single-instance
// deployments; a multi-instance deployment would back this with an external
// key-value store.
type Store interface {
	// Lock serializes message handling per owner. It returns the unlock
	// function. Two concurrent messages from the same owner are handled one
	// after the other, never racing on the shared draft.
	Lock(ownerID string) func()

	Draft(ownerID string) (*model.TransactionDraft, bool)
	SetDraft(draft *model.TransactionDraft)
	ClearDraft(ownerID string)

	SetConfirmed(ownerID string, confirmed Confirmed)
	// TakeConfirmed removes and returns the undo buffer entry if it is still
	// inside the undo window.
	TakeConfirmed(ownerID string, now time.Time) (Confirmed, bool)

	SetPendingEdit(ownerID string, edit PendingEdit)
	TakePendingEdit(ownerID string) (PendingEdit, bool)
}

// InProcessStore implements Store with process-wide maps.
type InProcessStore struct {
	drafts    map[string]*model.TransactionDraft
	confirmed map[string]Confirmed
	edits     map[string]PendingEdit
	locks     map[string]*sync.Mutex
	mu        sync.Mutex
}

// NewInProcessStore creates an empty in-process session store.
func NewInProcessStore() *InProcessStore {
	return &InProcessStore{
		drafts:    make(map[string]*model.TransactionDraft),
		confirmed: make(map[string]Confirmed),
		edits:     make(map[string]PendingEdit),
		locks:     make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-owner mutex and returns its unlock function.
func (s *InProcessStore) Lock(ownerID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[ownerID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Draft returns the owner's pending draft, if any.
func (s *InProcessStore) Draft(ownerID string) (*model.TransactionDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[ownerID]
	return draft, ok
}

// SetDraft stores the owner's draft, replacing any previous one: at most one
// draft exists per owner at a time.
func (s *InProcessStore) SetDraft(draft *model.TransactionDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draft.OwnerID] = draft
}

// ClearDraft removes the owner's draft.
func (s *InProcessStore) ClearDraft(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, ownerID)
}

// SetConfirmed records the owner's last confirmed transaction.
func (s *InProcessStore) SetConfirmed(ownerID string, confirmed Confirmed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed[ownerID] = confirmed
}

// TakeConfirmed removes and returns the undo entry while it is fresh.
func (s *InProcessStore) TakeConfirmed(ownerID string, now time.Time) (Confirmed, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	confirmed, ok := s.confirmed[ownerID]
	if !ok {
		return Confirmed{}, false
	}
	delete(s.confirmed, ownerID)

	if now.Sub(confirmed.ConfirmedAt) > UndoTTL {
		return Confirmed{}, false
	}
	return confirmed, true
}

// SetPendingEdit stages an edit for the owner.
func (s *InProcessStore) SetPendingEdit(ownerID string, edit PendingEdit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits[ownerID] = edit
}

// TakePendingEdit removes and returns the staged edit, if any.
func (s *InProcessStore) TakePendingEdit(ownerID string) (PendingEdit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edit, ok := s.edits[ownerID]
	if ok {
		delete(s.edits, ownerID)
	}
	return edit, ok
}
