package board

import (
	"sync"

	"leadboard_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// OverrideKind tells a guess apart from a restored stage.
type OverrideKind int

const (
	// KindProposed is a stage guessed before the store confirmed it.
	KindProposed OverrideKind = iota + 1
	// KindRolledBack is the pre-mutation stage restored after a failure.
	KindRolledBack
)

type override struct {
	label string
	kind  OverrideKind
}

// OverrideStore holds in-flight stage guesses per lead. Entries are never
// persisted. Safe for concurrent use; callers serialize mutations per lead.
type OverrideStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]override
}

// NewOverrideStore creates an empty store.
func NewOverrideStore() *OverrideStore {
	return &OverrideStore{entries: make(map[uuid.UUID]override)}
}

// Propose records the guessed stage label for a lead.
func (s *OverrideStore) Propose(leadID uuid.UUID, stageLabel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[leadID] = override{label: stageLabel, kind: KindProposed}
}

// Confirm drops the override of a lead.
func (s *OverrideStore) Confirm(leadID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, leadID)
}

// Rollback replaces the override with the label the lead had before the
// failed mutation.
func (s *OverrideStore) Rollback(leadID uuid.UUID, previousStageLabel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[leadID] = override{label: previousStageLabel, kind: KindRolledBack}
}

// Get returns the override of a lead, if any.
func (s *OverrideStore) Get(leadID uuid.UUID) (string, bool) {
	label, _, ok := s.Lookup(leadID)
	return label, ok
}

// Lookup returns the override of a lead with its kind.
func (s *OverrideStore) Lookup(leadID uuid.UUID) (string, OverrideKind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.entries[leadID]
	return o.label, o.kind, ok
}

// Len returns the number of live overrides.
func (s *OverrideStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reconcile retires overrides whose lead now has the proposed stage (compared
// by canonical key) or is no longer part of the authoritative set. Rolled back
// entries are always retired: the refreshed stage supersedes them. Returns the
// number of retired entries.
func (s *OverrideStore) Reconcile(authoritative map[uuid.UUID]string, catalog *domain.Catalog) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	retired := 0
	for id, o := range s.entries {
		label, ok := authoritative[id]
		if !ok || o.kind == KindRolledBack || catalog.SameStage(label, o.label) {
			delete(s.entries, id)
			retired++
		}
	}
	return retired
}
