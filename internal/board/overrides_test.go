package board

import (
	"testing"

	"leadboard_backend/internal/leads/domain"

	"github.com/google/uuid"
)

func TestOverrideLifecycle(t *testing.T) {
	s := NewOverrideStore()
	id := uuid.New()

	s.Propose(id, "Seguimiento")
	if got, ok := s.Get(id); !ok || got != "Seguimiento" {
		t.Fatalf("expected proposed label, got %q %v", got, ok)
	}

	if _, kind, _ := s.Lookup(id); kind != KindProposed {
		t.Fatalf("expected proposed kind, got %v", kind)
	}

	s.Rollback(id, "Contactado")
	if got, kind, _ := s.Lookup(id); got != "Contactado" || kind != KindRolledBack {
		t.Fatalf("rollback should restore previous label, got %q kind %v", got, kind)
	}

	s.Confirm(id)
	if _, ok := s.Get(id); ok || s.Len() != 0 {
		t.Fatalf("confirm should remove the override")
	}
}

func TestReconcileRetiresMatchedAndMissing(t *testing.T) {
	catalog := domain.DefaultCatalog()
	s := NewOverrideStore()

	matched, aliased, pending, gone := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	s.Propose(matched, "Seguimiento")
	s.Propose(aliased, "Contactado")
	s.Propose(pending, "Ganado")
	s.Propose(gone, "Perdido")

	authoritative := map[uuid.UUID]string{
		matched: "Seguimiento",
		aliased: "contacted",
		pending: "Seguimiento",
	}

	if n := s.Reconcile(authoritative, catalog); n != 3 {
		t.Fatalf("expected 3 retired, got %d", n)
	}
	if _, ok := s.Get(pending); !ok {
		t.Fatalf("unmatched override must stay")
	}
	for id, label := range authoritative {
		if proposed, ok := s.Get(id); ok && catalog.SameStage(proposed, label) {
			t.Fatalf("override for %s equals authoritative stage", id)
		}
	}
}

func TestReconcileAlwaysRetiresRollbacks(t *testing.T) {
	s := NewOverrideStore()
	id := uuid.New()
	s.Rollback(id, "Contactado")

	if n := s.Reconcile(map[uuid.UUID]string{id: "Ganado"}, domain.DefaultCatalog()); n != 1 {
		t.Fatalf("expected rollback retired, got %d", n)
	}
	if s.Len() != 0 {
		t.Fatalf("store should be empty")
	}
}
