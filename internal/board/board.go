package board

import (
	"context"
	"sync"

	"leadboard_backend/internal/leads/domain"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"

	"github.com/google/uuid"
)

// MsgMutationInFlight rejects a second mutation on a lead whose previous one
// has not resolved yet.
const MsgMutationInFlight = "a change for this lead is still in progress"

const msgLeadNotOnBoard = "lead is not on the board"

// Column is one stage column of the board.
type Column struct {
	Stage domain.Stage
	Label string
	Leads []Card
}

// Card is a lead as rendered on the board.
type Card struct {
	Lead
	// Pending is set while the card is shown in a proposed, unconfirmed column.
	Pending bool
}

// Board merges authoritative leads with optimistic overrides.
type Board struct {
	store     LeadStore
	log       *logger.Logger
	overrides *OverrideStore

	mu      sync.RWMutex
	catalog *domain.Catalog
	leads   map[uuid.UUID]Lead
	order   []uuid.UUID

	slotsMu  sync.Mutex
	inflight map[uuid.UUID]struct{}
}

// New creates a board backed by store. It starts with the built-in catalog;
// call LoadCatalog to pick up the store's labels.
func New(store LeadStore, log *logger.Logger) *Board {
	return &Board{
		store:     store,
		log:       log,
		overrides: NewOverrideStore(),
		catalog:   domain.DefaultCatalog(),
		leads:     make(map[uuid.UUID]Lead),
		inflight:  make(map[uuid.UUID]struct{}),
	}
}

// LoadCatalog fetches the stage catalog. Any failure falls back to the
// built-in catalog so the board never waits on catalog availability.
func (b *Board) LoadCatalog(ctx context.Context) *domain.Catalog {
	catalog := domain.DefaultCatalog()
	defs, err := b.store.FetchStageCatalog(ctx)
	switch {
	case err != nil:
		b.log.Warn("stage catalog unavailable, using built-in catalog", "error", err)
	case len(defs) == 0:
		b.log.Warn("stage catalog empty, using built-in catalog")
	default:
		catalog = domain.NewCatalog(defs)
	}

	b.mu.Lock()
	b.catalog = catalog
	b.mu.Unlock()
	return catalog
}

// Catalog returns the catalog in use.
func (b *Board) Catalog() *domain.Catalog {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.catalog
}

// Refresh replaces the authoritative lead set and reconciles overrides.
func (b *Board) Refresh(ctx context.Context, filter Filter) error {
	leads, err := b.store.FetchLeads(ctx, filter)
	if err != nil {
		return err
	}

	byID := make(map[uuid.UUID]Lead, len(leads))
	order := make([]uuid.UUID, 0, len(leads))
	labels := make(map[uuid.UUID]string, len(leads))
	for _, lead := range leads {
		if _, dup := byID[lead.ID]; !dup {
			order = append(order, lead.ID)
		}
		byID[lead.ID] = lead
		labels[lead.ID] = lead.StageLabel
	}

	b.mu.Lock()
	b.leads = byID
	b.order = order
	catalog := b.catalog
	b.mu.Unlock()

	if retired := b.overrides.Reconcile(labels, catalog); retired > 0 {
		b.log.Debug("board overrides retired", "count", retired)
	}
	return nil
}

// Lead returns the authoritative record of a lead on the board.
func (b *Board) Lead(id uuid.UUID) (Lead, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lead, ok := b.leads[id]
	return lead, ok
}

// Leads returns the authoritative records in board order.
func (b *Board) Leads() []Lead {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Lead, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.leads[id])
	}
	return out
}

// Overrides exposes the override store, mainly for inspection.
func (b *Board) Overrides() *OverrideStore {
	return b.overrides
}

// EffectiveStage is the override when present, else the authoritative stage.
func (b *Board) EffectiveStage(id uuid.UUID) (domain.Stage, bool) {
	label, ok := b.effectiveLabel(id)
	if !ok {
		return 0, false
	}
	return b.Catalog().Resolve(label), true
}

func (b *Board) effectiveLabel(id uuid.UUID) (string, bool) {
	lead, ok := b.Lead(id)
	if !ok {
		return "", false
	}
	if label, ok := b.overrides.Get(id); ok {
		return label, true
	}
	return lead.StageLabel, true
}

// Columns groups the board's leads by effective stage. Every catalog stage
// has a column, in board order.
func (b *Board) Columns() []Column {
	catalog := b.Catalog()
	stages := domain.Stages()
	columns := make([]Column, len(stages))
	index := make(map[domain.Stage]int, len(stages))
	for i, s := range stages {
		columns[i] = Column{Stage: s, Label: catalog.Label(s), Leads: []Card{}}
		index[s] = i
	}

	for _, lead := range b.Leads() {
		card := Card{Lead: lead}
		stage := catalog.Resolve(lead.StageLabel)
		if label, kind, ok := b.overrides.Lookup(lead.ID); ok {
			card.Pending = kind == KindProposed
			stage = catalog.Resolve(label)
		}
		i := index[stage]
		columns[i].Leads = append(columns[i].Leads, card)
	}
	return columns
}

// acquire claims the mutation slot of a lead.
func (b *Board) acquire(id uuid.UUID) (func(), error) {
	b.slotsMu.Lock()
	defer b.slotsMu.Unlock()
	if _, busy := b.inflight[id]; busy {
		return nil, apperr.Precondition(MsgMutationInFlight)
	}
	b.inflight[id] = struct{}{}
	return func() {
		b.slotsMu.Lock()
		delete(b.inflight, id)
		b.slotsMu.Unlock()
	}, nil
}

// InFlight reports whether a lead has an outstanding mutation.
func (b *Board) InFlight(id uuid.UUID) bool {
	b.slotsMu.Lock()
	defer b.slotsMu.Unlock()
	_, busy := b.inflight[id]
	return busy
}

func (b *Board) upsert(lead Lead) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.leads[lead.ID]; !ok {
		b.order = append(b.order, lead.ID)
	}
	b.leads[lead.ID] = lead
}

func (b *Board) state(lead Lead) domain.LeadState {
	label, _ := b.overrides.Get(lead.ID)
	if label == "" {
		label = lead.StageLabel
	}
	return domain.LeadState{Stage: b.Catalog().Resolve(label), HasOwner: lead.HasOwner()}
}

func (b *Board) mustLead(id uuid.UUID) (Lead, error) {
	lead, ok := b.Lead(id)
	if !ok {
		return Lead{}, apperr.NotFound(msgLeadNotOnBoard)
	}
	return lead, nil
}
