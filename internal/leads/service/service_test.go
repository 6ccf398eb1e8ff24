package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadboard_backend/internal/events"
	"leadboard_backend/internal/leads/domain"
	"leadboard_backend/internal/leads/repository"
	"leadboard_backend/internal/leads/transport"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu         sync.Mutex
	leads      map[uuid.UUID]domain.Lead
	keys       map[uuid.UUID]*string
	campaigns  map[uuid.UUID]domain.Campaign
	activity   []domain.Activity
	stages     []domain.Definition
	stagesErr  error
	lastParams repository.ListParams
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:     make(map[uuid.UUID]domain.Lead),
		keys:      make(map[uuid.UUID]*string),
		campaigns: make(map[uuid.UUID]domain.Campaign),
	}
}

func (r *fakeRepo) addLead(stageLabel string, owner *uuid.UUID) domain.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead := domain.Lead{ID: uuid.New(), Name: "Lead", Phone: "+51912345678", StageLabel: stageLabel}
	if owner != nil {
		lead.Assignments = []domain.Assignment{{ID: uuid.New(), LeadID: lead.ID, OwnerID: *owner, Active: true}}
	}
	r.leads[lead.ID] = lead
	return lead
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (r *fakeRepo) List(_ context.Context, params repository.ListParams) ([]domain.Lead, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastParams = params
	out := make([]domain.Lead, 0, len(r.leads))
	for id, lead := range r.leads {
		if params.StageKey != nil {
			if key := r.keys[id]; key == nil || *key != *params.StageKey {
				continue
			}
		}
		out = append(out, lead)
	}
	return out, len(out), nil
}

func (r *fakeRepo) StageKeyGroups(_ context.Context, unsetOnly bool) ([]repository.StageKeyGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var groups []repository.StageKeyGroup
	for id, lead := range r.leads {
		key := r.keys[id]
		if unsetOnly && key != nil {
			continue
		}
		tag := lead.StageLabel + "\x00"
		if key != nil {
			tag += *key
		} else {
			tag += "<nil>"
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		groups = append(groups, repository.StageKeyGroup{Label: lead.StageLabel, Key: key})
	}
	return groups, nil
}

func (r *fakeRepo) SetStageKey(_ context.Context, group repository.StageKeyGroup, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, lead := range r.leads {
		current := r.keys[id]
		if lead.StageLabel != group.Label {
			continue
		}
		if (current == nil) != (group.Key == nil) || (current != nil && *current != *group.Key) {
			continue
		}
		k := key
		r.keys[id] = &k
		n++
	}
	return n, nil
}

func (r *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead := domain.Lead{
		ID:         uuid.New(),
		Name:       params.Name,
		Phone:      params.Phone,
		Email:      params.Email,
		City:       params.City,
		CampaignID: params.CampaignID,
		StageLabel: params.StageLabel,
		CreatedAt:  time.Now(),
	}
	key := params.StageKey
	r.leads[lead.ID] = lead
	r.keys[lead.ID] = &key
	return lead, nil
}

func (r *fakeRepo) PhoneExistsInCampaign(_ context.Context, campaignID uuid.UUID, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lead := range r.leads {
		if lead.CampaignID != nil && *lead.CampaignID == campaignID && lead.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) ChangeOwner(_ context.Context, leadID uuid.UUID, ownerID *uuid.UUID, actorID uuid.UUID, guard repository.Guard) (repository.OwnerChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[leadID]
	if !ok {
		return repository.OwnerChange{}, repository.ErrNotFound
	}
	if err := guard(lead); err != nil {
		return repository.OwnerChange{}, err
	}
	previous := lead.OwnerID()
	if (previous == nil && ownerID == nil) || (previous != nil && ownerID != nil && *previous == *ownerID) {
		return repository.OwnerChange{Lead: lead, PreviousOwner: previous}, nil
	}
	history := make([]domain.Assignment, 0, len(lead.Assignments)+1)
	if ownerID != nil {
		history = append(history, domain.Assignment{ID: uuid.New(), LeadID: leadID, OwnerID: *ownerID, ActorID: actorID, Active: true})
	}
	for _, a := range lead.Assignments {
		a.Active = false
		history = append(history, a)
	}
	lead.Assignments = history
	r.leads[leadID] = lead
	return repository.OwnerChange{Lead: lead, PreviousOwner: previous, Changed: true}, nil
}

func (r *fakeRepo) ChangeStage(_ context.Context, leadID uuid.UUID, label, key string, guard repository.Guard) (repository.StageChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[leadID]
	if !ok {
		return repository.StageChange{}, repository.ErrNotFound
	}
	if err := guard(lead); err != nil {
		return repository.StageChange{}, err
	}
	previous := lead.StageLabel
	lead.StageLabel = label
	r.leads[leadID] = lead
	r.keys[leadID] = &key
	return repository.StageChange{Lead: lead, PreviousLabel: previous, Changed: previous != label}, nil
}

func (r *fakeRepo) ListStages(context.Context) ([]domain.Definition, error) {
	return r.stages, r.stagesErr
}

func (r *fakeRepo) ListCampaigns(context.Context, bool) ([]domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepo) GetCampaign(_ context.Context, id uuid.UUID) (domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return domain.Campaign{}, repository.ErrCampaignNotFound
	}
	return c, nil
}

func (r *fakeRepo) AddActivity(_ context.Context, leadID, actorID uuid.UUID, action string, meta map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activity = append(r.activity, domain.Activity{ID: uuid.New(), LeadID: leadID, ActorID: actorID, Action: action, Meta: meta})
	return nil
}

func (r *fakeRepo) ListActivity(_ context.Context, leadID uuid.UUID, _ int) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Activity, 0)
	for _, a := range r.activity {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out, nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService(repo *fakeRepo) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(repo, bus, domain.DefaultCatalog(), "PE", logger.Discard()), bus
}

func TestSetStageRequiresOwner(t *testing.T) {
	repo := newFakeRepo()
	svc, bus := newTestService(repo)
	lead := repo.addLead("Pendiente", nil)

	_, err := svc.SetStage(context.Background(), lead.ID, "contacted", uuid.New())
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Message != domain.ReasonNoOwner {
		t.Fatalf("expected %q, got %v", domain.ReasonNoOwner, err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("no event should be published for a blocked change")
	}
}

func TestSetStageAcceptsLabelsAndStoresCanonicalLabel(t *testing.T) {
	repo := newFakeRepo()
	svc, bus := newTestService(repo)
	owner := uuid.New()
	lead := repo.addLead("asignado", &owner)

	resp, err := svc.SetStage(context.Background(), lead.ID, "Volver a llamar", uuid.New())
	if err != nil {
		t.Fatalf("SetStage: %v", err)
	}
	if resp.StageLabel != "Volver a llamar" || resp.StageID != "call_back" {
		t.Fatalf("unexpected stage %q/%q", resp.StageLabel, resp.StageID)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.published))
	}
	changed, ok := bus.published[0].(events.LeadStageChanged)
	if !ok || changed.FromKey != "assigned" || changed.ToKey != "call_back" {
		t.Fatalf("unexpected event %#v", bus.published[0])
	}
}

func TestSetStageSameCanonicalStageIsNoop(t *testing.T) {
	repo := newFakeRepo()
	svc, bus := newTestService(repo)
	owner := uuid.New()
	lead := repo.addLead("contactada", &owner)

	resp, err := svc.SetStage(context.Background(), lead.ID, "contacted", uuid.New())
	if err != nil {
		t.Fatalf("SetStage: %v", err)
	}
	if resp.StageLabel != "contactada" {
		t.Fatalf("label should be untouched, got %q", resp.StageLabel)
	}
	if len(bus.published) != 0 {
		t.Fatalf("no event expected for a no-op")
	}
}

func TestSetStageUnknownStageIsValidation(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	owner := uuid.New()
	lead := repo.addLead("Asignado", &owner)

	_, err := svc.SetStage(context.Background(), lead.ID, "teleported", uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetOwnerOnTerminalLeadIsConflict(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	owner := uuid.New()
	lead := repo.addLead("Venta cerrada", &owner)

	newOwner := uuid.New()
	_, err := svc.SetOwner(context.Background(), lead.ID, &newOwner, uuid.New())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestSetOwnerKeepsHistoryAndPublishes(t *testing.T) {
	repo := newFakeRepo()
	svc, bus := newTestService(repo)
	first := uuid.New()
	lead := repo.addLead("Contactado", &first)

	second := uuid.New()
	resp, err := svc.SetOwner(context.Background(), lead.ID, &second, uuid.New())
	if err != nil {
		t.Fatalf("SetOwner: %v", err)
	}
	if resp.OwnerID == nil || *resp.OwnerID != second {
		t.Fatalf("expected new owner, got %v", resp.OwnerID)
	}
	if len(resp.Assignments) != 2 || resp.Assignments[1].Active {
		t.Fatalf("previous assignment should be kept inactive: %+v", resp.Assignments)
	}
	if resp.StageID != "contacted" {
		t.Fatalf("reassignment must not change stage, got %s", resp.StageID)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.published))
	}

	// Same owner again does not create history or events.
	if _, err := svc.SetOwner(context.Background(), lead.ID, &second, uuid.New()); err != nil {
		t.Fatalf("SetOwner again: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("idempotent assignment published an event")
	}
}

func TestSetOwnerUnknownLead(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())
	owner := uuid.New()
	_, err := svc.SetOwner(context.Background(), uuid.New(), &owner, uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateNormalizesPhoneAndStartsPending(t *testing.T) {
	repo := newFakeRepo()
	svc, bus := newTestService(repo)

	resp, err := svc.Create(context.Background(), uuid.New(), transport.CreateLeadRequest{
		Name:  "  Ana   <b>Pérez</b> ",
		Phone: "912 345 678",
		Email: " ANA@Example.com ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Phone != "+51912345678" || resp.Name != "Ana Pérez" {
		t.Fatalf("unexpected normalization: %q %q", resp.Phone, resp.Name)
	}
	if resp.Email == nil || *resp.Email != "ana@example.com" {
		t.Fatalf("unexpected email %v", resp.Email)
	}
	if resp.StageID != "pending" || resp.OwnerID != nil {
		t.Fatalf("new lead should be pending without owner")
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected LeadCreated event")
	}

	if _, err := svc.Create(context.Background(), uuid.New(), transport.CreateLeadRequest{Name: "x", Phone: "12"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for bad phone, got %v", err)
	}
}

func TestListResolvesStageFilterAndPaging(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	repo.addLead("Pendiente", nil)
	repo.addLead("No contesta", nil)

	resp, err := svc.List(context.Background(), transport.ListLeadsRequest{Stage: "No contesta", Page: 2, PageSize: 500})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.lastParams.StageKey == nil || *repo.lastParams.StageKey != "no_answer" {
		t.Fatalf("expected stage filter to be resolved, got %v", repo.lastParams.StageKey)
	}
	if repo.lastParams.Limit != maxPageSize || repo.lastParams.Offset != maxPageSize {
		t.Fatalf("unexpected paging %+v", repo.lastParams)
	}
	if resp.PageSize != maxPageSize || resp.Total != 1 || resp.TotalPages != 1 {
		t.Fatalf("unexpected response paging %+v", resp)
	}

	if _, err := svc.List(context.Background(), transport.ListLeadsRequest{Stage: "nope"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unknown stage filter")
	}
}

func TestListStageFilterMatchesResolvedLabel(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	legacy := repo.addLead("Ganado", nil)
	mislabeled := repo.addLead("venta cerrada", nil)
	stale := "pending"
	repo.keys[mislabeled.ID] = &stale
	repo.addLead("Pendiente", nil)

	resp, err := svc.List(context.Background(), transport.ListLeadsRequest{Stage: "won"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].ID != legacy.ID {
		t.Fatalf("expected the keyless won lead, got %+v", resp.Items)
	}

	n, err := svc.SyncStageKeys(context.Background(), false)
	if err != nil {
		t.Fatalf("SyncStageKeys: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected only the stale key rewritten, got %d", n)
	}
	resp, err = svc.List(context.Background(), transport.ListLeadsRequest{Stage: "Ganado"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected both won leads, got %d", resp.Total)
	}
	for _, item := range resp.Items {
		if item.StageID != domain.StageWon.Key() {
			t.Fatalf("filtered item reports stage %q", item.StageID)
		}
	}
}

func TestLoadCatalogFallsBackWhenStagesUnavailable(t *testing.T) {
	repo := newFakeRepo()
	repo.stagesErr = errors.New("connection refused")

	catalog, err := LoadCatalog(context.Background(), repo, "", logger.Discard())
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if catalog.Resolve("Ganado") != domain.StageWon {
		t.Fatalf("expected built-in catalog")
	}

	repo.stagesErr = nil
	repo.stages = []domain.Definition{{Key: "won", Label: "Cliente"}}
	catalog, err = LoadCatalog(context.Background(), repo, "", logger.Discard())
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if catalog.Label(domain.StageWon) != "Cliente" {
		t.Fatalf("expected remote label")
	}
}

func TestActiveCampaign(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	active := domain.Campaign{ID: uuid.New(), Name: "Verano", Active: true}
	inactive := domain.Campaign{ID: uuid.New(), Name: "Invierno"}
	repo.campaigns[active.ID] = active
	repo.campaigns[inactive.ID] = inactive

	if _, err := svc.ActiveCampaign(context.Background(), active.ID); err != nil {
		t.Fatalf("expected active campaign, got %v", err)
	}
	if _, err := svc.ActiveCampaign(context.Background(), inactive.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("inactive campaign should be a validation error, got %v", err)
	}
	if _, err := svc.ActiveCampaign(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown campaign should be a validation error, got %v", err)
	}
}

func TestSubscribeActivityRecordsChanges(t *testing.T) {
	repo := newFakeRepo()
	bus := events.NewInMemoryBus(logger.Discard())
	SubscribeActivity(bus, repo)
	svc := New(repo, bus, domain.DefaultCatalog(), "PE", logger.Discard())

	lead := repo.addLead("Pendiente", nil)
	owner := uuid.New()
	if _, err := svc.SetOwner(context.Background(), lead.ID, &owner, uuid.New()); err != nil {
		t.Fatalf("SetOwner: %v", err)
	}
	if _, err := svc.SetStage(context.Background(), lead.ID, "assigned", uuid.New()); err != nil {
		t.Fatalf("SetStage: %v", err)
	}
	bus.Wait()

	items, err := svc.Activity(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	actions := map[string]bool{}
	for _, item := range items {
		actions[item.Action] = true
	}
	if !actions[domain.ActionOwnerChanged] || !actions[domain.ActionStageChanged] {
		t.Fatalf("expected owner and stage activity, got %v", actions)
	}
}
