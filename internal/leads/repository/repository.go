package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadboard_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("lead not found")
	ErrCampaignNotFound = errors.New("campaign not found")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const leadColumns = `l.id, l.name, l.phone, l.email, l.document_id, l.city, l.occupation, l.notes,
	l.campaign_id, l.stage_label, l.created_at, l.updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.DocumentID, &lead.City, &lead.Occupation, &lead.Notes,
		&lead.CampaignID, &lead.StageLabel, &lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

type ListParams struct {
	CampaignID *uuid.UUID
	StageKey   *string
	OwnerID    *uuid.UUID
	Unassigned bool
	Search     string
	Offset     int
	Limit      int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads l WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leads l
		WHERE %s
		ORDER BY l.created_at ASC, l.id ASC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	if err := r.attachAssignments(ctx, r.pool, leads); err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []any, int) {
	whereClauses := []string{"TRUE"}
	args := make([]any, 0, 4)
	argIdx := 1

	if params.CampaignID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.campaign_id = $%d", argIdx))
		args = append(args, *params.CampaignID)
		argIdx++
	}
	if params.StageKey != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.stage_key = $%d", argIdx))
		args = append(args, *params.StageKey)
		argIdx++
	}
	if params.OwnerID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM lead_assignments a WHERE a.lead_id = l.id AND a.active AND a.owner_id = $%d)", argIdx))
		args = append(args, *params.OwnerID)
		argIdx++
	}
	if params.Unassigned {
		whereClauses = append(whereClauses, "NOT EXISTS (SELECT 1 FROM lead_assignments a WHERE a.lead_id = l.id AND a.active)")
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(l.name ILIKE $%d OR l.phone ILIKE $%d OR l.email ILIKE $%d OR l.document_id ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+search+"%")
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

// attachAssignments loads the assignment history of every lead, active first.
func (r *Repository) attachAssignments(ctx context.Context, q querier, leads []domain.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(leads))
	index := make(map[uuid.UUID]int, len(leads))
	for i, lead := range leads {
		ids[i] = lead.ID
		index[lead.ID] = i
	}

	rows, err := q.Query(ctx, `
		SELECT id, lead_id, owner_id, actor_id, assigned_at, active
		FROM lead_assignments
		WHERE lead_id = ANY($1)
		ORDER BY active DESC, assigned_at DESC
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.ID, &a.LeadID, &a.OwnerID, &a.ActorID, &a.AssignedAt, &a.Active); err != nil {
			return err
		}
		i := index[a.LeadID]
		leads[i].Assignments = append(leads[i].Assignments, a)
	}
	return rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return r.getByID(ctx, r.pool, id, false)
}

func (r *Repository) getByID(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (domain.Lead, error) {
	query := fmt.Sprintf("SELECT %s FROM leads l WHERE l.id = $1", leadColumns)
	if forUpdate {
		query += " FOR UPDATE"
	}
	lead, err := scanLead(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	leads := []domain.Lead{lead}
	if err := r.attachAssignments(ctx, q, leads); err != nil {
		return domain.Lead{}, err
	}
	return leads[0], nil
}

type CreateLeadParams struct {
	Name       string
	Phone      string
	Email      *string
	DocumentID *string
	City       *string
	Occupation *string
	Notes      *string
	CampaignID *uuid.UUID
	StageLabel string
	StageKey   string
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	query := fmt.Sprintf(`
		INSERT INTO leads AS l (id, name, phone, email, document_id, city, occupation, notes, campaign_id, stage_label, stage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s
	`, leadColumns)
	return scanLead(r.pool.QueryRow(ctx, query,
		uuid.New(), params.Name, params.Phone, params.Email, params.DocumentID, params.City, params.Occupation, params.Notes,
		params.CampaignID, params.StageLabel, params.StageKey,
	))
}

// StageKeyGroup is a distinct stored (stage_label, stage_key) pair. Key is nil
// for rows written without one.
type StageKeyGroup struct {
	Label string
	Key   *string
}

// StageKeyGroups lists the distinct label/key pairs. With unsetOnly only rows
// without a key are considered.
func (r *Repository) StageKeyGroups(ctx context.Context, unsetOnly bool) ([]StageKeyGroup, error) {
	query := `SELECT DISTINCT stage_label, stage_key FROM leads`
	if unsetOnly {
		query += ` WHERE stage_key IS NULL`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []StageKeyGroup
	for rows.Next() {
		var g StageKeyGroup
		if err := rows.Scan(&g.Label, &g.Key); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// SetStageKey rewrites the key of every lead in the group to key. It leaves
// updated_at alone: the key is derived data.
func (r *Repository) SetStageKey(ctx context.Context, group StageKeyGroup, key string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET stage_key = $3 WHERE stage_label = $1 AND stage_key IS NOT DISTINCT FROM $2`,
		group.Label, group.Key, key)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PhoneExistsInCampaign reports whether a lead with phone is already part of
// the campaign.
func (r *Repository) PhoneExistsInCampaign(ctx context.Context, campaignID uuid.UUID, phone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leads WHERE campaign_id = $1 AND phone = $2)`,
		campaignID, phone,
	).Scan(&exists)
	return exists, err
}

// Guard inspects the locked lead inside a mutation transaction. Returning an
// error aborts the transaction.
type Guard func(lead domain.Lead) error

// OwnerChange is the outcome of ChangeOwner.
type OwnerChange struct {
	Lead          domain.Lead
	PreviousOwner *uuid.UUID
	Changed       bool
}

// ChangeOwner locks the lead row, runs guard and then replaces the active
// assignment. Previous assignments are deactivated, never deleted. A nil
// ownerID only deactivates. Setting the current owner again is a no-op.
func (r *Repository) ChangeOwner(ctx context.Context, leadID uuid.UUID, ownerID *uuid.UUID, actorID uuid.UUID, guard Guard) (OwnerChange, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return OwnerChange{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := r.getByID(ctx, tx, leadID, true)
	if err != nil {
		return OwnerChange{}, err
	}
	if guard != nil {
		if err := guard(lead); err != nil {
			return OwnerChange{}, err
		}
	}

	previous := lead.OwnerID()
	if sameOwner(previous, ownerID) {
		return OwnerChange{Lead: lead, PreviousOwner: previous}, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE lead_assignments SET active = FALSE WHERE lead_id = $1 AND active`, leadID); err != nil {
		return OwnerChange{}, err
	}
	if ownerID != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO lead_assignments (id, lead_id, owner_id, actor_id, assigned_at, active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
		`, uuid.New(), leadID, *ownerID, actorID, time.Now().UTC()); err != nil {
			return OwnerChange{}, err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE leads SET updated_at = now() WHERE id = $1`, leadID); err != nil {
		return OwnerChange{}, err
	}

	updated, err := r.getByID(ctx, tx, leadID, false)
	if err != nil {
		return OwnerChange{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return OwnerChange{}, err
	}
	return OwnerChange{Lead: updated, PreviousOwner: previous, Changed: true}, nil
}

func sameOwner(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StageChange is the outcome of ChangeStage.
type StageChange struct {
	Lead          domain.Lead
	PreviousLabel string
	Changed       bool
}

// ChangeStage locks the lead row, runs guard and stores the new stage.
func (r *Repository) ChangeStage(ctx context.Context, leadID uuid.UUID, label, key string, guard Guard) (StageChange, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return StageChange{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := r.getByID(ctx, tx, leadID, true)
	if err != nil {
		return StageChange{}, err
	}
	if guard != nil {
		if err := guard(lead); err != nil {
			return StageChange{}, err
		}
	}
	if lead.StageLabel == label {
		return StageChange{Lead: lead, PreviousLabel: label}, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE leads SET stage_label = $2, stage_key = $3, updated_at = now() WHERE id = $1`,
		leadID, label, key); err != nil {
		return StageChange{}, err
	}

	updated, err := r.getByID(ctx, tx, leadID, false)
	if err != nil {
		return StageChange{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return StageChange{}, err
	}
	return StageChange{Lead: updated, PreviousLabel: lead.StageLabel, Changed: true}, nil
}
