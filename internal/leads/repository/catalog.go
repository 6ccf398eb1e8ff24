package repository

import (
	"context"
	"encoding/json"
	"errors"

	"leadboard_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListStages returns the persisted stage catalog in board order.
func (r *Repository) ListStages(ctx context.Context) ([]domain.Definition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, label, aliases, terminal, position
		FROM stages
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make([]domain.Definition, 0)
	for rows.Next() {
		var def domain.Definition
		if err := rows.Scan(&def.Key, &def.Label, &def.Aliases, &def.Terminal, &def.Position); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return defs, nil
}

func (r *Repository) ListCampaigns(ctx context.Context, activeOnly bool) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, active, created_at
		FROM campaigns
		WHERE active OR NOT $1
		ORDER BY name ASC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Campaign, 0)
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) GetCampaign(ctx context.Context, id uuid.UUID) (domain.Campaign, error) {
	var c domain.Campaign
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, active, created_at FROM campaigns WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Campaign{}, ErrCampaignNotFound
	}
	return c, err
}

func (r *Repository) AddActivity(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID, action string, meta map[string]any) error {
	if meta == nil {
		meta = map[string]any{}
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO lead_activity (id, lead_id, actor_id, action, meta)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), leadID, actorID, action, payload)
	return err
}

func (r *Repository) ListActivity(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Activity, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, actor_id, action, meta, created_at
		FROM lead_activity
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Activity, 0)
	for rows.Next() {
		var item domain.Activity
		var meta []byte
		if err := rows.Scan(&item.ID, &item.LeadID, &item.ActorID, &item.Action, &meta, &item.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &item.Meta); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
