package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadboard_backend/internal/imports/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrPreviewNotFound = errors.New("import preview not found or expired")

const previewKeyPrefix = "import:preview:"

// PreviewStore keeps upload previews in Redis until they expire.
type PreviewStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPreviewStore(rdb *redis.Client, ttl time.Duration) *PreviewStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PreviewStore{rdb: rdb, ttl: ttl}
}

// TTL returns how long a preview is kept.
func (s *PreviewStore) TTL() time.Duration {
	return s.ttl
}

func previewKey(id uuid.UUID) string {
	return previewKeyPrefix + id.String()
}

func (s *PreviewStore) Save(ctx context.Context, preview domain.Preview) error {
	data, err := json.Marshal(preview)
	if err != nil {
		return fmt.Errorf("marshal preview: %w", err)
	}
	return s.rdb.Set(ctx, previewKey(preview.ID), data, s.ttl).Err()
}

func (s *PreviewStore) Get(ctx context.Context, id uuid.UUID) (domain.Preview, error) {
	data, err := s.rdb.Get(ctx, previewKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Preview{}, ErrPreviewNotFound
	}
	if err != nil {
		return domain.Preview{}, err
	}

	var preview domain.Preview
	if err := json.Unmarshal(data, &preview); err != nil {
		return domain.Preview{}, fmt.Errorf("decode preview: %w", err)
	}
	return preview, nil
}

// Take reads and deletes a preview in one step so it can be confirmed only
// once.
func (s *PreviewStore) Take(ctx context.Context, id uuid.UUID) (domain.Preview, error) {
	data, err := s.rdb.GetDel(ctx, previewKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Preview{}, ErrPreviewNotFound
	}
	if err != nil {
		return domain.Preview{}, err
	}

	var preview domain.Preview
	if err := json.Unmarshal(data, &preview); err != nil {
		return domain.Preview{}, fmt.Errorf("decode preview: %w", err)
	}
	return preview, nil
}

func (s *PreviewStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.rdb.Del(ctx, previewKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPreviewNotFound
	}
	return nil
}
