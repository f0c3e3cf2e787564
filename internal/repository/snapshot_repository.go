package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

// SnapshotRepository keeps the last known good tracker payload per project in
// Redis, keyed like "documentSectionsSnapshot_<projectId>".
type SnapshotRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotRepository constructs the repository. A zero ttl keeps entries forever.
func NewSnapshotRepository(client *redis.Client, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{client: client, ttl: ttl}
}

// Save overwrites the snapshot for a project.
func (r *SnapshotRepository) Save(ctx context.Context, kind models.TrackerKind, projectID, payload string) error {
	if r.client == nil {
		return nil
	}
	key := kind.SnapshotKey(projectID)
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Load returns the stored snapshot or ErrCacheMiss.
func (r *SnapshotRepository) Load(ctx context.Context, kind models.TrackerKind, projectID string) (string, error) {
	if r.client == nil {
		return "", appErrors.ErrCacheMiss
	}
	key := kind.SnapshotKey(projectID)
	payload, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return payload, nil
}

// Delete drops the snapshot for a project.
func (r *SnapshotRepository) Delete(ctx context.Context, kind models.TrackerKind, projectID string) error {
	if r.client == nil {
		return nil
	}
	key := kind.SnapshotKey(projectID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}
