package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, s
}

func TestSnapshotRepositorySaveAndLoad(t *testing.T) {
	client, s := newTestRedis(t)
	repo := NewSnapshotRepository(client, 0)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, models.TrackerDocumentSections, "p1", `{"2025":[]}`))

	raw, err := s.Get("documentSectionsSnapshot_p1")
	require.NoError(t, err)
	assert.Equal(t, `{"2025":[]}`, raw)

	payload, err := repo.Load(ctx, models.TrackerDocumentSections, "p1")
	require.NoError(t, err)
	assert.Equal(t, `{"2025":[]}`, payload)

	_, err = repo.Load(ctx, models.TrackerWeeklyFMSReviewSections, "p1")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))

	require.NoError(t, repo.Delete(ctx, models.TrackerDocumentSections, "p1"))
	assert.False(t, s.Exists("documentSectionsSnapshot_p1"))
}

func TestSnapshotRepositoryTTL(t *testing.T) {
	client, s := newTestRedis(t)
	repo := NewSnapshotRepository(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, models.TrackerMonthlyFMSReviewSections, "p2", "{}"))
	assert.Equal(t, time.Minute, s.TTL("monthlyFMSReviewSectionsSnapshot_p2"))

	s.FastForward(2 * time.Minute)
	_, err := repo.Load(ctx, models.TrackerMonthlyFMSReviewSections, "p2")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestSnapshotRepositoryWithoutClient(t *testing.T) {
	repo := NewSnapshotRepository(nil, 0)
	assert.NoError(t, repo.Save(context.Background(), models.TrackerDocumentSections, "p1", "{}"))
	_, err := repo.Load(context.Background(), models.TrackerDocumentSections, "p1")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewCacheRepository(client, nil)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "templates:list", []string{"a", "b"}, time.Minute))
	var got []string
	require.NoError(t, repo.Get(ctx, "templates:list", &got))
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, repo.DeleteByPattern(ctx, "templates:*"))
	err := repo.Get(ctx, "templates:list", &got)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}
