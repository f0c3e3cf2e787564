package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

type deletionHarness struct {
	store       *TrackerStore
	writer      *trackerWriterStub
	backup      *snapshotStoreStub
	persister   *TrackerPersister
	coordinator *DeletionCoordinator
}

func newDeletionHarness(t *testing.T, writer *trackerWriterStub, cfg DeletionConfig) *deletionHarness {
	t.Helper()
	store := NewTrackerStore(models.TrackerDocumentSections, seedPartition(), "2025")
	backup := newSnapshotStoreStub()
	persister := NewTrackerPersister("p1", store.Kind(), store.Mirror, writer, backup, nil, nil, PersisterConfig{Window: testWindow})
	baseline, err := SerializePartition(store.Mirror())
	require.NoError(t, err)
	persister.SetBaseline(baseline)

	coordinator := NewDeletionCoordinator(store, persister, nil, nil, cfg)
	persister.SetSuppressor(coordinator.InProgress)
	store.SetChangeListener(func(ChangeKind) { persister.Schedule() })
	coordinator.Start(context.Background())

	h := &deletionHarness{store: store, writer: writer, backup: backup, persister: persister, coordinator: coordinator}
	t.Cleanup(h.stop)
	return h
}

func (h *deletionHarness) stop() {
	h.coordinator.Stop()
	_ = h.persister.Close(context.Background())
}

func TestDeletionPersistsAndCoolsDown(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newDeletionHarness(t, &trackerWriterStub{}, DeletionConfig{Cooldown: 60 * time.Millisecond, QueueDelay: time.Millisecond})

	require.NoError(t, h.coordinator.DeleteSection(context.Background(), "sec-2"))

	assert.True(t, h.coordinator.InProgress())
	require.Len(t, h.writer.calls(), 1)
	assert.NotContains(t, h.writer.last(), "sec-2")
	assert.Equal(t, h.writer.last(), h.backup.get(models.TrackerDocumentSections, "p1"))

	require.Eventually(t, func() bool { return !h.coordinator.InProgress() }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testWindow)
	for _, payload := range h.writer.calls() {
		assert.NotContains(t, payload, "sec-2")
	}
	h.stop()
}

func TestDeletionRollsBackOnPersistFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	writer := &trackerWriterStub{err: errors.New("remote rejected")}
	h := newDeletionHarness(t, writer, DeletionConfig{Cooldown: time.Second})
	before := h.store.Snapshot()

	err := h.coordinator.DeleteSection(context.Background(), "sec-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPersistFailed))

	if diff := cmp.Diff(before, h.store.Snapshot()); diff != "" {
		t.Fatalf("rollback mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, h.backup.get(models.TrackerDocumentSections, "p1"), "sec-1")
	require.Eventually(t, func() bool { return !h.coordinator.InProgress() }, time.Second, 5*time.Millisecond,
		"failed deletions do not start a cooldown")

	err = h.coordinator.DeleteDocument(context.Background(), "2025", "sec-1", "doc-2")
	assert.True(t, errors.Is(err, appErrors.ErrPersistFailed))
	assert.Empty(t, cmp.Diff(before, h.store.Snapshot()))
	h.stop()
}

func TestDeletionUnknownTargetIsNotFound(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newDeletionHarness(t, &trackerWriterStub{}, DeletionConfig{})

	err := h.coordinator.DeleteDocument(context.Background(), "2025", "sec-1", "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, h.writer.calls())
	h.stop()
}

func TestDeletionsRunSequentially(t *testing.T) {
	defer goleak.VerifyNone(t)

	writer := &trackerWriterStub{delay: 15 * time.Millisecond}
	h := newDeletionHarness(t, writer, DeletionConfig{Cooldown: 10 * time.Millisecond, QueueDelay: 5 * time.Millisecond})

	var wg sync.WaitGroup
	errs := make([]error, 3)
	targets := []func(ctx context.Context) error{
		func(ctx context.Context) error { return h.coordinator.DeleteDocument(ctx, "2025", "sec-1", "doc-1") },
		func(ctx context.Context) error { return h.coordinator.DeleteDocument(ctx, "2025", "sec-1", "doc-2") },
		func(ctx context.Context) error { return h.coordinator.DeleteSection(ctx, "sec-2") },
	}
	for i, fn := range targets {
		wg.Add(1)
		go func(i int, fn func(context.Context) error) {
			defer wg.Done()
			errs[i] = fn(context.Background())
		}(i, fn)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.False(t, writer.overlap.Load(), "deletion writes overlapped")
	assert.Len(t, writer.calls(), 3)

	final := writer.last()
	for _, id := range []string{"doc-2", "doc-3", "sec-2"} {
		assert.False(t, strings.Contains(final, `"`+id+`"`), "%s resurrected", id)
	}
	assert.Empty(t, h.store.Sections("2025")[0].Documents)
	assert.Len(t, h.store.Sections("2024")[0].Documents, 1)
	h.stop()
}

func TestDeletionWaitHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	writer := &trackerWriterStub{delay: 50 * time.Millisecond}
	h := newDeletionHarness(t, writer, DeletionConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := h.coordinator.DeleteSection(ctx, "sec-2")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	require.Eventually(t, func() bool { return len(writer.calls()) == 1 }, time.Second, 5*time.Millisecond)
	h.stop()
}
