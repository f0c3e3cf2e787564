package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fms-tracker-api/pkg/jobs"
)

const (
	deletionSuccess  = "success"
	deletionRollback = "rollback"

	jobDeleteSection  = "delete_section"
	jobDeleteDocument = "delete_document"
)

// DeletionConfig tunes a DeletionCoordinator.
type DeletionConfig struct {
	Cooldown   time.Duration
	QueueDelay time.Duration
}

type deletionRequest struct {
	year       string
	sectionID  string
	documentID string
	result     chan error
}

// DeletionCoordinator serializes section and document deletions for one tracker.
//
// A deletion removes the entity right away, writes the backup, then persists
// with suppression bypassed. A failed persist restores the entity at its old
// position. After a successful persist the coordinator stays in progress for
// a cooldown so that refreshes cannot resurrect the deleted row.
type DeletionCoordinator struct {
	store     *TrackerStore
	persister *TrackerPersister
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
	cooldown  time.Duration
	now       func() time.Time

	mu            sync.Mutex
	cooldownUntil time.Time
}

// NewDeletionCoordinator builds a coordinator; Start must be called before use.
func NewDeletionCoordinator(store *TrackerStore, persister *TrackerPersister, metrics *MetricsService, logger *zap.Logger, cfg DeletionConfig) *DeletionCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	d := &DeletionCoordinator{
		store:     store,
		persister: persister,
		metrics:   metrics,
		logger:    logger.With(zap.String("tracker", string(store.Kind()))),
		cooldown:  cfg.Cooldown,
		now:       time.Now,
	}
	d.queue = jobs.NewQueue("tracker-deletions", d.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 32,
		MaxRetries: -1,
		ItemDelay:  cfg.QueueDelay,
		Logger:     logger,
	})
	return d
}

// Start launches the worker.
func (d *DeletionCoordinator) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop waits for the worker to exit. Queued deletions that never ran report
// a cancellation to nobody; callers waiting on them see their own context end.
func (d *DeletionCoordinator) Stop() {
	d.queue.Stop()
}

// InProgress reports whether a deletion is queued, running or cooling down.
func (d *DeletionCoordinator) InProgress() bool {
	if d.queue.Pending() > 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now().Before(d.cooldownUntil)
}

// DeleteSection removes a section from every year and waits for the outcome.
func (d *DeletionCoordinator) DeleteSection(ctx context.Context, sectionID string) error {
	return d.submit(ctx, jobDeleteSection, &deletionRequest{sectionID: sectionID})
}

// DeleteDocument removes a document from one year's section and waits for the outcome.
func (d *DeletionCoordinator) DeleteDocument(ctx context.Context, year, sectionID, documentID string) error {
	return d.submit(ctx, jobDeleteDocument, &deletionRequest{year: year, sectionID: sectionID, documentID: documentID})
}

func (d *DeletionCoordinator) submit(ctx context.Context, jobType string, req *deletionRequest) error {
	req.result = make(chan error, 1)
	if err := d.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: req}); err != nil {
		return err
	}
	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DeletionCoordinator) handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(*deletionRequest)
	if !ok {
		return errors.New("unexpected deletion payload")
	}
	req.result <- d.run(ctx, job.Type, req)
	return nil
}

func (d *DeletionCoordinator) run(ctx context.Context, jobType string, req *deletionRequest) error {
	var rollback func()
	switch jobType {
	case jobDeleteSection:
		removed, err := d.store.DeleteSection(req.sectionID)
		if err != nil {
			return err
		}
		rollback = func() { d.store.RestoreSections(removed) }
	case jobDeleteDocument:
		removed, err := d.store.DeleteDocumentInYear(req.year, req.sectionID, req.documentID)
		if err != nil {
			return err
		}
		rollback = func() {
			if err := d.store.RestoreDocument(removed); err != nil {
				d.logger.Error("document rollback failed", zap.String("document_id", removed.Document.ID), zap.Error(err))
			}
		}
	default:
		return errors.New("unknown deletion type " + jobType)
	}

	if err := d.persister.WriteBackup(ctx); err != nil {
		d.logger.Warn("backup after deletion failed", zap.Error(err))
	}

	if err := d.persister.PersistNow(ctx); err != nil {
		rollback()
		if backupErr := d.persister.WriteBackup(ctx); backupErr != nil {
			d.logger.Warn("backup after rollback failed", zap.Error(backupErr))
		}
		d.metrics.RecordTrackerDeletion(string(d.store.Kind()), deletionRollback)
		d.logger.Error("deletion rolled back",
			zap.String("type", jobType),
			zap.String("section_id", req.sectionID),
			zap.String("document_id", req.documentID),
			zap.Error(err))
		return err
	}

	d.mu.Lock()
	d.cooldownUntil = d.now().Add(d.cooldown)
	d.mu.Unlock()
	d.metrics.RecordTrackerDeletion(string(d.store.Kind()), deletionSuccess)
	return nil
}
