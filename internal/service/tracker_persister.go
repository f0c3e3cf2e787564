package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

type trackerWriter interface {
	UpdateTrackerField(ctx context.Context, projectID string, kind models.TrackerKind, payload string) error
}

type snapshotStore interface {
	Save(ctx context.Context, kind models.TrackerKind, projectID, payload string) error
	Load(ctx context.Context, kind models.TrackerKind, projectID string) (string, error)
}

// Persist outcomes reported to metrics.
const (
	persistSuccess = "success"
	persistFailure = "failure"
	persistSkipped = "skipped"
)

// PersisterConfig tunes a TrackerPersister.
type PersisterConfig struct {
	Window time.Duration
}

// TrackerPersister saves a tracker's partition after a quiet period.
//
// Each Schedule call re-arms a single timer. When it fires the full partition
// is serialized and written with one update call, unless the payload equals
// the last successful write. While a deletion is in flight a fired timer
// re-arms instead of writing.
type TrackerPersister struct {
	projectID string
	kind      models.TrackerKind
	source    func() models.YearPartition
	writer    trackerWriter
	backup    snapshotStore
	metrics   *MetricsService
	logger    *zap.Logger
	window    time.Duration

	mu            sync.Mutex
	timer         *time.Timer
	armed         bool
	generation    uint64
	closed        bool
	suppressed    func() bool
	lastPersisted string

	// flushMu keeps at most one write in flight.
	flushMu sync.Mutex
}

// NewTrackerPersister constructs a persister reading the partition from source.
func NewTrackerPersister(projectID string, kind models.TrackerKind, source func() models.YearPartition, writer trackerWriter, backup snapshotStore, metrics *MetricsService, logger *zap.Logger, cfg PersisterConfig) *TrackerPersister {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	return &TrackerPersister{
		projectID:  projectID,
		kind:       kind,
		source:     source,
		writer:     writer,
		backup:     backup,
		metrics:    metrics,
		logger:     logger.With(zap.String("project_id", projectID), zap.String("tracker", string(kind))),
		window:     cfg.Window,
		suppressed: func() bool { return false },
	}
}

// SetSuppressor installs the check consulted before every non-bypassing save.
func (p *TrackerPersister) SetSuppressor(fn func() bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn == nil {
		fn = func() bool { return false }
	}
	p.suppressed = fn
}

// SetBaseline records payload as already persisted, typically right after a load.
func (p *TrackerPersister) SetBaseline(payload string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPersisted = payload
}

// LastPersisted returns the payload of the last successful write.
func (p *TrackerPersister) LastPersisted() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPersisted
}

// Schedule (re)starts the quiet-period timer, replacing any pending save.
func (p *TrackerPersister) Schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.armed = true
	// A callback already running for a replaced timer sees a newer generation and exits.
	p.generation++
	gen := p.generation
	p.timer = time.AfterFunc(p.window, func() { p.fire(gen) })
}

// Pending reports whether a debounced save is armed.
func (p *TrackerPersister) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.armed
}

// Dirty reports whether the current partition differs from the last successful write.
func (p *TrackerPersister) Dirty() bool {
	payload, err := SerializePartition(p.source())
	if err != nil {
		return true
	}
	return payload != p.LastPersisted()
}

func (p *TrackerPersister) fire(gen uint64) {
	p.mu.Lock()
	if p.closed || !p.armed || gen != p.generation {
		p.mu.Unlock()
		return
	}
	suppressed := p.suppressed
	p.mu.Unlock()

	if suppressed() {
		p.logger.Debug("tracker save deferred while deletion in progress")
		p.Schedule()
		return
	}
	if _, err := p.Flush(context.Background(), false); err != nil {
		p.logger.Warn("debounced tracker save failed", zap.Error(err))
	}
}

// Flush cancels any pending timer and saves now. With force the unchanged
// payload check is skipped. When a deletion is in flight the save is deferred
// to the timer and Flush reports false without error.
func (p *TrackerPersister) Flush(ctx context.Context, force bool) (bool, error) {
	p.mu.Lock()
	suppressed := p.suppressed
	p.mu.Unlock()
	if suppressed() {
		p.Schedule()
		return false, nil
	}
	p.disarm()
	return p.persist(ctx, force)
}

// PersistNow saves immediately regardless of suppression. The deletion
// coordinator uses it for the deletion's own write.
func (p *TrackerPersister) PersistNow(ctx context.Context) error {
	p.disarm()
	_, err := p.persist(ctx, true)
	return err
}

// WriteBackup stores the current partition in the backup store without
// touching the durable copy.
func (p *TrackerPersister) WriteBackup(ctx context.Context) error {
	if p.backup == nil {
		return nil
	}
	payload, err := SerializePartition(p.source())
	if err != nil {
		return err
	}
	return p.backup.Save(ctx, p.kind, p.projectID, payload)
}

// Close stops the timer and makes a best effort final save. When the durable
// write fails the backup still receives the latest payload.
func (p *TrackerPersister) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
	}
	p.armed = false
	p.mu.Unlock()

	if !p.Dirty() {
		return nil
	}
	if _, err := p.persist(ctx, false); err != nil {
		if backupErr := p.WriteBackup(ctx); backupErr != nil {
			p.logger.Error("tracker backup on close failed", zap.Error(backupErr))
		}
		return err
	}
	return nil
}

func (p *TrackerPersister) disarm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.armed = false
	p.generation++
}

func (p *TrackerPersister) persist(ctx context.Context, force bool) (bool, error) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	payload, err := SerializePartition(p.source())
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize tracker")
	}
	if !force && payload == p.LastPersisted() {
		p.metrics.RecordTrackerPersist(string(p.kind), persistSkipped, 0)
		p.logger.Debug("tracker unchanged, save skipped")
		return false, nil
	}

	start := time.Now()
	if err := p.writer.UpdateTrackerField(ctx, p.projectID, p.kind, payload); err != nil {
		p.metrics.RecordTrackerPersist(string(p.kind), persistFailure, time.Since(start))
		p.logger.Error("tracker save failed", zap.Error(err))
		return false, appErrors.Wrap(err, appErrors.ErrPersistFailed.Code, appErrors.ErrPersistFailed.Status, appErrors.ErrPersistFailed.Message)
	}
	p.metrics.RecordTrackerPersist(string(p.kind), persistSuccess, time.Since(start))
	p.SetBaseline(payload)

	if p.backup != nil {
		if err := p.backup.Save(ctx, p.kind, p.projectID, payload); err != nil {
			p.logger.Warn("tracker backup failed", zap.Error(err))
		}
	}
	return true, nil
}
