package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/fms-tracker-api/internal/dto"
	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

type projectStore interface {
	FindByID(ctx context.Context, id string, kinds ...models.TrackerKind) (*models.Project, error)
	UpdateTrackerField(ctx context.Context, id string, kind models.TrackerKind, payload string) error
}

type templateApplier interface {
	Apply(store *TrackerStore, tpl models.Template, year string, replace bool) ([]models.Section, error)
}

type deepLinkResolver interface {
	Resolve(ctx context.Context, store cellLocator, target models.DeepLinkTarget) (*models.CellLocation, error)
}

type trackerExporter interface {
	Export(projectID string, kind models.TrackerKind, year string, sections []models.Section, format ExportFormat) (*ExportFile, error)
}

// SessionConfig tunes tracker sessions.
type SessionConfig struct {
	DebounceWindow     time.Duration
	DeletionCooldown   time.Duration
	DeletionQueueDelay time.Duration
	RefreshInterval    time.Duration
}

type sessionKey struct {
	projectID string
	kind      models.TrackerKind
}

func (k sessionKey) String() string {
	return string(k.kind) + "/" + k.projectID
}

// TrackerSessionService owns the open tracker sessions, one per project and
// tracker kind.
type TrackerSessionService struct {
	projects   projectStore
	snapshots  snapshotStore
	normalizer *TrackerNormalizer
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        SessionConfig
	now        func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	sessions map[sessionKey]*TrackerSession
	baseCtx  context.Context
}

// NewTrackerSessionService constructs the service.
func NewTrackerSessionService(projects projectStore, snapshots snapshotStore, metrics *MetricsService, logger *zap.Logger, cfg SessionConfig) *TrackerSessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackerSessionService{
		projects:   projects,
		snapshots:  snapshots,
		normalizer: NewTrackerNormalizer(logger),
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
		sessions:   make(map[sessionKey]*TrackerSession),
		baseCtx:    context.Background(),
	}
}

// CurrentYear is the fallback year for legacy payloads and the default selection.
func (svc *TrackerSessionService) CurrentYear() string {
	return fmt.Sprintf("%04d", svc.now().Year())
}

// Open returns the session for a project tracker, loading it on first use.
// Concurrent opens of the same tracker share one load.
func (svc *TrackerSessionService) Open(ctx context.Context, projectID string, kind models.TrackerKind) (*TrackerSession, error) {
	if _, ok := models.ParseTrackerKind(string(kind)); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown tracker %q", kind))
	}
	key := sessionKey{projectID: projectID, kind: kind}
	if session, ok := svc.Get(projectID, kind); ok {
		return session, nil
	}

	v, err, _ := svc.group.Do(key.String(), func() (interface{}, error) {
		if session, ok := svc.Get(projectID, kind); ok {
			return session, nil
		}
		partition, baseline, err := svc.load(ctx, projectID, kind)
		if err != nil {
			return nil, err
		}
		session := svc.newSession(key, partition, baseline)

		svc.mu.Lock()
		svc.sessions[key] = session
		svc.mu.Unlock()
		svc.metrics.SessionOpened()
		svc.logger.Info("tracker session opened", zap.String("project_id", projectID), zap.String("tracker", string(kind)))
		return session, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TrackerSession), nil
}

// Get returns an already open session.
func (svc *TrackerSessionService) Get(projectID string, kind models.TrackerKind) (*TrackerSession, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	session, ok := svc.sessions[sessionKey{projectID: projectID, kind: kind}]
	return session, ok
}

// Close flushes and drops one session. Closing an unknown session is a no-op.
func (svc *TrackerSessionService) Close(ctx context.Context, projectID string, kind models.TrackerKind) error {
	key := sessionKey{projectID: projectID, kind: kind}
	svc.mu.Lock()
	session, ok := svc.sessions[key]
	delete(svc.sessions, key)
	svc.mu.Unlock()
	if !ok {
		return nil
	}
	svc.metrics.SessionClosed()
	return session.Close(ctx)
}

// CloseAll flushes and drops every session, typically on shutdown.
func (svc *TrackerSessionService) CloseAll(ctx context.Context) error {
	svc.mu.Lock()
	sessions := svc.sessions
	svc.sessions = make(map[sessionKey]*TrackerSession)
	svc.mu.Unlock()

	var errs []error
	for key, session := range sessions {
		svc.metrics.SessionClosed()
		if err := session.Close(ctx); err != nil {
			svc.logger.Error("tracker session close failed", zap.String("session", key.String()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// load reads the remote column, falling back to the backup when the remote
// read fails. The returned baseline is the canonical payload known to be
// persisted; a backup load has none, so its content is saved on the next flush.
func (svc *TrackerSessionService) load(ctx context.Context, projectID string, kind models.TrackerKind) (models.YearPartition, string, error) {
	start := time.Now()
	project, err := svc.projects.FindByID(ctx, projectID, kind)
	svc.metrics.ObserveDBQuery("project_tracker_load", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		if svc.snapshots == nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tracker")
		}
		payload, backupErr := svc.snapshots.Load(ctx, kind, projectID)
		if backupErr != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tracker")
		}
		svc.logger.Warn("tracker loaded from backup", zap.String("project_id", projectID), zap.String("tracker", string(kind)), zap.Error(err))
		return svc.normalizer.Normalize(payload, svc.CurrentYear()), "", nil
	}

	partition := svc.normalizer.Normalize(project.TrackerField(kind), svc.CurrentYear())
	baseline, err := SerializePartition(partition)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize tracker")
	}
	return partition, baseline, nil
}

func (svc *TrackerSessionService) newSession(key sessionKey, partition models.YearPartition, baseline string) *TrackerSession {
	logger := svc.logger.With(zap.String("project_id", key.projectID), zap.String("tracker", string(key.kind)))
	store := NewTrackerStore(key.kind, partition, svc.CurrentYear())
	persister := NewTrackerPersister(key.projectID, key.kind, store.Mirror, svc.projects, svc.snapshots, svc.metrics, logger,
		PersisterConfig{Window: svc.cfg.DebounceWindow})
	persister.SetBaseline(baseline)
	deletions := NewDeletionCoordinator(store, persister, svc.metrics, logger, DeletionConfig{
		Cooldown:   svc.cfg.DeletionCooldown,
		QueueDelay: svc.cfg.DeletionQueueDelay,
	})
	persister.SetSuppressor(deletions.InProgress)
	store.SetChangeListener(func(kind ChangeKind) {
		if kind == ChangeStructural {
			persister.Schedule()
		}
	})

	ctx, cancel := context.WithCancel(svc.baseCtx)
	session := &TrackerSession{
		ProjectID: key.projectID,
		Kind:      key.kind,
		service:   svc,
		store:     store,
		persister: persister,
		deletions: deletions,
		logger:    logger,
		cancel:    cancel,
	}
	deletions.Start(ctx)
	if svc.cfg.RefreshInterval > 0 {
		session.wg.Add(1)
		go session.refreshLoop(ctx, svc.cfg.RefreshInterval)
	}
	return session
}

// TrackerSession is one open tracker: its store, persister and deletion
// coordinator. Request level operations are serialized so that selecting a
// year and mutating it happen together.
type TrackerSession struct {
	ProjectID string
	Kind      models.TrackerKind

	service   *TrackerSessionService
	store     *TrackerStore
	persister *TrackerPersister
	deletions *DeletionCoordinator
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// Store exposes the underlying store, mainly for read-only consumers.
func (s *TrackerSession) Store() *TrackerStore {
	return s.store
}

// View returns one year of the tracker; an empty year keeps the current selection.
func (s *TrackerSession) View(year string) (dto.TrackerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectLocked(year); err != nil {
		return dto.TrackerView{}, err
	}
	selected := s.store.SelectedYear()
	return dto.TrackerView{
		ProjectID: s.ProjectID,
		Kind:      s.Kind,
		Year:      selected,
		Years:     s.store.Years(),
		Statuses:  s.Kind.Statuses(),
		Sections:  s.store.Sections(selected),
	}, nil
}

// AddSection appends a section to the given year.
func (s *TrackerSession) AddSection(in dto.SectionInput) (models.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectLocked(in.Year); err != nil {
		return models.Section{}, err
	}
	return s.store.AddSection(in)
}

// UpdateSection edits a section of the given year.
func (s *TrackerSession) UpdateSection(sectionID string, in dto.SectionInput) (models.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectLocked(in.Year); err != nil {
		return models.Section{}, err
	}
	return s.store.UpdateSection(sectionID, in)
}

// DeleteSection runs a coordinated deletion and waits for its outcome.
func (s *TrackerSession) DeleteSection(ctx context.Context, sectionID string) error {
	return s.deletions.DeleteSection(ctx, sectionID)
}

// AddDocument appends a document to a section of the given year.
func (s *TrackerSession) AddDocument(sectionID string, in dto.DocumentInput) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectLocked(in.Year); err != nil {
		return models.Document{}, err
	}
	return s.store.AddDocument(sectionID, in)
}

// UpdateDocument edits a document of the given year.
func (s *TrackerSession) UpdateDocument(sectionID, documentID string, in dto.DocumentInput) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectLocked(in.Year); err != nil {
		return models.Document{}, err
	}
	return s.store.UpdateDocument(sectionID, documentID, in)
}

// DeleteDocument runs a coordinated deletion in year. The year is always
// explicit: the selected year is shared by every client of the session.
func (s *TrackerSession) DeleteDocument(ctx context.Context, year, sectionID, documentID string) error {
	if !models.IsYearKey(year) {
		return appErrors.Clone(appErrors.ErrValidation, "year must be a four digit year")
	}
	return s.deletions.DeleteDocument(ctx, year, sectionID, documentID)
}

// SetStatus sets or clears one cell and saves right away.
func (s *TrackerSession) SetStatus(ctx context.Context, req dto.SetStatusRequest) (dto.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectLocked(req.Year); err != nil {
		return dto.MutationResult{}, err
	}
	if err := s.store.SetStatus(req.SectionID, req.DocumentID, req.MonthKey, req.Status); err != nil {
		return dto.MutationResult{}, err
	}
	return s.flushLocked(ctx), nil
}

// ApplyStatus sets several cells as one transition and saves right away.
func (s *TrackerSession) ApplyStatus(ctx context.Context, req dto.BulkStatusRequest) (dto.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectLocked(req.Year); err != nil {
		return dto.MutationResult{}, err
	}
	s.store.SetSelection(req.Cells)
	if err := s.store.ApplyStatusToSelection(req.Status); err != nil {
		s.store.SetSelection(nil)
		return dto.MutationResult{}, err
	}
	return s.flushLocked(ctx), nil
}

// AddComment appends a comment by actor and saves right away.
func (s *TrackerSession) AddComment(ctx context.Context, req dto.AddCommentRequest, actor models.Actor) (models.Comment, dto.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectLocked(req.Year); err != nil {
		return models.Comment{}, dto.MutationResult{}, err
	}
	comment, err := s.store.AddComment(req.CellRef, req.Text, actor)
	if err != nil {
		return models.Comment{}, dto.MutationResult{}, err
	}
	return comment, s.flushLocked(ctx), nil
}

// DeleteComment removes a comment. Rejections never reach the durable store.
func (s *TrackerSession) DeleteComment(ctx context.Context, year string, cell models.CellRef, commentID string, actor models.Actor) (dto.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectLocked(year); err != nil {
		return dto.MutationResult{}, err
	}
	if err := s.store.DeleteComment(cell, commentID, actor); err != nil {
		return dto.MutationResult{}, err
	}
	return s.flushLocked(ctx), nil
}

// ApplyTemplate clones a template into year.
func (s *TrackerSession) ApplyTemplate(applier templateApplier, tpl models.Template, year string, replace bool) ([]models.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectLocked(year); err != nil {
		return nil, err
	}
	return applier.Apply(s.store, tpl, year, replace)
}

// Export renders a year without touching the store.
func (s *TrackerSession) Export(exporter trackerExporter, year string, format ExportFormat) (*ExportFile, error) {
	if year == "" {
		year = s.store.SelectedYear()
	}
	return exporter.Export(s.ProjectID, s.Kind, year, s.store.Sections(year), format)
}

// ResolveDeepLink locates a target and selects the year it lives in.
func (s *TrackerSession) ResolveDeepLink(ctx context.Context, resolver deepLinkResolver, target models.DeepLinkTarget) (*models.CellLocation, error) {
	loc, err := resolver.Resolve(ctx, s.store, target)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SelectYear(loc.Year); err != nil {
		return nil, err
	}
	return loc, nil
}

// Overwrite replaces the whole tracker and saves it at once. It is refused
// while a deletion is in progress.
func (s *TrackerSession) Overwrite(ctx context.Context, partition models.YearPartition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deletions.InProgress() {
		return appErrors.Clone(appErrors.ErrConflict, "tracker deletion in progress")
	}
	s.store.Replace(partition)
	return s.persister.PersistNow(ctx)
}

// Flush forces a save of the current state.
func (s *TrackerSession) Flush(ctx context.Context) (bool, error) {
	return s.persister.Flush(ctx, true)
}

// Refresh reloads the remote copy. It is skipped while a deletion is in
// progress or local edits are unsaved, and reports whether it reloaded.
func (s *TrackerSession) Refresh(ctx context.Context) (bool, error) {
	if s.deletions.InProgress() || s.persister.Pending() || s.persister.Dirty() {
		return false, nil
	}
	partition, baseline, err := s.service.load(ctx, s.ProjectID, s.Kind)
	if err != nil {
		return false, err
	}
	if baseline == "" {
		// Backup content is never treated as fresher than local state.
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deletions.InProgress() || s.persister.Pending() || s.persister.Dirty() {
		return false, nil
	}
	s.store.Replace(partition)
	s.persister.SetBaseline(baseline)
	return true, nil
}

// InProgress reports whether a deletion is queued, running or cooling down.
func (s *TrackerSession) InProgress() bool {
	return s.deletions.InProgress()
}

// Close stops background work and makes a final best effort save.
func (s *TrackerSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.deletions.Stop()
	return s.persister.Close(ctx)
}

func (s *TrackerSession) selectLocked(year string) error {
	if year == "" {
		return nil
	}
	return s.store.SelectYear(year)
}

// flushLocked saves a cell edit immediately. Failures are logged by the
// persister and reported as not persisted; the next edit retries.
func (s *TrackerSession) flushLocked(ctx context.Context) dto.MutationResult {
	persisted, err := s.persister.Flush(ctx, true)
	if err != nil {
		return dto.MutationResult{Persisted: false}
	}
	return dto.MutationResult{Persisted: persisted}
}

func (s *TrackerSession) refreshLoop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("tracker refresh failed", zap.Error(err))
			}
		}
	}
}
