package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fms-tracker-api/internal/dto"
	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

// ProjectService serves project reads and whole-field tracker writes.
type ProjectService struct {
	projects   projectStore
	sessions   *TrackerSessionService
	normalizer *TrackerNormalizer
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewProjectService constructs the service. Writes go through an open tracker
// session when sessions holds one for the field.
func NewProjectService(projects projectStore, sessions *TrackerSessionService, metrics *MetricsService, logger *zap.Logger) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		projects:   projects,
		sessions:   sessions,
		normalizer: NewTrackerNormalizer(logger),
		metrics:    metrics,
		logger:     logger,
	}
}

// ParseFields reads a comma separated list of tracker field names.
func ParseFields(raw string) ([]models.TrackerKind, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var kinds []models.TrackerKind
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		kind, ok := models.ParseTrackerKind(name)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown field %q", name))
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Get returns a project with the requested tracker fields normalized. An open
// session supplies its in-memory state, which may be ahead of the database.
func (s *ProjectService) Get(ctx context.Context, id string, kinds []models.TrackerKind) (*dto.ProjectEnvelope, error) {
	start := time.Now()
	project, err := s.projects.FindByID(ctx, id, kinds...)
	s.metrics.ObserveDBQuery("project_find", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}

	view := dto.ProjectView{
		ID:         project.ID,
		Name:       project.Name,
		ClientName: project.ClientName.String,
		Status:     project.Status.String,
		UpdatedAt:  project.UpdatedAt,
	}
	if len(kinds) > 0 {
		view.Trackers = make(map[models.TrackerKind]models.YearPartition, len(kinds))
		for _, kind := range kinds {
			if session, ok := s.sessionFor(id, kind); ok {
				view.Trackers[kind] = session.Store().Snapshot()
				continue
			}
			view.Trackers[kind] = s.normalizer.Normalize(project.TrackerField(kind), s.currentYear())
		}
	}
	return &dto.ProjectEnvelope{Project: view}, nil
}

// UpdateTrackers writes whole tracker fields. Each value may be the JSON
// encoded string the CRM stores or the partition object itself; both are
// normalized before storing. Every field is validated, encoded and checked
// against in-flight deletions before the first write, then fields are written
// one statement each in name order.
func (s *ProjectService) UpdateTrackers(ctx context.Context, id string, body map[string]json.RawMessage) (*dto.ProjectEnvelope, error) {
	if len(body) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	names := make([]string, 0, len(body))
	for name := range body {
		if _, ok := models.ParseTrackerKind(name); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown field %q", name))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	writes := make([]trackerWrite, 0, len(names))
	for _, name := range names {
		w, err := s.prepare(id, models.TrackerKind(name), body[name])
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
	}

	kinds := make([]models.TrackerKind, 0, len(writes))
	for _, w := range writes {
		if err := s.write(ctx, id, w); err != nil {
			return nil, err
		}
		kinds = append(kinds, w.kind)
	}
	return s.Get(ctx, id, kinds)
}

type trackerWrite struct {
	kind      models.TrackerKind
	partition models.YearPartition
	payload   string
}

func (s *ProjectService) prepare(id string, kind models.TrackerKind, raw json.RawMessage) (trackerWrite, error) {
	w := trackerWrite{kind: kind, partition: s.normalizer.Normalize(raw, s.currentYear())}
	if session, ok := s.sessionFor(id, kind); ok && session.InProgress() {
		return trackerWrite{}, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s deletion in progress", kind))
	}
	payload, err := SerializePartition(w.partition)
	if err != nil {
		return trackerWrite{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize tracker")
	}
	w.payload = payload
	return w, nil
}

func (s *ProjectService) write(ctx context.Context, id string, w trackerWrite) error {
	if session, ok := s.sessionFor(id, w.kind); ok {
		return session.Overwrite(ctx, w.partition)
	}
	start := time.Now()
	err := s.projects.UpdateTrackerField(ctx, id, w.kind, w.payload)
	s.metrics.ObserveDBQuery("project_tracker_update", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		s.logger.Error("tracker field update failed", zap.String("project_id", id), zap.String("tracker", string(w.kind)), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPersistFailed.Code, appErrors.ErrPersistFailed.Status, appErrors.ErrPersistFailed.Message)
	}
	return nil
}

func (s *ProjectService) sessionFor(id string, kind models.TrackerKind) (*TrackerSession, bool) {
	if s.sessions == nil {
		return nil, false
	}
	return s.sessions.Get(id, kind)
}

func (s *ProjectService) currentYear() string {
	if s.sessions != nil {
		return s.sessions.CurrentYear()
	}
	return fmt.Sprintf("%04d", time.Now().Year())
}
