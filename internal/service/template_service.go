package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fms-tracker-api/internal/dto"
	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

const (
	templateCacheList   = "templates:list"
	templateCachePrefix = "templates:"
)

type templateRepository interface {
	List(ctx context.Context) ([]models.Template, error)
	FindByID(ctx context.Context, id string) (*models.Template, error)
	Create(ctx context.Context, tpl *models.Template) error
	Update(ctx context.Context, tpl *models.Template) error
	Delete(ctx context.Context, id string) error
}

type templateCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// TemplateServiceConfig tunes template caching.
type TemplateServiceConfig struct {
	CacheTTL time.Duration
}

// TemplateService manages document-collection templates and applies them to trackers.
type TemplateService struct {
	repo      templateRepository
	cache     templateCache
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TemplateServiceConfig
}

// NewTemplateService constructs a TemplateService. cache may be nil.
func NewTemplateService(repo templateRepository, cache templateCache, validate *validator.Validate, logger *zap.Logger, cfg TemplateServiceConfig) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{repo: repo, cache: cache, validator: validate, logger: logger, cfg: cfg}
}

// List returns every template, defaults first.
func (s *TemplateService) List(ctx context.Context) ([]models.Template, error) {
	var cached []models.Template
	if s.cacheGet(ctx, templateCacheList, &cached) {
		return cached, nil
	}
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	s.cacheSet(ctx, templateCacheList, templates)
	return templates, nil
}

// Get returns one template.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.Template, error) {
	var cached models.Template
	if s.cacheGet(ctx, templateCachePrefix+id, &cached) {
		return &cached, nil
	}
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	s.cacheSet(ctx, templateCachePrefix+id, tpl)
	return tpl, nil
}

// Create stores a new template. Only admins may create default templates.
func (s *TemplateService) Create(ctx context.Context, req dto.TemplateRequest, actor *models.JWTClaims) (*models.Template, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	isDefault := req.IsDefault != nil && *req.IsDefault
	if isDefault && !actor.Role.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can create default templates")
	}
	tpl := &models.Template{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Sections:    req.Sections,
		IsDefault:   isDefault,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create template")
	}
	s.invalidate(ctx)
	return tpl, nil
}

// Update rewrites a user template. Default templates are read-only.
func (s *TemplateService) Update(ctx context.Context, id string, req dto.TemplateRequest, actor *models.JWTClaims) (*models.Template, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	tpl, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsDefault != nil && *req.IsDefault {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a template cannot be promoted to default")
	}
	tpl.Name = req.Name
	tpl.Description = req.Description
	tpl.Sections = req.Sections
	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update template")
	}
	s.invalidate(ctx)
	return tpl, nil
}

// Delete removes a user template. Default templates are read-only.
func (s *TemplateService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if _, err := s.editable(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete template")
	}
	s.invalidate(ctx)
	return nil
}

// Apply clones the template's structure into one year of the store with
// fresh ids. Statuses and comments are never carried over and other years
// are untouched. With replace the year's sections are discarded first.
func (s *TemplateService) Apply(store *TrackerStore, tpl models.Template, year string, replace bool) ([]models.Section, error) {
	if !models.IsYearKey(year) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year must be a four digit year")
	}
	added := SectionsFromTemplate(tpl)
	if len(added) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "template has no sections")
	}
	err := store.SetSections(year, func(current []models.Section) []models.Section {
		if replace {
			current = nil
		}
		return append(current, models.CloneSections(added)...)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("template applied",
		zap.String("template_id", tpl.ID),
		zap.String("tracker", string(store.Kind())),
		zap.String("year", year),
		zap.Int("sections", len(added)),
		zap.Bool("replace", replace))
	return added, nil
}

// SectionsFromTemplate builds tracker sections from a template with new ids.
func SectionsFromTemplate(tpl models.Template) []models.Section {
	sections := make([]models.Section, 0, len(tpl.Sections))
	for _, ts := range tpl.Sections {
		name := strings.TrimSpace(ts.Name)
		if name == "" {
			continue
		}
		section := models.Section{
			ID:          uuid.NewString(),
			Name:        name,
			Description: ts.Description,
			Documents:   make([]models.Document, 0, len(ts.Documents)),
		}
		for _, td := range ts.Documents {
			docName := strings.TrimSpace(td.Name)
			if docName == "" {
				continue
			}
			section.Documents = append(section.Documents, models.Document{
				ID:          uuid.NewString(),
				Name:        docName,
				Description: td.Description,
			})
		}
		sections = append(sections, section)
	}
	return sections
}

func (s *TemplateService) validate(req *dto.TemplateRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	return nil
}

func (s *TemplateService) editable(ctx context.Context, id string) (*models.Template, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	if tpl.IsDefault {
		return nil, appErrors.Clone(appErrors.ErrReadOnly, "default templates are read-only")
	}
	return tpl, nil
}

func (s *TemplateService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Debug("template cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *TemplateService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("template cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *TemplateService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, templateCachePrefix+"*"); err != nil {
		s.logger.Warn("template cache invalidation failed", zap.Error(err))
	}
}
