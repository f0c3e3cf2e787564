package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fms-tracker-api/internal/dto"
	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

type templateRepoStub struct {
	items     map[string]models.Template
	listCalls int
	err       error
}

func newTemplateRepoStub(items ...models.Template) *templateRepoStub {
	stub := &templateRepoStub{items: map[string]models.Template{}}
	for _, item := range items {
		stub.items[item.ID] = item
	}
	return stub
}

func (s *templateRepoStub) List(ctx context.Context) ([]models.Template, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Template, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out, nil
}

func (s *templateRepoStub) FindByID(ctx context.Context, id string) (*models.Template, error) {
	if s.err != nil {
		return nil, s.err
	}
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (s *templateRepoStub) Create(ctx context.Context, tpl *models.Template) error {
	if s.err != nil {
		return s.err
	}
	s.items[tpl.ID] = *tpl
	return nil
}

func (s *templateRepoStub) Update(ctx context.Context, tpl *models.Template) error {
	if s.err != nil {
		return s.err
	}
	s.items[tpl.ID] = *tpl
	return nil
}

func (s *templateRepoStub) Delete(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.items, id)
	return nil
}

type templateCacheStub struct {
	items map[string][]byte
}

func (c *templateCacheStub) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *templateCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func (c *templateCacheStub) Invalidate(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

func standardTemplate() models.Template {
	return models.Template{
		ID:        "tpl-default",
		Name:      "Standard",
		IsDefault: true,
		Sections: []models.TemplateSection{
			{Name: "Payroll", Documents: []models.TemplateDocument{{Name: "Payslips"}, {Name: "Timesheets", Description: "weekly"}}},
			{Name: "Tax", Documents: []models.TemplateDocument{{Name: "Returns"}}},
		},
	}
}

func staffClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStaff}
}

func TestTemplateServiceListUsesCache(t *testing.T) {
	repo := newTemplateRepoStub(standardTemplate())
	cache := &templateCacheStub{items: map[string][]byte{}}
	svc := NewTemplateService(repo, cache, nil, nil, TemplateServiceConfig{})

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	second, err := svc.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, first[0].Name, second[0].Name)

	_, err = svc.Create(context.Background(), dto.TemplateRequest{Name: "Mine"}, staffClaims("u1"))
	require.NoError(t, err)
	templates, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, templates, 2)
	assert.Equal(t, 2, repo.listCalls)
}

func TestTemplateServiceCreateValidation(t *testing.T) {
	svc := NewTemplateService(newTemplateRepoStub(), nil, nil, nil, TemplateServiceConfig{})

	_, err := svc.Create(context.Background(), dto.TemplateRequest{Name: "  "}, staffClaims("u1"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), dto.TemplateRequest{
		Name:     "Bad",
		Sections: []models.TemplateSection{{Name: ""}},
	}, staffClaims("u1"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	isDefault := true
	_, err = svc.Create(context.Background(), dto.TemplateRequest{Name: "Sys", IsDefault: &isDefault}, staffClaims("u1"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Create(context.Background(), dto.TemplateRequest{Name: "Mine"}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestTemplateServiceDefaultTemplatesAreReadOnly(t *testing.T) {
	repo := newTemplateRepoStub(standardTemplate())
	svc := NewTemplateService(repo, nil, nil, nil, TemplateServiceConfig{})
	admin := &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}

	_, err := svc.Update(context.Background(), "tpl-default", dto.TemplateRequest{Name: "Renamed"}, admin)
	assert.True(t, errors.Is(err, appErrors.ErrReadOnly))

	err = svc.Delete(context.Background(), "tpl-default", admin)
	assert.True(t, errors.Is(err, appErrors.ErrReadOnly))
	assert.Contains(t, repo.items, "tpl-default")

	err = svc.Delete(context.Background(), "missing", admin)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTemplateServiceUpdateAndDelete(t *testing.T) {
	repo := newTemplateRepoStub(models.Template{ID: "t1", Name: "Old", CreatedBy: "u1"})
	svc := NewTemplateService(repo, nil, nil, nil, TemplateServiceConfig{})

	tpl, err := svc.Update(context.Background(), "t1", dto.TemplateRequest{
		Name:     "New",
		Sections: []models.TemplateSection{{Name: "Ops"}},
	}, staffClaims("u1"))
	require.NoError(t, err)
	assert.Equal(t, "New", tpl.Name)
	assert.Equal(t, "Ops", repo.items["t1"].Sections[0].Name)

	require.NoError(t, svc.Delete(context.Background(), "t1", staffClaims("u1")))
	assert.Empty(t, repo.items)
}

func TestTemplateServiceApplyTouchesOnlyTargetYear(t *testing.T) {
	store := NewTrackerStore(models.TrackerDocumentSections, seedPartition(), "2025")
	require.NoError(t, store.SetStatus("sec-1", "doc-1", "2025-01", models.StatusCollected))
	before := store.Snapshot()
	svc := NewTemplateService(newTemplateRepoStub(), nil, nil, nil, TemplateServiceConfig{})
	tpl := standardTemplate()

	added, err := svc.Apply(store, tpl, "2026", false)
	require.NoError(t, err)
	require.Len(t, added, 2)

	after := store.Snapshot()
	assert.Equal(t, before["2024"], after["2024"])
	assert.Equal(t, before["2025"], after["2025"])
	require.Len(t, after["2026"], 2)
	for _, section := range after["2026"] {
		assert.NotEmpty(t, section.ID)
		for _, doc := range section.Documents {
			assert.NotEmpty(t, doc.ID)
			assert.Nil(t, doc.CollectionStatus)
			assert.Nil(t, doc.Comments)
		}
	}
	assert.Equal(t, "weekly", after["2026"][0].Documents[1].Description)

	again, err := svc.Apply(store, tpl, "2026", false)
	require.NoError(t, err)
	assert.NotEqual(t, added[0].ID, again[0].ID)
	assert.Len(t, store.Sections("2026"), 4)

	_, err = svc.Apply(store, tpl, "2026", true)
	require.NoError(t, err)
	assert.Len(t, store.Sections("2026"), 2)
}

func TestTemplateServiceApplyRejectsBadInput(t *testing.T) {
	store := NewTrackerStore(models.TrackerDocumentSections, nil, "2025")
	svc := NewTemplateService(newTemplateRepoStub(), nil, nil, nil, TemplateServiceConfig{})

	_, err := svc.Apply(store, standardTemplate(), "next", false)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Apply(store, models.Template{ID: "empty"}, "2025", false)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, store.Years())
}
