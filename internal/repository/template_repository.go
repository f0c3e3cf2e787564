package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fms-tracker-api/internal/models"
)

const templateColumns = "id, name, description, sections, is_default, created_by, created_at, updated_at"

// TemplateRepository persists document-collection templates. Sections are
// stored as JSON text.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// List returns defaults first, then by name.
func (r *TemplateRepository) List(ctx context.Context) ([]models.Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_collection_templates ORDER BY is_default DESC, name ASC`, templateColumns)
	var rows []models.TemplateRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	templates := make([]models.Template, 0, len(rows))
	for _, row := range rows {
		tpl, err := templateFromRow(row)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

// FindByID fetches a template by id.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_collection_templates WHERE id = $1`, templateColumns)
	var row models.TemplateRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	tpl, err := templateFromRow(row)
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Create inserts a template.
func (r *TemplateRepository) Create(ctx context.Context, tpl *models.Template) error {
	row, err := templateToRow(tpl)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	const query = `INSERT INTO document_collection_templates (id, name, description, sections, is_default, created_by, created_at, updated_at)
VALUES (:id, :name, :description, :sections, :is_default, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	return nil
}

// Update rewrites a template's editable fields.
func (r *TemplateRepository) Update(ctx context.Context, tpl *models.Template) error {
	row, err := templateToRow(tpl)
	if err != nil {
		return err
	}
	row.UpdatedAt = time.Now().UTC()
	const query = `UPDATE document_collection_templates
SET name = :name, description = :description, sections = :sections, is_default = :is_default, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	tpl.UpdatedAt = row.UpdatedAt
	return nil
}

// Delete removes a template.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM document_collection_templates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

func templateFromRow(row models.TemplateRow) (models.Template, error) {
	tpl := models.Template{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		IsDefault:   row.IsDefault,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		Sections:    []models.TemplateSection{},
	}
	if row.Sections != "" {
		if err := json.Unmarshal([]byte(row.Sections), &tpl.Sections); err != nil {
			return models.Template{}, fmt.Errorf("decode template %s sections: %w", row.ID, err)
		}
	}
	return tpl, nil
}

func templateToRow(tpl *models.Template) (models.TemplateRow, error) {
	sections := tpl.Sections
	if sections == nil {
		sections = []models.TemplateSection{}
	}
	encoded, err := json.Marshal(sections)
	if err != nil {
		return models.TemplateRow{}, fmt.Errorf("encode template sections: %w", err)
	}
	return models.TemplateRow{
		ID:          tpl.ID,
		Name:        tpl.Name,
		Description: tpl.Description,
		Sections:    string(encoded),
		IsDefault:   tpl.IsDefault,
		CreatedBy:   tpl.CreatedBy,
		CreatedAt:   tpl.CreatedAt,
		UpdatedAt:   tpl.UpdatedAt,
	}, nil
}
