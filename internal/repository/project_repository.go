package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fms-tracker-api/internal/models"
)

const projectBaseColumns = "id, name, client_name, status, created_at, updated_at"

// ProjectRepository reads projects and writes their tracker columns.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID loads a project with the base columns and the tracker columns of
// the requested kinds. Unknown kinds are ignored.
func (r *ProjectRepository) FindByID(ctx context.Context, id string, kinds ...models.TrackerKind) (*models.Project, error) {
	columns := []string{projectBaseColumns}
	seen := make(map[models.TrackerKind]struct{}, len(kinds))
	for _, kind := range kinds {
		if _, ok := models.ParseTrackerKind(string(kind)); !ok {
			continue
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		columns = append(columns, kind.Column())
	}
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1`, strings.Join(columns, ", "))

	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateTrackerField replaces one tracker column with payload in a single statement.
func (r *ProjectRepository) UpdateTrackerField(ctx context.Context, id string, kind models.TrackerKind, payload string) error {
	if _, ok := models.ParseTrackerKind(string(kind)); !ok {
		return fmt.Errorf("unknown tracker field %q", kind)
	}
	query := fmt.Sprintf(`UPDATE projects SET %s = $1, updated_at = NOW() WHERE id = $2`, kind.Column())
	result, err := r.db.ExecContext(ctx, query, payload, id)
	if err != nil {
		return fmt.Errorf("update %s: %w", kind.Column(), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s rows affected: %w", kind.Column(), err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
