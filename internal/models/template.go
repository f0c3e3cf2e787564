package models

import "time"

// TemplateDocument is the structural blueprint of a document.
type TemplateDocument struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// TemplateSection is the structural blueprint of a section.
type TemplateSection struct {
	Name        string             `json:"name" validate:"required"`
	Description string             `json:"description,omitempty"`
	Documents   []TemplateDocument `json:"documents" validate:"dive"`
}

// Template is a structure-only, reusable section/document blueprint.
type Template struct {
	ID          string            `db:"id" json:"id"`
	Name        string            `db:"name" json:"name"`
	Description string            `db:"description" json:"description,omitempty"`
	Sections    []TemplateSection `db:"-" json:"sections"`
	IsDefault   bool              `db:"is_default" json:"isDefault"`
	CreatedBy   string            `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updatedAt"`
}

// TemplateRow is the database shape of a template with sections stored as JSON text.
type TemplateRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Sections    string    `db:"sections"`
	IsDefault   bool      `db:"is_default"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
