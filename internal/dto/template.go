package dto

import "github.com/noah-isme/fms-tracker-api/internal/models"

// TemplateRequest is the create/update payload for document-collection templates.
type TemplateRequest struct {
	Name        string                   `json:"name" validate:"required"`
	Description string                   `json:"description"`
	Sections    []models.TemplateSection `json:"sections" validate:"dive"`
	IsDefault   *bool                    `json:"isDefault"`
}
