package dto

import "github.com/noah-isme/fms-tracker-api/internal/models"

// SectionInput carries the editable fields of a section.
type SectionInput struct {
	Year        string `json:"year"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Reviewer    string `json:"reviewer"`
}

// DocumentInput carries the editable fields of a document.
type DocumentInput struct {
	Year        string `json:"year"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// SetStatusRequest sets or clears one cell.
type SetStatusRequest struct {
	Year string `json:"year"`
	models.CellRef
	Status models.Status `json:"status"`
}

// BulkStatusRequest broadcasts one status to several cells in a single transition.
type BulkStatusRequest struct {
	Year   string           `json:"year"`
	Cells  []models.CellRef `json:"cells" validate:"required,min=1,dive"`
	Status models.Status    `json:"status"`
}

// AddCommentRequest appends a comment to a cell.
type AddCommentRequest struct {
	Year string `json:"year"`
	models.CellRef
	Text string `json:"text" validate:"required"`
}

// ApplyTemplateRequest clones a template into a year.
type ApplyTemplateRequest struct {
	Year    string `json:"year" validate:"required,len=4,numeric"`
	Replace bool   `json:"replace"`
}

// PopupQuery describes the highlighted cell and screen so a deep link can
// report where its comment popup goes. All fields are optional query params.
type PopupQuery struct {
	AnchorTop      float64 `form:"anchorTop"`
	AnchorLeft     float64 `form:"anchorLeft"`
	AnchorWidth    float64 `form:"anchorWidth"`
	AnchorHeight   float64 `form:"anchorHeight"`
	PopupWidth     float64 `form:"popupWidth"`
	PopupHeight    float64 `form:"popupHeight"`
	ViewportWidth  float64 `form:"viewportWidth"`
	ViewportHeight float64 `form:"viewportHeight"`
	Margin         float64 `form:"margin"`
}

// HasViewport reports whether the caller sent enough to place a popup.
func (q PopupQuery) HasViewport() bool {
	return q.ViewportWidth > 0 && q.ViewportHeight > 0
}

// TrackerView is the response shape for one year of a tracker.
type TrackerView struct {
	ProjectID string             `json:"projectId"`
	Kind      models.TrackerKind `json:"kind"`
	Year      string             `json:"year"`
	Years     []string           `json:"years"`
	Statuses  []models.Status    `json:"statuses"`
	Sections  []models.Section   `json:"sections"`
}

// MutationResult reports whether the mutation already reached the durable store.
type MutationResult struct {
	Persisted bool `json:"persisted"`
}
