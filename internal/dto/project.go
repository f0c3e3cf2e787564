package dto

import (
	"time"

	"github.com/noah-isme/fms-tracker-api/internal/models"
)

// ProjectView is the project payload; tracker fields are included only when requested.
type ProjectView struct {
	ID         string                                      `json:"id"`
	Name       string                                      `json:"name"`
	ClientName string                                      `json:"clientName,omitempty"`
	Status     string                                      `json:"status,omitempty"`
	Trackers   map[models.TrackerKind]models.YearPartition `json:"trackers,omitempty"`
	UpdatedAt  time.Time                                   `json:"updatedAt"`
}

// ProjectEnvelope is the single response shape of a project fetch: {data: {project: ...}}.
type ProjectEnvelope struct {
	Project ProjectView `json:"project"`
}
