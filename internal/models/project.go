package models

import (
	"database/sql"
	"time"
)

// Project is the CRM project record holding the persisted tracker fields.
type Project struct {
	ID                       string         `db:"id" json:"id"`
	Name                     string         `db:"name" json:"name"`
	ClientName               sql.NullString `db:"client_name" json:"-"`
	Status                   sql.NullString `db:"status" json:"-"`
	DocumentSections         sql.NullString `db:"document_sections" json:"-"`
	WeeklyFMSReviewSections  sql.NullString `db:"weekly_fms_review_sections" json:"-"`
	MonthlyFMSReviewSections sql.NullString `db:"monthly_fms_review_sections" json:"-"`
	CreatedAt                time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time      `db:"updated_at" json:"updatedAt"`
}

// TrackerField returns the raw persisted payload for kind, empty when absent.
func (p *Project) TrackerField(kind TrackerKind) string {
	switch kind {
	case TrackerDocumentSections:
		return p.DocumentSections.String
	case TrackerWeeklyFMSReviewSections:
		return p.WeeklyFMSReviewSections.String
	case TrackerMonthlyFMSReviewSections:
		return p.MonthlyFMSReviewSections.String
	}
	return ""
}
