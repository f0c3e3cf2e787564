package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// TrackerKind names a year-partitioned tracker persisted under its own project field.
type TrackerKind string

const (
	TrackerDocumentSections         TrackerKind = "documentSections"
	TrackerWeeklyFMSReviewSections  TrackerKind = "weeklyFMSReviewSections"
	TrackerMonthlyFMSReviewSections TrackerKind = "monthlyFMSReviewSections"
)

// Status is the per-month state of a tracked document. The empty value means unset.
type Status string

const (
	StatusUnset Status = ""

	StatusNotCollected Status = "not-collected"
	StatusOngoing      Status = "ongoing"
	StatusCollected    Status = "collected"
	StatusUnavailable  Status = "unavailable"

	StatusNotChecked Status = "not-checked"
	StatusChecked    Status = "checked"
	StatusIssue      Status = "issue"
)

var trackerStatuses = map[TrackerKind][]Status{
	TrackerDocumentSections:         {StatusNotCollected, StatusOngoing, StatusCollected, StatusUnavailable},
	TrackerWeeklyFMSReviewSections:  {StatusNotChecked, StatusChecked, StatusIssue},
	TrackerMonthlyFMSReviewSections: {StatusNotChecked, StatusChecked, StatusIssue},
}

var trackerColumns = map[TrackerKind]string{
	TrackerDocumentSections:         "document_sections",
	TrackerWeeklyFMSReviewSections:  "weekly_fms_review_sections",
	TrackerMonthlyFMSReviewSections: "monthly_fms_review_sections",
}

// TrackerKinds lists every supported tracker.
func TrackerKinds() []TrackerKind {
	return []TrackerKind{TrackerDocumentSections, TrackerWeeklyFMSReviewSections, TrackerMonthlyFMSReviewSections}
}

// ParseTrackerKind validates a raw field name.
func ParseTrackerKind(raw string) (TrackerKind, bool) {
	kind := TrackerKind(raw)
	_, ok := trackerColumns[kind]
	return kind, ok
}

// Column returns the projects column backing the tracker.
func (k TrackerKind) Column() string {
	return trackerColumns[k]
}

// Statuses returns the allowed status values for the tracker.
func (k TrackerKind) Statuses() []Status {
	out := make([]Status, len(trackerStatuses[k]))
	copy(out, trackerStatuses[k])
	return out
}

// Allows reports whether status is valid for the tracker. Unset is always allowed.
func (k TrackerKind) Allows(status Status) bool {
	if status == StatusUnset {
		return true
	}
	for _, s := range trackerStatuses[k] {
		if s == status {
			return true
		}
	}
	return false
}

// SnapshotKey is the backup key holding the last known good payload for a project.
func (k TrackerKind) SnapshotKey(projectID string) string {
	return fmt.Sprintf("%sSnapshot_%s", k, projectID)
}

// MonthKey scopes statuses and comments to one calendar month, formatted YYYY-MM.
type MonthKey string

// NewMonthKey builds a month key from a year and month.
func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// ParseMonthKey validates raw and returns its year and month.
func ParseMonthKey(raw string) (MonthKey, int, time.Month, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil || len(raw) != 7 {
		return "", 0, 0, fmt.Errorf("invalid month key %q", raw)
	}
	return MonthKey(raw), t.Year(), t.Month(), nil
}

// Year returns the year portion of the key as a partition key.
func (m MonthKey) Year() string {
	if len(m) < 4 {
		return ""
	}
	return string(m[:4])
}

// YearMonths lists the twelve month keys of a year.
func YearMonths(year int) []MonthKey {
	keys := make([]MonthKey, 0, 12)
	for m := time.January; m <= time.December; m++ {
		keys = append(keys, NewMonthKey(year, m))
	}
	return keys
}

// IsYearKey reports whether raw is a four digit partition key.
func IsYearKey(raw string) bool {
	if len(raw) != 4 {
		return false
	}
	_, err := strconv.Atoi(raw)
	return err == nil
}

// Comment is an immutable note attached to one document month.
type Comment struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	Date        CommentDate `json:"date"`
	Author      string      `json:"author"`
	AuthorEmail string      `json:"authorEmail"`
	AuthorID    string      `json:"authorId"`
	AuthorRole  string      `json:"authorRole,omitempty"`
}

// MarshalJSON leaves out a date the stored comment never had.
func (c Comment) MarshalJSON() ([]byte, error) {
	type alias Comment
	var date *CommentDate
	if !c.Date.IsZero() {
		date = &c.Date
	}
	return json.Marshal(struct {
		alias
		Date *CommentDate `json:"date,omitempty"`
	}{alias: alias(c), Date: date})
}

var commentDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// CommentDate is the timestamp of a comment. Raw holds the stored JSON value
// and is written back verbatim, so dates in layouts the service cannot read
// survive a load and save unchanged.
type CommentDate struct {
	Time time.Time
	Raw  string
}

// NewCommentDate stamps a new comment.
func NewCommentDate(t time.Time) CommentDate {
	return CommentDate{Time: t}
}

// IsZero reports whether the comment carries no date at all.
func (d CommentDate) IsZero() bool {
	return d.Raw == "" && d.Time.IsZero()
}

// MarshalJSON writes the stored value when there is one.
func (d CommentDate) MarshalJSON() ([]byte, error) {
	if d.Raw != "" {
		return []byte(d.Raw), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON never fails: unreadable dates keep only their raw value.
func (d *CommentDate) UnmarshalJSON(data []byte) error {
	*d = CommentDate{}
	if string(data) == "null" || !json.Valid(data) {
		return nil
	}
	d.Raw = string(data)
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return nil
	}
	for _, layout := range commentDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			d.Time = t
			break
		}
	}
	return nil
}

// Document is a trackable item with per-month status and comments.
type Document struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	Description      string                `json:"description,omitempty"`
	CollectionStatus map[MonthKey]Status    `json:"collectionStatus,omitempty"`
	Comments         map[MonthKey][]Comment `json:"comments,omitempty"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	if d.CollectionStatus != nil {
		out.CollectionStatus = make(map[MonthKey]Status, len(d.CollectionStatus))
		for k, v := range d.CollectionStatus {
			out.CollectionStatus[k] = v
		}
	}
	if d.Comments != nil {
		out.Comments = make(map[MonthKey][]Comment, len(d.Comments))
		for k, v := range d.Comments {
			out.Comments[k] = append([]Comment(nil), v...)
		}
	}
	return out
}

// Section groups documents within one year's partition.
type Section struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Reviewer    string     `json:"reviewer,omitempty"`
	Documents   []Document `json:"documents"`
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	out.Documents = make([]Document, len(s.Documents))
	for i, d := range s.Documents {
		out.Documents[i] = d.Clone()
	}
	return out
}

// CloneSections deep copies a section list, never returning nil.
func CloneSections(sections []Section) []Section {
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = s.Clone()
	}
	return out
}

// YearPartition maps a four digit year to that year's sections. It is the persisted unit.
type YearPartition map[string][]Section

// Clone returns a deep copy of the partition.
func (p YearPartition) Clone() YearPartition {
	out := make(YearPartition, len(p))
	for year, sections := range p {
		out[year] = CloneSections(sections)
	}
	return out
}

// Years returns the partition keys in ascending order.
func (p YearPartition) Years() []string {
	years := make([]string, 0, len(p))
	for y := range p {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// CellRef addresses one status/comment cell.
type CellRef struct {
	SectionID  string   `json:"sectionId" validate:"required"`
	DocumentID string   `json:"documentId" validate:"required"`
	MonthKey   MonthKey `json:"monthKey" validate:"required"`
}
