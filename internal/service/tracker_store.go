package service

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/fms-tracker-api/internal/dto"
	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

// ChangeKind classifies a store mutation for the listener.
type ChangeKind int

const (
	// ChangeStructural covers section and document edits; saves are debounced.
	ChangeStructural ChangeKind = iota
	// ChangeCell covers statuses and comments; saves go out immediately.
	ChangeCell
)

// RemovedSection remembers where a deleted section lived so it can be restored.
type RemovedSection struct {
	Year    string
	Index   int
	Section models.Section
}

// RemovedDocument remembers where a deleted document lived so it can be restored.
type RemovedDocument struct {
	Year      string
	SectionID string
	Index     int
	Document  models.Document
}

// TrackerStore is the in-memory year partitioned state of one tracker.
//
// Mutations apply to the selected year only. Every mutation republishes an
// immutable mirror of the whole partition inside the same critical section,
// so a reader of Mirror never observes a state older than the last mutation.
type TrackerStore struct {
	kind models.TrackerKind

	mu        sync.Mutex
	data      models.YearPartition
	selected  string
	selection []models.CellRef
	loaded    bool

	mirror   atomic.Pointer[models.YearPartition]
	listener func(ChangeKind)
	now      func() time.Time
}

// NewTrackerStore builds a store over an already normalized partition.
func NewTrackerStore(kind models.TrackerKind, initial models.YearPartition, selectedYear string) *TrackerStore {
	s := &TrackerStore{kind: kind, now: time.Now}
	if initial == nil {
		initial = models.YearPartition{}
	}
	s.data = initial.Clone()
	s.selected = selectedYear
	s.loaded = true
	s.publishLocked()
	return s
}

// NewPendingTrackerStore builds an empty store that reports not loaded until Replace is called.
func NewPendingTrackerStore(kind models.TrackerKind, selectedYear string) *TrackerStore {
	s := NewTrackerStore(kind, nil, selectedYear)
	s.loaded = false
	return s
}

// SetChangeListener registers the callback fired once per mutation, outside the store lock.
func (s *TrackerStore) SetChangeListener(fn func(ChangeKind)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// Kind returns the tracker kind.
func (s *TrackerStore) Kind() models.TrackerKind {
	return s.kind
}

// Loaded reports whether data has been loaded.
func (s *TrackerStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Mirror returns the current immutable partition. Callers must not modify it.
func (s *TrackerStore) Mirror() models.YearPartition {
	if p := s.mirror.Load(); p != nil {
		return *p
	}
	return models.YearPartition{}
}

// Snapshot returns a private deep copy of the partition.
func (s *TrackerStore) Snapshot() models.YearPartition {
	return s.Mirror().Clone()
}

// Replace swaps in a freshly loaded partition without notifying the listener.
func (s *TrackerStore) Replace(p models.YearPartition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		p = models.YearPartition{}
	}
	s.data = p.Clone()
	s.loaded = true
	s.selection = nil
	s.publishLocked()
}

// SelectYear changes the partition subsequent mutations apply to.
func (s *TrackerStore) SelectYear(year string) error {
	if !models.IsYearKey(year) {
		return appErrors.Clone(appErrors.ErrValidation, "year must be a four digit year")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != year {
		s.selection = nil
	}
	s.selected = year
	return nil
}

// SelectedYear returns the year mutations apply to.
func (s *TrackerStore) SelectedYear() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Years lists years that have a partition.
func (s *TrackerStore) Years() []string {
	return s.Mirror().Years()
}

// Sections returns a copy of one year's sections.
func (s *TrackerStore) Sections(year string) []models.Section {
	return models.CloneSections(s.Mirror()[year])
}

// SetSections replaces one year's section list with the updater's result.
// The updater receives a private copy.
func (s *TrackerStore) SetSections(year string, updater func([]models.Section) []models.Section) error {
	if !models.IsYearKey(year) {
		return appErrors.Clone(appErrors.ErrValidation, "year must be a four digit year")
	}
	s.mu.Lock()
	next := updater(models.CloneSections(s.data[year]))
	if next == nil {
		next = []models.Section{}
	}
	for i := range next {
		next[i] = canonicalSection(next[i])
	}
	s.data[year] = next
	return s.commit(ChangeStructural)
}

// AddSection appends a section to the selected year.
func (s *TrackerStore) AddSection(in dto.SectionInput) (models.Section, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Section{}, appErrors.Clone(appErrors.ErrValidation, "section name is required")
	}
	section := models.Section{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Reviewer:    strings.TrimSpace(in.Reviewer),
		Documents:   []models.Document{},
	}

	s.mu.Lock()
	if !models.IsYearKey(s.selected) {
		s.mu.Unlock()
		return models.Section{}, appErrors.Clone(appErrors.ErrValidation, "select a year before adding sections")
	}
	s.data[s.selected] = append(s.data[s.selected], section)
	return section.Clone(), s.commit(ChangeStructural)
}

// UpdateSection edits a section of the selected year.
func (s *TrackerStore) UpdateSection(sectionID string, in dto.SectionInput) (models.Section, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Section{}, appErrors.Clone(appErrors.ErrValidation, "section name is required")
	}

	s.mu.Lock()
	section, err := s.sectionLocked(sectionID)
	if err != nil {
		s.mu.Unlock()
		return models.Section{}, err
	}
	section.Name = name
	section.Description = strings.TrimSpace(in.Description)
	section.Reviewer = strings.TrimSpace(in.Reviewer)
	out := section.Clone()
	return out, s.commit(ChangeStructural)
}

// DeleteSection removes the section, with all its documents, from every year
// it appears in. The removed entries are returned for rollback.
func (s *TrackerStore) DeleteSection(sectionID string) ([]RemovedSection, error) {
	s.mu.Lock()
	var removed []RemovedSection
	for year, sections := range s.data {
		for i := 0; i < len(sections); i++ {
			if sections[i].ID != sectionID {
				continue
			}
			removed = append(removed, RemovedSection{Year: year, Index: i, Section: sections[i].Clone()})
			sections = append(sections[:i:i], sections[i+1:]...)
			i--
		}
		s.data[year] = sections
	}
	if len(removed) == 0 {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
	}
	s.pruneSelectionLocked()
	return removed, s.commit(ChangeStructural)
}

// RestoreSections reinserts previously removed sections at their old positions.
func (s *TrackerStore) RestoreSections(removed []RemovedSection) {
	if len(removed) == 0 {
		return
	}
	s.mu.Lock()
	for i := len(removed) - 1; i >= 0; i-- {
		r := removed[i]
		s.data[r.Year] = insertAt(s.data[r.Year], r.Index, r.Section.Clone())
	}
	_ = s.commit(ChangeStructural)
}

// AddDocument appends a document to a section of the selected year.
func (s *TrackerStore) AddDocument(sectionID string, in dto.DocumentInput) (models.Document, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Document{}, appErrors.Clone(appErrors.ErrValidation, "document name is required")
	}
	doc := models.Document{ID: uuid.NewString(), Name: name, Description: strings.TrimSpace(in.Description)}

	s.mu.Lock()
	section, err := s.sectionLocked(sectionID)
	if err != nil {
		s.mu.Unlock()
		return models.Document{}, err
	}
	section.Documents = append(section.Documents, doc)
	return doc.Clone(), s.commit(ChangeStructural)
}

// UpdateDocument edits a document's name and description.
func (s *TrackerStore) UpdateDocument(sectionID, documentID string, in dto.DocumentInput) (models.Document, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Document{}, appErrors.Clone(appErrors.ErrValidation, "document name is required")
	}

	s.mu.Lock()
	doc, err := s.documentLocked(sectionID, documentID)
	if err != nil {
		s.mu.Unlock()
		return models.Document{}, err
	}
	doc.Name = name
	doc.Description = strings.TrimSpace(in.Description)
	out := doc.Clone()
	return out, s.commit(ChangeStructural)
}

// DeleteDocument removes a document, with its statuses and comments, from a
// section of the selected year.
func (s *TrackerStore) DeleteDocument(sectionID, documentID string) (RemovedDocument, error) {
	return s.DeleteDocumentInYear(s.SelectedYear(), sectionID, documentID)
}

// DeleteDocumentInYear removes a document from a section of the given year.
func (s *TrackerStore) DeleteDocumentInYear(year, sectionID, documentID string) (RemovedDocument, error) {
	s.mu.Lock()
	section, err := s.sectionInLocked(year, sectionID)
	if err != nil {
		s.mu.Unlock()
		return RemovedDocument{}, err
	}
	for i, doc := range section.Documents {
		if doc.ID != documentID {
			continue
		}
		removed := RemovedDocument{Year: year, SectionID: sectionID, Index: i, Document: doc.Clone()}
		section.Documents = append(section.Documents[:i:i], section.Documents[i+1:]...)
		s.pruneSelectionLocked()
		return removed, s.commit(ChangeStructural)
	}
	s.mu.Unlock()
	return RemovedDocument{}, appErrors.Clone(appErrors.ErrNotFound, "document not found")
}

// RestoreDocument reinserts a removed document. It fails when its section no longer exists.
func (s *TrackerStore) RestoreDocument(removed RemovedDocument) error {
	s.mu.Lock()
	sections := s.data[removed.Year]
	for i := range sections {
		if sections[i].ID == removed.SectionID {
			sections[i].Documents = insertAt(sections[i].Documents, removed.Index, removed.Document.Clone())
			return s.commit(ChangeStructural)
		}
	}
	s.mu.Unlock()
	return appErrors.Clone(appErrors.ErrNotFound, "section not found")
}

// Status returns the status of a cell; StatusUnset when no value is stored.
func (s *TrackerStore) Status(sectionID, documentID string, month models.MonthKey) (models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.documentLocked(sectionID, documentID)
	if err != nil {
		return models.StatusUnset, err
	}
	return doc.CollectionStatus[month], nil
}

// SetStatus sets a cell. An empty status removes the month key.
func (s *TrackerStore) SetStatus(sectionID, documentID string, month models.MonthKey, status models.Status) error {
	return s.ApplyStatus([]models.CellRef{{SectionID: sectionID, DocumentID: documentID, MonthKey: month}}, status)
}

// ApplyStatus sets every cell to status as one transition. Nothing changes
// unless every cell resolves.
func (s *TrackerStore) ApplyStatus(cells []models.CellRef, status models.Status) error {
	if len(cells) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "no cells selected")
	}
	if !s.kind.Allows(status) {
		return appErrors.Clone(appErrors.ErrValidation, "status "+string(status)+" is not valid for "+string(s.kind))
	}
	for _, cell := range cells {
		if _, _, _, err := models.ParseMonthKey(string(cell.MonthKey)); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid month key")
		}
	}

	s.mu.Lock()
	docs := make([]*models.Document, len(cells))
	for i, cell := range cells {
		doc, err := s.documentLocked(cell.SectionID, cell.DocumentID)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		docs[i] = doc
	}
	for i, doc := range docs {
		month := cells[i].MonthKey
		if status == models.StatusUnset {
			delete(doc.CollectionStatus, month)
			if len(doc.CollectionStatus) == 0 {
				doc.CollectionStatus = nil
			}
			continue
		}
		if doc.CollectionStatus == nil {
			doc.CollectionStatus = make(map[models.MonthKey]models.Status)
		}
		doc.CollectionStatus[month] = status
	}
	return s.commit(ChangeCell)
}

// SetSelection designates cells for a later ApplyStatusToSelection.
func (s *TrackerStore) SetSelection(cells []models.CellRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = append([]models.CellRef(nil), cells...)
}

// Selection returns the designated cells.
func (s *TrackerStore) Selection() []models.CellRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CellRef(nil), s.selection...)
}

// ApplyStatusToSelection broadcasts status to the selected cells and clears the selection.
func (s *TrackerStore) ApplyStatusToSelection(status models.Status) error {
	cells := s.Selection()
	if err := s.ApplyStatus(cells, status); err != nil {
		return err
	}
	s.SetSelection(nil)
	return nil
}

// AddComment appends a comment authored by actor.
func (s *TrackerStore) AddComment(cell models.CellRef, text string, actor models.Actor) (models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, appErrors.Clone(appErrors.ErrValidation, "comment text is required")
	}
	if actor.ID == "" {
		return models.Comment{}, appErrors.Clone(appErrors.ErrUnauthorized, "comment author is required")
	}
	if _, _, _, err := models.ParseMonthKey(string(cell.MonthKey)); err != nil {
		return models.Comment{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid month key")
	}
	comment := models.Comment{
		ID:          uuid.NewString(),
		Text:        text,
		Date:        models.NewCommentDate(s.now().UTC()),
		Author:      actor.Name,
		AuthorEmail: actor.Email,
		AuthorID:    actor.ID,
		AuthorRole:  string(actor.Role),
	}

	s.mu.Lock()
	doc, err := s.documentLocked(cell.SectionID, cell.DocumentID)
	if err != nil {
		s.mu.Unlock()
		return models.Comment{}, err
	}
	if doc.Comments == nil {
		doc.Comments = make(map[models.MonthKey][]models.Comment)
	}
	doc.Comments[cell.MonthKey] = append(doc.Comments[cell.MonthKey], comment)
	return comment, s.commit(ChangeCell)
}

// DeleteComment removes a comment. Only its author or an admin may delete it;
// a rejected request leaves the store untouched and notifies nobody.
func (s *TrackerStore) DeleteComment(cell models.CellRef, commentID string, actor models.Actor) error {
	s.mu.Lock()
	doc, err := s.documentLocked(cell.SectionID, cell.DocumentID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	comments := doc.Comments[cell.MonthKey]
	for i, c := range comments {
		if c.ID != commentID {
			continue
		}
		if c.AuthorID != actor.ID && !actor.Role.IsAdmin() {
			s.mu.Unlock()
			return appErrors.Clone(appErrors.ErrForbidden, "only the author or an admin can delete this comment")
		}
		comments = append(comments[:i:i], comments[i+1:]...)
		if len(comments) == 0 {
			delete(doc.Comments, cell.MonthKey)
		} else {
			doc.Comments[cell.MonthKey] = comments
		}
		if len(doc.Comments) == 0 {
			doc.Comments = nil
		}
		return s.commit(ChangeCell)
	}
	s.mu.Unlock()
	return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
}

// Locate finds a cell in any year, preferring preferredYear.
func (s *TrackerStore) Locate(target models.DeepLinkTarget, preferredYear string) (*models.CellLocation, bool) {
	mirror := s.Mirror()
	years := mirror.Years()
	if preferredYear != "" {
		ordered := []string{preferredYear}
		for _, y := range years {
			if y != preferredYear {
				ordered = append(ordered, y)
			}
		}
		years = ordered
	}
	for _, year := range years {
		for _, section := range mirror[year] {
			if section.ID != target.SectionID {
				continue
			}
			for _, doc := range section.Documents {
				if doc.ID != target.DocumentID {
					continue
				}
				loc := &models.CellLocation{
					Year:           year,
					SectionID:      section.ID,
					SectionName:    section.Name,
					DocumentID:     doc.ID,
					DocumentName:   doc.Name,
					MonthKey:       target.MonthKey,
					Status:         doc.CollectionStatus[target.MonthKey],
					Comments:       append([]models.Comment{}, doc.Comments[target.MonthKey]...),
					HighlightIndex: -1,
				}
				return loc, true
			}
		}
	}
	return nil, false
}

// commit publishes the mirror, releases the lock and notifies the listener.
// It must be called with s.mu held.
func (s *TrackerStore) commit(kind ChangeKind) error {
	s.publishLocked()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener(kind)
	}
	return nil
}

func (s *TrackerStore) publishLocked() {
	snapshot := s.data.Clone()
	s.mirror.Store(&snapshot)
}

func (s *TrackerStore) sectionLocked(sectionID string) (*models.Section, error) {
	return s.sectionInLocked(s.selected, sectionID)
}

func (s *TrackerStore) sectionInLocked(year, sectionID string) (*models.Section, error) {
	sections := s.data[year]
	for i := range sections {
		if sections[i].ID == sectionID {
			return &sections[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
}

func (s *TrackerStore) documentLocked(sectionID, documentID string) (*models.Document, error) {
	section, err := s.sectionLocked(sectionID)
	if err != nil {
		return nil, err
	}
	for i := range section.Documents {
		if section.Documents[i].ID == documentID {
			return &section.Documents[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
}

func (s *TrackerStore) pruneSelectionLocked() {
	kept := s.selection[:0]
	for _, cell := range s.selection {
		if _, err := s.documentLocked(cell.SectionID, cell.DocumentID); err == nil {
			kept = append(kept, cell)
		}
	}
	s.selection = kept
}

func insertAt[T any](list []T, index int, item T) []T {
	if index < 0 {
		index = 0
	}
	if index > len(list) {
		index = len(list)
	}
	out := make([]T, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, item)
	return append(out, list[index:]...)
}
