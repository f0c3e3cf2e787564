package models

// DeepLinkTarget addresses a tracker cell from URL parameters.
type DeepLinkTarget struct {
	SectionID  string   `json:"sectionId"`
	DocumentID string   `json:"documentId"`
	MonthKey   MonthKey `json:"monthKey"`
	CommentID  string   `json:"commentId,omitempty"`
}

// CellLocation is a resolved deep link.
type CellLocation struct {
	Year             string          `json:"year"`
	SectionID        string          `json:"sectionId"`
	SectionName      string          `json:"sectionName"`
	DocumentID       string          `json:"documentId"`
	DocumentName     string          `json:"documentName"`
	MonthKey         MonthKey        `json:"monthKey"`
	Status           Status          `json:"status"`
	Comments         []Comment       `json:"comments"`
	HighlightComment string          `json:"highlightCommentId,omitempty"`
	HighlightIndex   int             `json:"highlightIndex"`
	Attempts         int             `json:"attempts"`
	Popup            *PopupPlacement `json:"popup,omitempty"`
}

// Rect is an element box in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top" form:"top"`
	Left   float64 `json:"left" form:"left"`
	Width  float64 `json:"width" form:"width"`
	Height float64 `json:"height" form:"height"`
}

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width" form:"width"`
	Height float64 `json:"height" form:"height"`
}

// PopupPlacement is where a comment popup is drawn relative to the viewport.
type PopupPlacement struct {
	Top   float64 `json:"top"`
	Left  float64 `json:"left"`
	Above bool    `json:"above"`
}
