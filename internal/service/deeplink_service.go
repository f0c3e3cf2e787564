package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

// Deep-link query parameter names.
const (
	ParamSectionID  = "docSectionId"
	ParamDocumentID = "docDocumentId"
	ParamMonth      = "docMonth"
	ParamCommentID  = "commentId"
)

type cellLocator interface {
	Loaded() bool
	Locate(target models.DeepLinkTarget, preferredYear string) (*models.CellLocation, bool)
}

// DeepLinkConfig bounds resolution retries.
type DeepLinkConfig struct {
	Attempts int
	Backoff  time.Duration
}

// DeepLinkService turns deep-link URLs into located tracker cells.
type DeepLinkService struct {
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

// NewDeepLinkService constructs the service.
func NewDeepLinkService(logger *zap.Logger, cfg DeepLinkConfig) *DeepLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 10
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	return &DeepLinkService{attempts: cfg.Attempts, backoff: cfg.Backoff, logger: logger}
}

// ParseDeepLink extracts a target from a URL. The parameters may sit in the
// regular query string or in a query embedded in the fragment, as hash
// routers produce ("/app#/projects/1?docSectionId=...").
func ParseDeepLink(rawURL string) (models.DeepLinkTarget, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return models.DeepLinkTarget{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deep link url")
	}
	if target, ok := targetFromValues(u.Query()); ok {
		return normalizeTarget(target)
	}
	fragment := u.Fragment
	if idx := strings.Index(fragment, "?"); idx >= 0 {
		values, err := url.ParseQuery(fragment[idx+1:])
		if err == nil {
			if target, ok := targetFromValues(values); ok {
				return normalizeTarget(target)
			}
		}
	}
	return models.DeepLinkTarget{}, appErrors.Clone(appErrors.ErrValidation, "deep link has no tracker target")
}

// TargetFromQuery reads a target straight from request query values.
func TargetFromQuery(values url.Values) (models.DeepLinkTarget, bool, error) {
	target, ok := targetFromValues(values)
	if !ok {
		return models.DeepLinkTarget{}, false, nil
	}
	target, err := normalizeTarget(target)
	return target, true, err
}

func targetFromValues(values url.Values) (models.DeepLinkTarget, bool) {
	target := models.DeepLinkTarget{
		SectionID:  strings.TrimSpace(values.Get(ParamSectionID)),
		DocumentID: strings.TrimSpace(values.Get(ParamDocumentID)),
		MonthKey:   models.MonthKey(strings.TrimSpace(values.Get(ParamMonth))),
		CommentID:  strings.TrimSpace(values.Get(ParamCommentID)),
	}
	return target, target.SectionID != "" && target.DocumentID != ""
}

func normalizeTarget(target models.DeepLinkTarget) (models.DeepLinkTarget, error) {
	if target.MonthKey == "" {
		return target, nil
	}
	if _, _, _, err := models.ParseMonthKey(string(target.MonthKey)); err != nil {
		return models.DeepLinkTarget{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid docMonth")
	}
	return target, nil
}

// Resolve locates target, retrying while the data is still loading or the
// target (or its highlighted comment) has not appeared yet. When the comment
// never shows up the cell is still returned without a highlight.
func (s *DeepLinkService) Resolve(ctx context.Context, store cellLocator, target models.DeepLinkTarget) (*models.CellLocation, error) {
	preferredYear := target.MonthKey.Year()
	var found *models.CellLocation
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if store.Loaded() {
			if loc, ok := store.Locate(target, preferredYear); ok {
				loc.Attempts = attempt
				found = loc
				if highlight(loc, target.CommentID) {
					return loc, nil
				}
			}
		}
		if attempt == s.attempts {
			break
		}
		if err := sleepCtx(ctx, s.backoff); err != nil {
			return nil, err
		}
	}
	if found != nil {
		s.logger.Debug("deep link comment not found", zap.String("comment_id", target.CommentID))
		return found, nil
	}
	s.logger.Debug("deep link target not found",
		zap.String("section_id", target.SectionID),
		zap.String("document_id", target.DocumentID),
		zap.Int("attempts", s.attempts))
	return nil, appErrors.Clone(appErrors.ErrNotFound, "deep link target not found")
}

func highlight(loc *models.CellLocation, commentID string) bool {
	loc.HighlightIndex = -1
	if commentID == "" {
		return true
	}
	for i, c := range loc.Comments {
		if c.ID == commentID {
			loc.HighlightComment = commentID
			loc.HighlightIndex = i
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PlacePopup positions a popup next to anchor. It prefers below the anchor and
// flips above when the popup would overflow the viewport bottom and there is
// more room above. The left edge follows the anchor, clamped so the popup
// stays margin away from both viewport sides where it fits.
func PlacePopup(anchor models.Rect, popup, viewport models.Size, margin float64) models.PopupPlacement {
	placement := models.PopupPlacement{Top: anchor.Bottom() + margin, Left: anchor.Left}

	spaceBelow := viewport.Height - anchor.Bottom() - margin
	spaceAbove := anchor.Top - margin
	if popup.Height > spaceBelow && spaceAbove > spaceBelow {
		placement.Above = true
		placement.Top = anchor.Top - margin - popup.Height
		if placement.Top < margin {
			placement.Top = margin
		}
	}

	if maxLeft := viewport.Width - margin - popup.Width; placement.Left > maxLeft {
		placement.Left = maxLeft
	}
	if placement.Left < margin {
		placement.Left = margin
	}
	return placement
}
