package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/fms-tracker-api/internal/dto"
	"github.com/noah-isme/fms-tracker-api/internal/middleware"
	"github.com/noah-isme/fms-tracker-api/internal/models"
	"github.com/noah-isme/fms-tracker-api/internal/service"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
	"github.com/noah-isme/fms-tracker-api/pkg/response"
)

const defaultPopupMargin = 8

type trackerSessions interface {
	Open(ctx context.Context, projectID string, kind models.TrackerKind) (*service.TrackerSession, error)
	Close(ctx context.Context, projectID string, kind models.TrackerKind) error
}

type templateSource interface {
	Get(ctx context.Context, id string) (*models.Template, error)
	Apply(store *service.TrackerStore, tpl models.Template, year string, replace bool) ([]models.Section, error)
}

// TrackerHandler exposes the year-partitioned tracker of a project.
type TrackerHandler struct {
	sessions  trackerSessions
	templates templateSource
	exporter  *service.TrackerExportService
	deeplinks *service.DeepLinkService
	validate  *validator.Validate
}

// NewTrackerHandler constructs the handler.
func NewTrackerHandler(sessions trackerSessions, templates templateSource, exporter *service.TrackerExportService, deeplinks *service.DeepLinkService, validate *validator.Validate) *TrackerHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &TrackerHandler{sessions: sessions, templates: templates, exporter: exporter, deeplinks: deeplinks, validate: validate}
}

// Register mounts the tracker routes under /projects/:id/trackers/:kind.
func (h *TrackerHandler) Register(rg *gin.RouterGroup) {
	tracker := rg.Group("/projects/:id/trackers/:kind")
	tracker.GET("", h.View)
	tracker.POST("/sections", h.AddSection)
	tracker.PUT("/sections/:sectionId", h.UpdateSection)
	tracker.DELETE("/sections/:sectionId", h.DeleteSection)
	tracker.POST("/sections/:sectionId/documents", h.AddDocument)
	tracker.PUT("/sections/:sectionId/documents/:documentId", h.UpdateDocument)
	tracker.DELETE("/sections/:sectionId/documents/:documentId", h.DeleteDocument)
	tracker.PUT("/status", h.SetStatus)
	tracker.PUT("/status/bulk", h.BulkStatus)
	tracker.POST("/comments", h.AddComment)
	tracker.DELETE("/comments/:commentId", h.DeleteComment)
	tracker.POST("/templates/:templateId/apply", h.ApplyTemplate)
	tracker.GET("/export", h.Export)
	tracker.GET("/deeplink", h.DeepLink)
	tracker.POST("/flush", h.Flush)
	tracker.POST("/refresh", h.Refresh)
	tracker.DELETE("/session", h.CloseSession)
}

// View godoc
// @Summary Get one year of a tracker
// @Tags Trackers
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field" Enums(documentSections, weeklyFMSReviewSections, monthlyFMSReviewSections)
// @Param year query string false "Year (YYYY)"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind} [get]
func (h *TrackerHandler) View(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	view, err := session.View(c.Query("year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

// AddSection godoc
// @Summary Add a section
// @Tags Trackers
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param payload body dto.SectionInput true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/sections [post]
func (h *TrackerHandler) AddSection(c *gin.Context) {
	var req dto.SectionInput
	if !h.bind(c, &req, "invalid section payload") {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	section, err := session.AddSection(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section, middleware.ExtractMeta(c))
}

// UpdateSection godoc
// @Summary Update a section
// @Tags Trackers
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param sectionId path string true "Section ID"
// @Param payload body dto.SectionInput true "Section payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/sections/{sectionId} [put]
func (h *TrackerHandler) UpdateSection(c *gin.Context) {
	var req dto.SectionInput
	if !h.bind(c, &req, "invalid section payload") {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	section, err := session.UpdateSection(c.Param("sectionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil, middleware.ExtractMeta(c))
}

// DeleteSection godoc
// @Summary Delete a section from every year
// @Description Removes the section optimistically and persists at once; a failed save restores it.
// @Tags Trackers
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/sections/{sectionId} [delete]
func (h *TrackerHandler) DeleteSection(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	sectionID := c.Param("sectionId")
	if err := session.DeleteSection(c.Request.Context(), sectionID); err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPersisted(c, true)
	response.JSON(c, http.StatusOK, gin.H{"id": sectionID}, nil, middleware.ExtractMeta(c))
}

// AddDocument godoc
// @Summary Add a document to a section
// @Tags Trackers
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param sectionId path string true "Section ID"
// @Param payload body dto.DocumentInput true "Document payload"
// @Success 201 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/sections/{sectionId}/documents [post]
func (h *TrackerHandler) AddDocument(c *gin.Context) {
	var req dto.DocumentInput
	if !h.bind(c, &req, "invalid document payload") {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	doc, err := session.AddDocument(c.Param("sectionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc, middleware.ExtractMeta(c))
}

// UpdateDocument godoc
// @Summary Update a document
// @Tags Trackers
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param sectionId path string true "Section ID"
// @Param documentId path string true "Document ID"
// @Param payload body dto.DocumentInput true "Document payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/sections/{sectionId}/documents/{documentId} [put]
func (h *TrackerHandler) UpdateDocument(c *gin.Context) {
	var req dto.DocumentInput
	if !h.bind(c, &req, "invalid document payload") {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	doc, err := session.UpdateDocument(c.Param("sectionId"), c.Param("documentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil, middleware.ExtractMeta(c))
}

// DeleteDocument godoc
// @Summary Delete a document from one year
// @Tags Trackers
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param sectionId path string true "Section ID"
// @Param documentId path string true "Document ID"
// @Param year query string true "Year (YYYY)"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/sections/{sectionId}/documents/{documentId} [delete]
func (h *TrackerHandler) DeleteDocument(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	documentID := c.Param("documentId")
	if err := session.DeleteDocument(c.Request.Context(), c.Query("year"), c.Param("sectionId"), documentID); err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPersisted(c, true)
	response.JSON(c, http.StatusOK, gin.H{"id": documentID}, nil, middleware.ExtractMeta(c))
}

// SetStatus godoc
// @Summary Set or clear one status cell
// @Tags Trackers
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param payload body dto.SetStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/status [put]
func (h *TrackerHandler) SetStatus(c *gin.Context) {
	var req dto.SetStatusRequest
	if !h.bind(c, &req, "invalid status payload") {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	result, err := session.SetStatus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPersisted(c, result.Persisted)
	response.JSON(c, http.StatusOK, req.CellRef, nil, middleware.ExtractMeta(c))
}

// BulkStatus godoc
// @Summary Apply one status to several cells
// @Tags Trackers
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param payload body dto.BulkStatusRequest true "Bulk status payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/status/bulk [put]
func (h *TrackerHandler) BulkStatus(c *gin.Context) {
	var req dto.BulkStatusRequest
	if !h.bind(c, &req, "invalid bulk status payload") {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	result, err := session.ApplyStatus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPersisted(c, result.Persisted)
	response.JSON(c, http.StatusOK, gin.H{"updated": len(req.Cells)}, nil, middleware.ExtractMeta(c))
}

// AddComment godoc
// @Summary Comment on a cell
// @Tags Trackers
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param payload body dto.AddCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/comments [post]
func (h *TrackerHandler) AddComment(c *gin.Context) {
	var req dto.AddCommentRequest
	if !h.bind(c, &req, "invalid comment payload") {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	comment, result, err := session.AddComment(c.Request.Context(), req, models.ActorFromClaims(claimsFromContext(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPersisted(c, result.Persisted)
	response.Created(c, comment, middleware.ExtractMeta(c))
}

// DeleteComment godoc
// @Summary Delete a comment
// @Description Only the author or an admin may delete a comment.
// @Tags Trackers
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param commentId path string true "Comment ID"
// @Param sectionId query string true "Section ID"
// @Param documentId query string true "Document ID"
// @Param monthKey query string true "Month (YYYY-MM)"
// @Param year query string false "Year (YYYY)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/comments/{commentId} [delete]
func (h *TrackerHandler) DeleteComment(c *gin.Context) {
	cell := models.CellRef{
		SectionID:  c.Query("sectionId"),
		DocumentID: c.Query("documentId"),
		MonthKey:   models.MonthKey(c.Query("monthKey")),
	}
	if err := h.validate.Struct(cell); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "sectionId, documentId and monthKey required"))
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	commentID := c.Param("commentId")
	result, err := session.DeleteComment(c.Request.Context(), c.Query("year"), cell, commentID, models.ActorFromClaims(claimsFromContext(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPersisted(c, result.Persisted)
	response.JSON(c, http.StatusOK, gin.H{"id": commentID}, nil, middleware.ExtractMeta(c))
}

// ApplyTemplate godoc
// @Summary Clone a template into a year
// @Tags Trackers
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param templateId path string true "Template ID"
// @Param payload body dto.ApplyTemplateRequest true "Apply payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/templates/{templateId}/apply [post]
func (h *TrackerHandler) ApplyTemplate(c *gin.Context) {
	var req dto.ApplyTemplateRequest
	if !h.bind(c, &req, "invalid apply payload") {
		return
	}
	tpl, err := h.templates.Get(c.Request.Context(), c.Param("templateId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	sections, err := session.ApplyTemplate(h.templates, *tpl, req.Year, req.Replace)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export one year of a tracker
// @Tags Trackers
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param year query string false "Year (YYYY)"
// @Param format query string false "xlsx, csv or pdf" default(xlsx)
// @Success 200 {file} file
// @Router /projects/{id}/trackers/{kind}/export [get]
func (h *TrackerHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	file, err := session.Export(h.exporter, c.Query("year"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// DeepLink godoc
// @Summary Resolve a deep link to a tracker cell
// @Description Accepts either a url parameter holding a full link or the raw docSectionId, docDocumentId, docMonth and commentId parameters.
// @Tags Trackers
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Param url query string false "Deep link URL"
// @Param anchorTop query number false "Highlighted cell top"
// @Param anchorLeft query number false "Highlighted cell left"
// @Param anchorWidth query number false "Highlighted cell width"
// @Param anchorHeight query number false "Highlighted cell height"
// @Param popupWidth query number false "Comment popup width"
// @Param popupHeight query number false "Comment popup height"
// @Param viewportWidth query number false "Viewport width"
// @Param viewportHeight query number false "Viewport height"
// @Param margin query number false "Gap between cell and popup, default 8"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/deeplink [get]
func (h *TrackerHandler) DeepLink(c *gin.Context) {
	target, err := deepLinkTarget(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var popup dto.PopupQuery
	if err := c.ShouldBindQuery(&popup); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid popup geometry"))
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	loc, err := session.ResolveDeepLink(c.Request.Context(), h.deeplinks, target)
	if err != nil {
		response.Error(c, err)
		return
	}
	if popup.HasViewport() {
		margin := popup.Margin
		if margin <= 0 {
			margin = defaultPopupMargin
		}
		placement := service.PlacePopup(
			models.Rect{Top: popup.AnchorTop, Left: popup.AnchorLeft, Width: popup.AnchorWidth, Height: popup.AnchorHeight},
			models.Size{Width: popup.PopupWidth, Height: popup.PopupHeight},
			models.Size{Width: popup.ViewportWidth, Height: popup.ViewportHeight},
			margin,
		)
		loc.Popup = &placement
	}
	response.JSON(c, http.StatusOK, loc, nil, middleware.ExtractMeta(c))
}

// Flush godoc
// @Summary Save the tracker now
// @Tags Trackers
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/flush [post]
func (h *TrackerHandler) Flush(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	persisted, err := session.Flush(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPersisted(c, persisted)
	response.JSON(c, http.StatusOK, gin.H{"persisted": persisted}, nil, middleware.ExtractMeta(c))
}

// Refresh godoc
// @Summary Reload the tracker from the database
// @Description Skipped while a deletion is in progress or local edits are unsaved.
// @Tags Trackers
// @Produce json
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/trackers/{kind}/refresh [post]
func (h *TrackerHandler) Refresh(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	refreshed, err := session.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"refreshed": refreshed}, nil, middleware.ExtractMeta(c))
}

// CloseSession godoc
// @Summary Flush and close the tracker session
// @Tags Trackers
// @Param id path string true "Project ID"
// @Param kind path string true "Tracker field"
// @Success 204
// @Router /projects/{id}/trackers/{kind}/session [delete]
func (h *TrackerHandler) CloseSession(c *gin.Context) {
	kind, ok := trackerKind(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(c.Request.Context(), c.Param("id"), kind); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *TrackerHandler) session(c *gin.Context) (*service.TrackerSession, bool) {
	kind, ok := trackerKind(c)
	if !ok {
		return nil, false
	}
	session, err := h.sessions.Open(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return session, true
}

func (h *TrackerHandler) bind(c *gin.Context, req interface{}, message string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func trackerKind(c *gin.Context) (models.TrackerKind, bool) {
	kind, ok := models.ParseTrackerKind(c.Param("kind"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown tracker"))
		return "", false
	}
	return kind, true
}

func deepLinkTarget(c *gin.Context) (models.DeepLinkTarget, error) {
	if raw := strings.TrimSpace(c.Query("url")); raw != "" {
		return service.ParseDeepLink(raw)
	}
	target, ok, err := service.TargetFromQuery(c.Request.URL.Query())
	if err != nil {
		return models.DeepLinkTarget{}, err
	}
	if !ok {
		return models.DeepLinkTarget{}, appErrors.Clone(appErrors.ErrValidation, "url or docSectionId and docDocumentId required")
	}
	return target, nil
}
