package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fms-tracker-api/internal/dto"
	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
	"github.com/noah-isme/fms-tracker-api/pkg/response"
)

type templateService interface {
	List(ctx context.Context) ([]models.Template, error)
	Get(ctx context.Context, id string) (*models.Template, error)
	Create(ctx context.Context, req dto.TemplateRequest, actor *models.JWTClaims) (*models.Template, error)
	Update(ctx context.Context, id string, req dto.TemplateRequest, actor *models.JWTClaims) (*models.Template, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// TemplateHandler exposes document-collection template endpoints.
type TemplateHandler struct {
	service templateService
}

// NewTemplateHandler builds a new handler.
func NewTemplateHandler(service templateService) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// Register mounts the template routes.
func (h *TemplateHandler) Register(rg *gin.RouterGroup) {
	templates := rg.Group("/document-collection-templates")
	templates.GET("", h.List)
	templates.POST("", h.Create)
	templates.GET("/:id", h.Get)
	templates.PUT("/:id", h.Update)
	templates.DELETE("/:id", h.Delete)
}

// List godoc
// @Summary List templates
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /document-collection-templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get template by ID
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /document-collection-templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create template
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body dto.TemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Router /document-collection-templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	var req dto.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update template
// @Description Default templates are read-only.
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body dto.TemplateRequest true "Template payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /document-collection-templates/{id} [put]
func (h *TemplateHandler) Update(c *gin.Context) {
	var req dto.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete template
// @Description Default templates are read-only.
// @Tags Templates
// @Param id path string true "Template ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /document-collection-templates/{id} [delete]
func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
