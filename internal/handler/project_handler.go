package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fms-tracker-api/internal/dto"
	"github.com/noah-isme/fms-tracker-api/internal/middleware"
	"github.com/noah-isme/fms-tracker-api/internal/models"
	"github.com/noah-isme/fms-tracker-api/internal/service"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
	"github.com/noah-isme/fms-tracker-api/pkg/response"
)

type projectService interface {
	Get(ctx context.Context, id string, kinds []models.TrackerKind) (*dto.ProjectEnvelope, error)
	UpdateTrackers(ctx context.Context, id string, body map[string]json.RawMessage) (*dto.ProjectEnvelope, error)
}

// ProjectHandler exposes project reads and tracker field writes.
type ProjectHandler struct {
	service projectService
}

// NewProjectHandler builds a new handler.
func NewProjectHandler(service projectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// Register mounts the project routes. Whole-field writes are limited to managers and admins.
func (h *ProjectHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/projects/:id", h.Get)
	rg.PATCH("/projects/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager), h.Update)
}

// Get godoc
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Param fields query string false "Comma separated tracker fields to include"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	kinds, err := service.ParseFields(c.Query("fields"))
	if err != nil {
		response.Error(c, err)
		return
	}
	env, err := h.service.Get(c.Request.Context(), c.Param("id"), kinds)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, env, nil)
}

// Update godoc
// @Summary Replace tracker fields
// @Description Each key is a tracker field name; values may be JSON strings or partition objects and are normalized before storing.
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body object true "Tracker fields"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /projects/{id} [patch]
func (h *ProjectHandler) Update(c *gin.Context) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}
	env, err := h.service.UpdateTrackers(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPersisted(c, true)
	response.JSON(c, http.StatusOK, env, nil, middleware.ExtractMeta(c))
}
