package incident

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sarops/incident-api/internal/handler"
	"github.com/sarops/incident-api/internal/middleware"
	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/service/audit"
	"github.com/sarops/incident-api/internal/service/incident"
	"github.com/sarops/incident-api/internal/service/roster"
)

type Handler struct {
	incidents *incident.Service
	roster    *roster.Service
	auditor   *audit.Service
}

func NewHandler(incidents *incident.Service, rosterSvc *roster.Service, auditor *audit.Service) *Handler {
	return &Handler{
		incidents: incidents,
		roster:    rosterSvc,
		auditor:   auditor,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	incidents := r.Group("/incidents")
	{
		incidents.POST("", h.Create)
		incidents.GET("", h.List)
		incidents.GET("/:id", h.Get)

		incidents.GET("/:id/roster", h.Roster)
		incidents.POST("/:id/roster", h.AssignDirect)
		incidents.GET("/:id/roster/export", h.ExportRoster)
		incidents.GET("/:id/audit", h.AuditLog)
	}
	r.PATCH("/personnel/:id/estado", h.SetEstado)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.incidents.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) Get(c *gin.Context) {
	found, err := h.incidents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) List(c *gin.Context) {
	incidents, err := h.incidents.List(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(incidents))
}

func (h *Handler) Roster(c *gin.Context) {
	records, err := h.roster.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}

func (h *Handler) AssignDirect(c *gin.Context) {
	var input model.PersonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	record, err := h.roster.AssignDirect(c.Request.Context(), c.Param("id"), middleware.OperatorID(c), &input)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(record))
}

func (h *Handler) ExportRoster(c *gin.Context) {
	data, err := h.roster.ExportXLSX(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="personal-%s.xlsx"`, c.Param("id")))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *Handler) SetEstado(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid person ID"))
		return
	}

	var req struct {
		Estado string `json:"estado" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.roster.SetEstado(c.Request.Context(), id, model.Estado(req.Estado)); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) AuditLog(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	logs, err := h.auditor.ListByIncident(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}
