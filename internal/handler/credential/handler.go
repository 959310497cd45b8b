package credential

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sarops/incident-api/internal/email"
	"github.com/sarops/incident-api/internal/handler"
	"github.com/sarops/incident-api/internal/middleware"
	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/service/credential"
)

type Handler struct {
	store     credential.Store
	presenter *credential.Presenter
	email     email.Service
}

func NewHandler(store credential.Store, presenter *credential.Presenter, emailSvc email.Service) *Handler {
	return &Handler{
		store:     store,
		presenter: presenter,
		email:     emailSvc,
	}
}

// RegisterRoutes mounts the coordinator-facing credential surface. The group
// is expected to carry the auth middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/incidents/:id/credential", h.Issue)
	r.GET("/incidents/:id/credential", h.GetCurrent)
	r.GET("/incidents/:id/credential/qr.png", h.QRImage)

	credentials := r.Group("/credentials")
	{
		credentials.POST("/:id/regenerate", h.Regenerate)
		credentials.GET("/:id/personnel", h.ListPersonnel)
	}
}

func (h *Handler) Issue(c *gin.Context) {
	var cfg model.CredentialConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cred, err := h.store.Issue(c.Request.Context(), c.Param("id"), cfg, middleware.OperatorID(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cred))
}

func (h *Handler) GetCurrent(c *gin.Context) {
	cred, err := h.store.GetActiveForIncident(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cred))
}

func (h *Handler) Regenerate(c *gin.Context) {
	oldID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid credential ID"))
		return
	}

	var cfg model.CredentialConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cred, err := h.store.Regenerate(c.Request.Context(), oldID, cfg, middleware.OperatorID(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if h.email != nil {
		h.email.CredentialRegenerated(c.Request.Context(), cred.IncidentID, cred.AccessCode)
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cred))
}

func (h *Handler) ListPersonnel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid credential ID"))
		return
	}

	records, err := h.store.ListPersonnel(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}

// QRImage renders the current credential's payload as a downloadable PNG.
func (h *Handler) QRImage(c *gin.Context) {
	cred, err := h.store.GetActiveForIncident(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	png, err := h.presenter.PNG(cred.AccessCode, 256)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
