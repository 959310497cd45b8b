package registration

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sarops/incident-api/internal/handler"
	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/service/enrollment"
	"github.com/sarops/incident-api/internal/service/registration"
)

// Handler is the public enrollment surface. No person authentication happens
// here; a valid access code is the only gate.
type Handler struct {
	gateway    *registration.Service
	enrollment *enrollment.Service
}

func NewHandler(gateway *registration.Service, enrollmentSvc *enrollment.Service) *Handler {
	return &Handler{
		gateway:    gateway,
		enrollment: enrollmentSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Path pattern preserved bit-exact: issued QR codes embed it.
	r.GET("/registro-personal/:code", h.ResolveAccess)
	r.POST("/registro-personal/:code/sessions", h.OpenSession)

	sessions := r.Group("/enrollment-sessions/:sessionId")
	{
		sessions.GET("", h.GetSession)
		sessions.DELETE("", h.AbandonSession)
		sessions.POST("/leader", h.SubmitLeader)
		sessions.POST("/leader/change", h.ChangeLeader)
		sessions.POST("/leader/edit", h.EditLeader)
		sessions.POST("/agents", h.AddAgent)
		sessions.DELETE("/agents/:tempId", h.DeleteAgent)
		sessions.POST("/agents/:tempId/edit", h.BeginEditAgent)
		sessions.POST("/agents/edit/save", h.SaveAgent)
		sessions.POST("/agents/edit/cancel", h.CancelEdit)
		sessions.POST("/review", h.Review)
		sessions.POST("/back", h.Back)
		sessions.POST("/commit", h.Commit)
	}
}

// ResolveAccess validates the scanned code and returns the incident context
// shown to the enrolling user before they submit personal data.
func (h *Handler) ResolveAccess(c *gin.Context) {
	access, err := h.gateway.ResolveAccess(c.Request.Context(), c.Param("code"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"incident": gin.H{
			"id":    access.Incident.ID,
			"title": access.Incident.Title,
		},
	}))
}

func (h *Handler) OpenSession(c *gin.Context) {
	session, access, err := h.gateway.OpenSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"session_id": session.ID,
		"phase":      session.Phase(),
		"incident": gin.H{
			"id":    access.Incident.ID,
			"title": access.Incident.Title,
		},
	}))
}

func (h *Handler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.view(session)))
}

func (h *Handler) AbandonSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}
	h.enrollment.Abandon(id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) SubmitLeader(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var input model.PersonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := session.SubmitLeader(input); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.view(session)))
}

func (h *Handler) ChangeLeader(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.ChangeLeader(); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.view(session)))
}

func (h *Handler) EditLeader(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	current, err := session.EditLeader()
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"phase":  session.Phase(),
		"leader": current,
	}))
}

func (h *Handler) AddAgent(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var input model.PersonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tempID, err := session.AddAgent(input)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"temp_id": tempID,
		"agents":  session.Agents(),
	}))
}

func (h *Handler) DeleteAgent(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.DeleteAgent(enrollment.TempID(c.Param("tempId"))); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"agents": session.Agents()}))
}

func (h *Handler) BeginEditAgent(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	input, err := session.BeginEditAgent(enrollment.TempID(c.Param("tempId")))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"temp_id": c.Param("tempId"),
		"input":   input,
	}))
}

func (h *Handler) SaveAgent(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var input model.PersonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := session.SaveAgent(input); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.view(session)))
}

func (h *Handler) CancelEdit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.CancelEdit()
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.view(session)))
}

func (h *Handler) Review(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Review(); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.view(session)))
}

func (h *Handler) Back(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Back(); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.view(session)))
}

func (h *Handler) Commit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	result, err := h.enrollment.Commit(c.Request.Context(), id)
	if err != nil {
		// Partial state is part of the contract: surface what went through
		// alongside the failure instead of hiding it.
		if result != nil {
			c.JSON(http.StatusBadGateway, &handler.Response{
				Status:  "error",
				Message: result.Error,
				Data:    result,
			})
			return
		}
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) session(c *gin.Context) (*enrollment.Session, bool) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return nil, false
	}

	session, err := h.enrollment.Manager().Get(id)
	if err != nil {
		handler.RespondError(c, err)
		return nil, false
	}
	return session, true
}

func (h *Handler) view(s *enrollment.Session) gin.H {
	return gin.H{
		"session_id": s.ID,
		"phase":      s.Phase(),
		"leader":     s.Leader(),
		"agents":     s.Agents(),
		"editing":    s.Editing(),
		"last_error": s.LastError(),
	}
}
