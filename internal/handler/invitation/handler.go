package invitation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/event-api/internal/handler"
	"github.com/jwalitptl/event-api/internal/middleware"
	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/service/dispatch"
	"github.com/jwalitptl/event-api/internal/service/invite"
)

type Handler struct {
	dispatcher *dispatch.Service
	invites    *invite.Service
}

func NewHandler(dispatcher *dispatch.Service, invites *invite.Service) *Handler {
	return &Handler{dispatcher: dispatcher, invites: invites}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	events := r.Group("/events/:id")
	{
		events.POST("/invitations", h.CreateInvitation)
		events.GET("/invitations", h.ListInvitations)
		events.PATCH("/invitations/:invitationID", h.SetInvitationActive)
		events.GET("/dispatches", h.ListDispatches)
		events.GET("/dispatches/stats", h.DispatchStats)
	}
}

type createInvitationRequest struct {
	Method    string `json:"method" binding:"required,dispatchmethod"`
	Recipient string `json:"recipient" binding:"omitempty,email"`
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) CreateInvitation(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid event ID"))
		return
	}

	var req createInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	method, err := model.ParseDeliveryMethod(req.Method)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	dispatchReq := &dispatch.Request{
		EventID:    eventID,
		Method:     method,
		Recipient:  req.Recipient,
		OperatorID: middleware.OperatorID(c),
	}

	result, err := h.dispatcher.CreateInvitation(c.Request.Context(), dispatchReq)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) ListInvitations(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid event ID"))
		return
	}

	invitations, err := h.invites.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(invitations))
}

func (h *Handler) SetInvitationActive(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid event ID"))
		return
	}

	invitationID, err := uuid.Parse(c.Param("invitationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invitation ID"))
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	invitation, err := h.invites.SetActive(c.Request.Context(), eventID, invitationID, *req.Active)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(invitation))
}

func (h *Handler) ListDispatches(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid event ID"))
		return
	}

	records, err := h.dispatcher.ListRecords(c.Request.Context(), eventID, c.Query("status"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}

func (h *Handler) DispatchStats(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid event ID"))
		return
	}

	stats, err := h.dispatcher.Stats(c.Request.Context(), eventID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}
