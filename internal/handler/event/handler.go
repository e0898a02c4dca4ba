package event

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/event-api/internal/handler"
	"github.com/jwalitptl/event-api/internal/model"
	eventService "github.com/jwalitptl/event-api/internal/service/event"
)

type Handler struct {
	service *eventService.Service
}

func NewHandler(service *eventService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	events := r.Group("/events")
	{
		events.POST("", h.CreateEvent)
		events.GET("", h.ListEvents)
		events.GET("/:id", h.GetEvent)
		events.PUT("/:id", h.UpdateEvent)
		events.DELETE("/:id", h.DeleteEvent)
	}
}

type createEventRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required,gtfield=StartsAt"`
	SenderEmail string    `json:"sender_email" binding:"omitempty,email"`
	SubjectTmpl string    `json:"subject_template"`
	BodyTmpl    string    `json:"body_template"`
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	event := &model.Event{
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		SenderEmail: req.SenderEmail,
		SubjectTmpl: req.SubjectTmpl,
		BodyTmpl:    req.BodyTmpl,
	}

	if err := h.service.CreateEvent(c.Request.Context(), event); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(event))
}

func (h *Handler) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid event ID"))
		return
	}

	event, err := h.service.GetEvent(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(event))
}

func (h *Handler) UpdateEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid event ID"))
		return
	}

	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	event := &model.Event{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		SenderEmail: req.SenderEmail,
		SubjectTmpl: req.SubjectTmpl,
		BodyTmpl:    req.BodyTmpl,
	}

	if err := h.service.UpdateEvent(c.Request.Context(), event); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(event))
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid event ID"))
		return
	}

	if err := h.service.DeleteEvent(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListEvents(c *gin.Context) {
	filters := &model.EventFilters{
		SearchTerm: c.Query("search"),
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid from timestamp"))
			return
		}
		filters.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid to timestamp"))
			return
		}
		filters.To = t
	}

	events, err := h.service.ListEvents(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(events))
}
