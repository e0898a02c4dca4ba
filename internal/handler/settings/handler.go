package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/event-api/internal/handler"
	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
)

// Handler exposes the central dispatch settings: SMTP configuration and the
// rate-limit ceilings. Changes take effect on the next dispatch.
type Handler struct {
	repo repository.SettingsRepository
}

func NewHandler(repo repository.SettingsRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	settings := r.Group("/settings")
	{
		settings.GET("/dispatch", h.GetSettings)
		settings.PUT("/dispatch", h.UpdateSettings)
	}
}

type updateSettingsRequest struct {
	SMTPEnabled   bool   `json:"smtp_enabled"`
	SMTPHost      string `json:"smtp_host"`
	SMTPPort      int    `json:"smtp_port" binding:"omitempty,min=1,max=65535"`
	SMTPUser      string `json:"smtp_user"`
	SMTPPassword  string `json:"smtp_password"`
	SenderEmail   string `json:"sender_email" binding:"omitempty,email"`
	HourlyCeiling int    `json:"hourly_ceiling" binding:"min=0"`
	DailyCeiling  int    `json:"daily_ceiling" binding:"min=0"`
}

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.repo.Get(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(settings))
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	settings := &model.DispatchSettings{
		SMTPEnabled:   req.SMTPEnabled,
		SMTPHost:      req.SMTPHost,
		SMTPPort:      req.SMTPPort,
		SMTPUser:      req.SMTPUser,
		SMTPPassword:  req.SMTPPassword,
		SenderEmail:   req.SenderEmail,
		HourlyCeiling: req.HourlyCeiling,
		DailyCeiling:  req.DailyCeiling,
	}

	if err := h.repo.Update(c.Request.Context(), settings); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(settings))
}
