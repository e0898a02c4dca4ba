package join

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/event-api/internal/handler"
	"github.com/jwalitptl/event-api/internal/service/dispatch"
)

// Handler serves the public, unauthenticated join path.
type Handler struct {
	dispatcher *dispatch.Service
}

func NewHandler(dispatcher *dispatch.Service) *Handler {
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/join/:token", h.ResolveJoin)
}

func (h *Handler) ResolveJoin(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("missing join token"))
		return
	}

	view, err := h.dispatcher.ResolveJoin(c.Request.Context(), token)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(view))
}
