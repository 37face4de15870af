package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/huiqicai/hci-social-backend/internal/repository"
	"github.com/huiqicai/hci-social-backend/internal/service"
	"github.com/huiqicai/hci-social-backend/internal/tenant"
	"github.com/huiqicai/hci-social-backend/pkg/log"
	"github.com/huiqicai/hci-social-backend/pkg/middleware"
	"github.com/huiqicai/hci-social-backend/pkg/response"
)

// HTTPHandler serves the read-only chat history endpoint.
type HTTPHandler struct {
	history service.HistoryService
}

func NewHTTPHandler(history service.HistoryService) *HTTPHandler {
	return &HTTPHandler{history: history}
}

// RegisterRoutes mounts the history endpoint behind the auth middleware.
// The tenant is taken from the authenticated caller's claims, never from
// the request payload.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	r.GET("/history/:roomId", auth, h.GetChatHistory)
	r.GET("/health", h.HealthCheck)
}

func (h *HTTPHandler) GetChatHistory(c *gin.Context) {
	tenantID := c.GetString(middleware.CtxTenantID)

	roomID, err := strconv.ParseUint(c.Param("roomId"), 10, 64)
	if err != nil {
		response.BadRequest(c, "roomId must be a positive integer")
		return
	}

	messages, err := h.history.GetChatHistory(c.Request.Context(), tenantID, uint(roomID))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomNotFound):
			response.NotFound(c, "chat room not found")
		case errors.Is(err, tenant.ErrUnknownTenant):
			response.Unauthorized(c, "unknown tenant")
		default:
			l := log.Ctx(c.Request.Context())
			l.Error().Err(err).Uint("room_id", uint(roomID)).Msg("failed to get chat history")
			response.InternalError(c, "failed to get chat history")
		}
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
