package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/huiqicai/hci-social-backend/internal/config"
	"github.com/huiqicai/hci-social-backend/internal/domain"
	"github.com/huiqicai/hci-social-backend/internal/hub"
	"github.com/huiqicai/hci-social-backend/internal/service"
	"github.com/huiqicai/hci-social-backend/internal/tenant"
	"github.com/huiqicai/hci-social-backend/pkg/log"
	"github.com/huiqicai/hci-social-backend/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades connections and dispatches chat events. A connection
// is assigned to its tenant namespace before any chat event is processed;
// a handshake without a known tenantID is rejected before the upgrade.
type WSHandler struct {
	hub      *hub.Hub
	service  service.ChatService
	tenants  *tenant.Registry
	wsCfg    config.WebSocketConfig
	validate *validator.Validate
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, tenants *tenant.Registry, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		tenants:  tenants,
		wsCfg:    wsCfg,
		validate: validator.New(),
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	tenantID := c.Query("tenantID")
	if tenantID == "" {
		response.BadRequest(c, "tenantID query parameter is required")
		return
	}
	if !h.tenants.Has(tenantID) {
		response.Error(c, http.StatusUnauthorized, domain.ErrCodeUnknownTenant, "unknown tenant")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), tenantID, h.hub, conn, h.wsCfg)
	h.hub.Register(client)

	// An optional userID handshake parameter registers presence up front;
	// otherwise the first chat event identifies the connection.
	if userID, err := strconv.ParseInt(c.Query("userID"), 10, 64); err == nil && userID > 0 {
		h.service.HandleConnect(context.Background(), client, userID)
	}

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleMessage)
		h.service.HandleDisconnect(context.Background(), client)
	}()
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	ctx := context.Background()
	l := log.L()

	switch base.Type {
	case domain.MsgTypeCreateRoom:
		var msg domain.CreateRoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid create_room payload"))
			return
		}
		if err := h.validate.Struct(&msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "fromUserID and toUserID must be positive integers"))
			return
		}
		if err := h.service.HandleCreateRoom(ctx, client, msg); err != nil {
			l.Warn().Err(err).Str(log.FieldSocketID, client.ID).Msg("create_room failed")
		}

	case domain.MsgTypeSend:
		var msg domain.SendMessagePayload
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid send payload"))
			return
		}
		if err := h.validate.Struct(&msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "fromUserID and toUserID must be positive integers and message must not be empty"))
			return
		}
		if err := h.service.HandleSend(ctx, client, msg); err != nil {
			l.Warn().Err(err).Str(log.FieldSocketID, client.ID).Msg("send failed")
		}

	case domain.MsgTypePing:
		client.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}
