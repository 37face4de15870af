package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/huiqicai/hci-social-backend/internal/audit"
	"github.com/huiqicai/hci-social-backend/internal/domain"
	"github.com/huiqicai/hci-social-backend/internal/hub"
	"github.com/huiqicai/hci-social-backend/internal/registry"
	"github.com/huiqicai/hci-social-backend/internal/repository"
	"github.com/huiqicai/hci-social-backend/internal/tenant"
	"github.com/huiqicai/hci-social-backend/pkg/log"
)

type chatService struct {
	hub      *hub.Hub
	resolver RoomResolver
	gateway  *repository.Gateway
	presence registry.Presence
}

// NewChatService wires the fan-out protocol over the hub, the room
// resolution engine, the persistence gateway, and the connection registry.
func NewChatService(
	h *hub.Hub,
	resolver RoomResolver,
	gateway *repository.Gateway,
	presence registry.Presence,
) ChatService {
	return &chatService{
		hub:      h,
		resolver: resolver,
		gateway:  gateway,
		presence: presence,
	}
}

func (s *chatService) HandleCreateRoom(ctx context.Context, c *hub.Client, msg domain.CreateRoomMessage) error {
	s.identify(ctx, c, msg.FromUserID)

	roomID, err := s.resolver.Resolve(ctx, c.TenantID, msg.FromUserID, msg.ToUserID)
	if err != nil {
		s.sendResolutionError(ctx, c, err, "create-room")
		return err
	}

	s.hub.JoinRoom(c, c.TenantID, roomID)
	c.SendMessage(&domain.RoomCreatedMessage{Type: domain.MsgTypeRoomCreated, RoomID: roomID})

	s.inviteCounterpart(c.TenantID, roomID, msg.ToUserID)

	audit.Log(ctx, audit.ActionCreateRoom, c.TenantID, msg.FromUserID, "chat room resolved")
	return nil
}

func (s *chatService) HandleSend(ctx context.Context, c *hub.Client, msg domain.SendMessagePayload) error {
	s.identify(ctx, c, msg.FromUserID)

	// Send is self-sufficient: the room is resolved (and created if the
	// pair has never chatted) on every submission.
	roomID, err := s.resolver.Resolve(ctx, c.TenantID, msg.FromUserID, msg.ToUserID)
	if err != nil {
		s.sendResolutionError(ctx, c, err, "send")
		return err
	}

	repo, err := s.gateway.For(c.TenantID)
	if err != nil {
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeUnknownTenant, "unknown tenant"))
		return err
	}

	toUserID := msg.ToUserID
	record := &domain.Message{
		ChatRoomID: roomID,
		FromUserID: msg.FromUserID,
		ToUserID:   &toUserID,
		Content:    msg.Message,
	}
	if err := repo.CreateMessage(ctx, record); err != nil {
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodePersistence, "failed to store message"))
		return err
	}

	s.hub.JoinRoom(c, c.TenantID, roomID)
	s.inviteCounterpart(c.TenantID, roomID, msg.ToUserID)

	s.hub.BroadcastToRoom(c.TenantID, roomID, &domain.ChatMessageOut{
		Type:       domain.MsgTypeMessage,
		RoomID:     roomID,
		FromUserID: msg.FromUserID,
		ToUserID:   msg.ToUserID,
		Message:    msg.Message,
	}, c.ID)

	// The sender is acknowledged regardless of whether any recipient is
	// currently subscribed.
	c.SendMessage(&domain.AckMessage{Type: domain.MsgTypeAck, Message: "Message sent successfully!"})

	audit.Log(ctx, audit.ActionSendMessage, c.TenantID, msg.FromUserID, "chat message sent")
	return nil
}

func (s *chatService) HandleConnect(ctx context.Context, c *hub.Client, userID int64) {
	if userID < 1 {
		return
	}
	s.identify(ctx, c, userID)
}

func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) {
	tenantID, _, ok := s.presence.OnDisconnect(c.ID)
	if !ok {
		return
	}

	repo, err := s.gateway.For(tenantID)
	if err != nil {
		return
	}
	if err := repo.ClearMemberSocket(ctx, c.ID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldSocketID, c.ID).Msg("failed to clear membership socket annotation")
	}
}

// identify records which user is behind this connection. Later events for
// the same user supersede earlier sockets (reconnects are last-write-wins).
func (s *chatService) identify(ctx context.Context, c *hub.Client, userID int64) {
	c.UserID = userID
	s.presence.OnConnect(c.TenantID, userID, c.ID)

	repo, err := s.gateway.For(c.TenantID)
	if err != nil {
		return
	}
	if err := repo.SetMemberSocket(ctx, userID, c.ID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Int64(log.FieldUserID, userID).Msg("failed to annotate membership socket")
	}
}

// inviteCounterpart proactively subscribes the other participant's live
// connection, if any, to the room channel.
func (s *chatService) inviteCounterpart(tenantID string, roomID uint, userID int64) {
	socketID, ok := s.presence.Lookup(tenantID, userID)
	if !ok {
		return
	}
	peer, ok := s.hub.Client(socketID)
	if !ok {
		return
	}
	s.hub.JoinRoom(peer, tenantID, roomID)
	peer.SendMessage(&domain.RoomCreatedMessage{Type: domain.MsgTypeRoomCreated, RoomID: roomID})
}

// sendResolutionError converts a room-resolution failure into a structured
// error event; the connection handler never crashes on a bad event.
func (s *chatService) sendResolutionError(ctx context.Context, c *hub.Client, err error, op string) {
	l := log.Ctx(ctx)

	switch {
	case errors.Is(err, ErrInvalidParticipants):
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeInvalidParticipants, err.Error()))
	case errors.Is(err, tenant.ErrUnknownTenant):
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeUnknownTenant, "unknown tenant"))
	default:
		l.Error().Err(err).Str(log.FieldTenantID, c.TenantID).Msg(fmt.Sprintf("%s failed", op))
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, fmt.Sprintf("Error creating room: %v", err)))
	}
}
