package service

import (
	"context"
	"errors"

	"github.com/huiqicai/hci-social-backend/internal/domain"
	"github.com/huiqicai/hci-social-backend/internal/hub"
)

var (
	ErrInvalidParticipants  = errors.New("invalid participants")
	ErrRoomCreationFailed   = errors.New("room creation failed")
	ErrRoomResolutionFailed = errors.New("room resolution failed")
)

// RoomResolver finds or creates the unique two-party room for a user pair
// within a tenant. Safe under concurrent invocation for the same pair.
type RoomResolver interface {
	Resolve(ctx context.Context, tenantID string, fromUserID, toUserID int64) (uint, error)
}

// ChatService handles the websocket chat events for live clients.
type ChatService interface {
	HandleCreateRoom(ctx context.Context, c *hub.Client, msg domain.CreateRoomMessage) error
	HandleSend(ctx context.Context, c *hub.Client, msg domain.SendMessagePayload) error
	HandleConnect(ctx context.Context, c *hub.Client, userID int64)
	HandleDisconnect(ctx context.Context, c *hub.Client)
}

// HistoryService is the read path for persisted chat history.
type HistoryService interface {
	GetChatHistory(ctx context.Context, tenantID string, roomID uint) ([]domain.Message, error)
}
