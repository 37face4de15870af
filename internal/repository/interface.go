package repository

import (
	"context"
	"errors"

	"github.com/huiqicai/hci-social-backend/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("chat room not found")
)

// ChatRepository provides chat persistence for a single tenant. Instances
// are handed out by the Gateway; callers never mix tenants on one instance.
type ChatRepository interface {
	// RoomsByMembers returns rooms whose membership set is exactly
	// {userA, userB}, ordered by ascending room id.
	RoomsByMembers(ctx context.Context, userA, userB int64) ([]domain.ChatRoom, error)

	// CreateRoomWithMembers creates a room with exactly two membership rows.
	// Membership inserts that would violate the (room, user) uniqueness
	// constraint are silently skipped.
	CreateRoomWithMembers(ctx context.Context, userA, userB int64) (uint, error)

	// DeleteRooms removes rooms and their memberships and messages.
	DeleteRooms(ctx context.Context, ids []uint) error

	RoomByID(ctx context.Context, id uint) (*domain.ChatRoom, error)

	CreateMessage(ctx context.Context, msg *domain.Message) error

	// MessagesByRoom returns a room's messages ordered by creation time
	// ascending.
	MessagesByRoom(ctx context.Context, roomID uint) ([]domain.Message, error)

	// SetMemberSocket annotates all of a user's memberships with their
	// currently connected socket identifier.
	SetMemberSocket(ctx context.Context, userID int64, socketID string) error

	// ClearMemberSocket removes a socket annotation wherever it appears.
	ClearMemberSocket(ctx context.Context, socketID string) error

	// DeleteUserData cascade-deletes a removed user's memberships and
	// messages. Invoked by the user-deletion workflow.
	DeleteUserData(ctx context.Context, userID int64) error
}
