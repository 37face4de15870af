package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/huiqicai/hci-social-backend/internal/domain"
	"github.com/huiqicai/hci-social-backend/pkg/database"
)

func newTestRepo(t *testing.T) *GormChatRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(dsn, database.Options{MaxIdleConns: 1, MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db,
		&domain.ChatRoom{},
		&domain.ChatRoomMembership{},
		&domain.Message{},
	))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return NewGormChatRepository(db)
}

func TestCreateRoomWithMembers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	roomID, err := repo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)
	require.NotZero(t, roomID)

	rooms, err := repo.RoomsByMembers(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, roomID, rooms[0].ID)
}

func TestRoomsByMembers_ExactPairOnly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Pair (1,2) exists; pair (1,3) exists; no pair (2,3).
	room12, err := repo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repo.CreateRoomWithMembers(ctx, 1, 3)
	require.NoError(t, err)

	rooms, err := repo.RoomsByMembers(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, room12, rooms[0].ID)

	rooms, err = repo.RoomsByMembers(ctx, 2, 3)
	require.NoError(t, err)
	require.Empty(t, rooms)

	// Argument order must not matter.
	rooms, err = repo.RoomsByMembers(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, room12, rooms[0].ID)
}

func TestRoomsByMembers_IgnoresRoomsWithExtraMembers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	roomID, err := repo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	// Corrupt the room with a third member row; the exact-pair query must
	// no longer match it.
	extra := domain.ChatRoomMembership{ChatRoomID: roomID, UserID: 3}
	require.NoError(t, repo.db.Create(&extra).Error)

	rooms, err := repo.RoomsByMembers(ctx, 1, 2)
	require.NoError(t, err)
	require.Empty(t, rooms)
}

func TestCreateRoomWithMembers_ReturnsAscendingDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateRoomWithMembers(ctx, 5, 6)
	require.NoError(t, err)
	second, err := repo.CreateRoomWithMembers(ctx, 5, 6)
	require.NoError(t, err)
	require.Greater(t, second, first)

	rooms, err := repo.RoomsByMembers(ctx, 5, 6)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.Equal(t, first, rooms[0].ID)
	require.Equal(t, second, rooms[1].ID)
}

func TestDeleteRooms(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	keep, err := repo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)
	drop, err := repo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteRooms(ctx, []uint{drop}))

	rooms, err := repo.RoomsByMembers(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, keep, rooms[0].ID)

	var memberships int64
	require.NoError(t, repo.db.Model(&domain.ChatRoomMembership{}).Where("chat_room_id = ?", drop).Count(&memberships).Error)
	require.Zero(t, memberships)

	_, err = repo.RoomByID(ctx, drop)
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestMessagesByRoom_OrderedByCreationAscending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	roomID, err := repo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	to := int64(2)
	for i, content := range []string{"first", "second", "third"} {
		msg := domain.Message{
			ChatRoomID: roomID,
			FromUserID: 1,
			ToUserID:   &to,
			Content:    content,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.CreateMessage(ctx, &msg))
	}

	messages, err := repo.MessagesByRoom(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, "first", messages[0].Content)
	require.Equal(t, "second", messages[1].Content)
	require.Equal(t, "third", messages[2].Content)
}

func TestMemberSocketAnnotation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	roomID, err := repo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	require.NoError(t, repo.SetMemberSocket(ctx, 1, "sock-1"))

	var member domain.ChatRoomMembership
	require.NoError(t, repo.db.Where("chat_room_id = ? AND user_id = ?", roomID, 1).First(&member).Error)
	require.Equal(t, "sock-1", member.ConnectedToSocket)

	require.NoError(t, repo.ClearMemberSocket(ctx, "sock-1"))
	require.NoError(t, repo.db.Where("chat_room_id = ? AND user_id = ?", roomID, 1).First(&member).Error)
	require.Empty(t, member.ConnectedToSocket)
}

func TestDeleteUserData(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	roomID, err := repo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	to := int64(2)
	require.NoError(t, repo.CreateMessage(ctx, &domain.Message{
		ChatRoomID: roomID, FromUserID: 1, ToUserID: &to, Content: "bye",
	}))

	require.NoError(t, repo.DeleteUserData(ctx, 1))

	messages, err := repo.MessagesByRoom(ctx, roomID)
	require.NoError(t, err)
	require.Empty(t, messages)

	var memberships int64
	require.NoError(t, repo.db.Model(&domain.ChatRoomMembership{}).Where("user_id = ?", 1).Count(&memberships).Error)
	require.Zero(t, memberships)
}
