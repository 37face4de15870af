package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huiqicai/hci-social-backend/internal/domain"
	"github.com/huiqicai/hci-social-backend/pkg/log"
)

// GormChatRepository implements ChatRepository using GORM against one
// tenant's database.
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a new GORM-based chat repository.
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

// RoomsByMembers matches rooms containing both users and nobody else. The
// two-party invariant makes "exactly this pair" equivalent to "both present,
// no extra members".
func (r *GormChatRepository) RoomsByMembers(ctx context.Context, userA, userB int64) ([]domain.ChatRoom, error) {
	l := log.Ctx(ctx)

	var rooms []domain.ChatRoom
	err := r.db.WithContext(ctx).
		Where("(SELECT COUNT(*) FROM chat_room_memberships m WHERE m.chat_room_id = chat_rooms.id AND m.user_id IN (?, ?)) = 2", userA, userB).
		Where("NOT EXISTS (SELECT 1 FROM chat_room_memberships m2 WHERE m2.chat_room_id = chat_rooms.id AND m2.user_id NOT IN (?, ?))", userA, userB).
		Order("id ASC").
		Find(&rooms).Error
	if err != nil {
		l.Error().Err(err).Msg("failed to query rooms by members")
		return nil, err
	}
	return rooms, nil
}

func (r *GormChatRepository) CreateRoomWithMembers(ctx context.Context, userA, userB int64) (uint, error) {
	l := log.Ctx(ctx)

	var roomID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room := domain.ChatRoom{}
		if err := tx.Create(&room).Error; err != nil {
			return err
		}

		members := []domain.ChatRoomMembership{
			{ChatRoomID: room.ID, UserID: userA},
			{ChatRoomID: room.ID, UserID: userB},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error; err != nil {
			return err
		}

		roomID = room.ID
		return nil
	})
	if err != nil {
		l.Error().Err(err).Msg("failed to create room with members")
		return 0, err
	}

	l.Debug().Uint(log.FieldRoomID, roomID).Msg("room created in db")
	return roomID, nil
}

func (r *GormChatRepository) DeleteRooms(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	l := log.Ctx(ctx)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_room_id IN ?", ids).Delete(&domain.ChatRoomMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_room_id IN ?", ids).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&domain.ChatRoom{}).Error
	})
	if err != nil {
		l.Error().Err(err).Uints("room_ids", ids).Msg("failed to delete rooms")
		return err
	}
	return nil
}

func (r *GormChatRepository) RoomByID(ctx context.Context, id uint) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	result := r.db.WithContext(ctx).First(&room, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Uint(log.FieldRoomID, id).Msg("failed to get room by id")
		return nil, result.Error
	}
	return &room, nil
}

func (r *GormChatRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	result := r.db.WithContext(ctx).Create(msg)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Uint(log.FieldRoomID, msg.ChatRoomID).Msg("failed to persist message")
		return result.Error
	}
	return nil
}

func (r *GormChatRepository) MessagesByRoom(ctx context.Context, roomID uint) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint(log.FieldRoomID, roomID).Msg("failed to list messages")
		return nil, err
	}
	return messages, nil
}

func (r *GormChatRepository) SetMemberSocket(ctx context.Context, userID int64, socketID string) error {
	return r.db.WithContext(ctx).Model(&domain.ChatRoomMembership{}).
		Where("user_id = ?", userID).
		Update("connected_to_socket", socketID).Error
}

func (r *GormChatRepository) ClearMemberSocket(ctx context.Context, socketID string) error {
	return r.db.WithContext(ctx).Model(&domain.ChatRoomMembership{}).
		Where("connected_to_socket = ?", socketID).
		Update("connected_to_socket", "").Error
}

func (r *GormChatRepository) DeleteUserData(ctx context.Context, userID int64) error {
	l := log.Ctx(ctx)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("from_user_id = ? OR to_user_id = ?", userID, userID).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&domain.ChatRoomMembership{}).Error
	})
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to cascade-delete user chat data")
		return err
	}
	return nil
}
