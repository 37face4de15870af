package service

import (
	"context"

	"github.com/huiqicai/hci-social-backend/internal/domain"
	"github.com/huiqicai/hci-social-backend/internal/repository"
)

type historyService struct {
	gateway *repository.Gateway
}

// NewHistoryService creates the chat-history read path.
func NewHistoryService(gateway *repository.Gateway) HistoryService {
	return &historyService{gateway: gateway}
}

// GetChatHistory returns all of a room's messages ordered by creation time
// ascending. Unknown rooms yield repository.ErrRoomNotFound.
func (s *historyService) GetChatHistory(ctx context.Context, tenantID string, roomID uint) ([]domain.Message, error) {
	repo, err := s.gateway.For(tenantID)
	if err != nil {
		return nil, err
	}

	if _, err := repo.RoomByID(ctx, roomID); err != nil {
		return nil, err
	}

	messages, err := repo.MessagesByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}
