package service

import (
	"context"
	"fmt"

	"github.com/huiqicai/hci-social-backend/internal/audit"
	"github.com/huiqicai/hci-social-backend/internal/repository"
	"github.com/huiqicai/hci-social-backend/pkg/log"
)

type roomResolver struct {
	gateway *repository.Gateway
}

// NewRoomResolver creates the find-or-create engine over the persistence
// gateway.
func NewRoomResolver(gateway *repository.Gateway) RoomResolver {
	return &roomResolver{gateway: gateway}
}

// Resolve returns the canonical room id for an unordered user pair,
// creating the room if the pair has never chatted.
//
// The find-then-create sequence is not atomic, so two concurrent calls for
// the same pair can both create a room. The re-query after creation picks
// the lowest room id as canonical and deletes the rest; every concurrent
// caller converges on the same survivor.
func (r *roomResolver) Resolve(ctx context.Context, tenantID string, fromUserID, toUserID int64) (uint, error) {
	if fromUserID < 1 || toUserID < 1 {
		return 0, fmt.Errorf("%w: user ids must be positive integers", ErrInvalidParticipants)
	}
	if fromUserID == toUserID {
		return 0, fmt.Errorf("%w: a user cannot open a chat with themselves", ErrInvalidParticipants)
	}

	repo, err := r.gateway.For(tenantID)
	if err != nil {
		return 0, err
	}

	rooms, err := repo.RoomsByMembers(ctx, fromUserID, toUserID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRoomResolutionFailed, err)
	}
	if len(rooms) > 0 {
		return rooms[0].ID, nil
	}

	if _, err := repo.CreateRoomWithMembers(ctx, fromUserID, toUserID); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRoomCreationFailed, err)
	}

	// Re-query: a concurrent caller may have created its own room for the
	// pair in the window above.
	rooms, err = repo.RoomsByMembers(ctx, fromUserID, toUserID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRoomResolutionFailed, err)
	}
	if len(rooms) == 0 {
		return 0, fmt.Errorf("%w: no room found for pair after creation", ErrRoomResolutionFailed)
	}

	canonical := rooms[0]
	if len(rooms) > 1 {
		duplicates := make([]uint, 0, len(rooms)-1)
		for _, room := range rooms[1:] {
			duplicates = append(duplicates, room.ID)
		}
		if err := repo.DeleteRooms(ctx, duplicates); err != nil {
			return 0, fmt.Errorf("%w: reconciling duplicate rooms: %v", ErrRoomResolutionFailed, err)
		}

		l := log.Ctx(ctx)
		l.Warn().
			Str(log.FieldTenantID, tenantID).
			Uint(log.FieldRoomID, canonical.ID).
			Uints("deleted_room_ids", duplicates).
			Msg("collapsed duplicate rooms for participant pair")
		audit.LogWithDetail(ctx, audit.ActionReconcileRooms, tenantID, fromUserID,
			fmt.Sprintf("kept room %d, deleted %d duplicate(s)", canonical.ID, len(duplicates)),
			"reconciled duplicate chat rooms")
	}

	return canonical.ID, nil
}
