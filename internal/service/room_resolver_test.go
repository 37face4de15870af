package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/huiqicai/hci-social-backend/internal/domain"
	"github.com/huiqicai/hci-social-backend/internal/repository"
	"github.com/huiqicai/hci-social-backend/internal/tenant"
	"github.com/huiqicai/hci-social-backend/pkg/database"
)

func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

func newTestGateway(t *testing.T, tenantIDs ...string) (*repository.Gateway, *tenant.Registry) {
	t.Helper()

	tenants := tenant.Tenants{}
	for _, id := range tenantIDs {
		tenants[id] = memoryDSN()
	}
	reg := tenant.NewRegistry(tenants, database.Options{MaxIdleConns: 1, MaxOpenConns: 1})
	t.Cleanup(func() { reg.Close() })

	return repository.NewGateway(reg), reg
}

func TestResolve_CreatesRoomOnFirstUse(t *testing.T) {
	gateway, _ := newTestGateway(t, "t1")
	resolver := NewRoomResolver(gateway)
	ctx := context.Background()

	roomID, err := resolver.Resolve(ctx, "t1", 1, 2)
	require.NoError(t, err)
	require.NotZero(t, roomID)

	repo, err := gateway.For("t1")
	require.NoError(t, err)
	rooms, err := repo.RoomsByMembers(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, roomID, rooms[0].ID)
}

func TestResolve_Idempotent(t *testing.T) {
	gateway, _ := newTestGateway(t, "t1")
	resolver := NewRoomResolver(gateway)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "t1", 1, 2)
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, "t1", 1, 2)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestResolve_Symmetric(t *testing.T) {
	gateway, _ := newTestGateway(t, "t1")
	resolver := NewRoomResolver(gateway)
	ctx := context.Background()

	forward, err := resolver.Resolve(ctx, "t1", 1, 2)
	require.NoError(t, err)
	reverse, err := resolver.Resolve(ctx, "t1", 2, 1)
	require.NoError(t, err)
	require.Equal(t, forward, reverse)
}

func TestResolve_RejectsInvalidParticipants(t *testing.T) {
	gateway, _ := newTestGateway(t, "t1")
	resolver := NewRoomResolver(gateway)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "t1", 7, 7)
	require.ErrorIs(t, err, ErrInvalidParticipants)

	_, err = resolver.Resolve(ctx, "t1", 0, 2)
	require.ErrorIs(t, err, ErrInvalidParticipants)

	_, err = resolver.Resolve(ctx, "t1", 1, -4)
	require.ErrorIs(t, err, ErrInvalidParticipants)
}

func TestResolve_UnknownTenant(t *testing.T) {
	gateway, _ := newTestGateway(t, "t1")
	resolver := NewRoomResolver(gateway)

	_, err := resolver.Resolve(context.Background(), "ghost", 1, 2)
	require.ErrorIs(t, err, tenant.ErrUnknownTenant)
}

func TestResolve_TenantIsolation(t *testing.T) {
	gateway, _ := newTestGateway(t, "t1", "t2")
	resolver := NewRoomResolver(gateway)
	ctx := context.Background()

	roomT1, err := resolver.Resolve(ctx, "t1", 1, 2)
	require.NoError(t, err)
	roomT2, err := resolver.Resolve(ctx, "t2", 1, 2)
	require.NoError(t, err)

	// Each tenant resolves the numerically identical pair to its own room;
	// neither tenant sees the other's storage.
	repo2, err := gateway.For("t2")
	require.NoError(t, err)
	rooms, err := repo2.RoomsByMembers(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, roomT2, rooms[0].ID)

	repo1, err := gateway.For("t1")
	require.NoError(t, err)
	rooms, err = repo1.RoomsByMembers(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, roomT1, rooms[0].ID)
}

func TestResolve_ReconcilesDuplicateRoomsToLowestID(t *testing.T) {
	gateway, _ := newTestGateway(t, "t1")
	resolver := NewRoomResolver(gateway)
	ctx := context.Background()

	repo, err := gateway.For("t1")
	require.NoError(t, err)

	// Fabricate the race outcome: an existing pair plus a duplicate room
	// created behind the resolver's back after its find step would run.
	lowest, err := repo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	roomID, err := resolver.Resolve(ctx, "t1", 1, 2)
	require.NoError(t, err)
	require.Equal(t, lowest, roomID)
}

func TestResolve_ConcurrentCallersConvergeOnOneRoom(t *testing.T) {
	gateway, reg := newTestGateway(t, "t1")
	resolver := NewRoomResolver(gateway)
	ctx := context.Background()

	const callers = 8
	results := make([]uint, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the callers use the reversed argument order.
			if i%2 == 0 {
				results[i], errs[i] = resolver.Resolve(ctx, "t1", 1, 2)
			} else {
				results[i], errs[i] = resolver.Resolve(ctx, "t1", 2, 1)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, results[0], results[i])
	}

	// Exactly one room with exactly two membership rows survives.
	repo, err := gateway.For("t1")
	require.NoError(t, err)
	rooms, err := repo.RoomsByMembers(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, rooms, 1)

	db, err := reg.Client("t1")
	require.NoError(t, err)
	var memberships []domain.ChatRoomMembership
	require.NoError(t, db.Where("chat_room_id = ?", rooms[0].ID).Find(&memberships).Error)
	require.Len(t, memberships, 2)
}
