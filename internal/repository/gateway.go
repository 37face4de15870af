package repository

import (
	"sync"

	"github.com/huiqicai/hci-social-backend/internal/tenant"
)

// Gateway hands out one ChatRepository per tenant, backed by the tenant
// registry's memoized database clients. This is the only way the chat
// subsystem reaches storage.
type Gateway struct {
	tenants *tenant.Registry

	mu    sync.Mutex
	repos map[string]ChatRepository
}

// NewGateway creates a gateway over the tenant registry.
func NewGateway(tenants *tenant.Registry) *Gateway {
	return &Gateway{
		tenants: tenants,
		repos:   make(map[string]ChatRepository),
	}
}

// For returns the repository scoped to tenantID, constructing it (and the
// underlying client) on first use. Unknown tenants yield
// tenant.ErrUnknownTenant.
func (g *Gateway) For(tenantID string) (ChatRepository, error) {
	g.mu.Lock()
	repo, ok := g.repos[tenantID]
	g.mu.Unlock()
	if ok {
		return repo, nil
	}

	db, err := g.tenants.Client(tenantID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.repos[tenantID]; ok {
		return existing, nil
	}
	repo = NewGormChatRepository(db)
	g.repos[tenantID] = repo
	return repo, nil
}
