package tenant

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/huiqicai/hci-social-backend/internal/domain"
	"github.com/huiqicai/hci-social-backend/pkg/database"
	"github.com/huiqicai/hci-social-backend/pkg/log"
)

var ErrUnknownTenant = errors.New("unknown tenant")

// Registry hands out one database client per tenant, constructed lazily on
// first use and memoized for the process lifetime. Concurrent first-time
// lookups for the same tenant are collapsed into a single construction.
type Registry struct {
	tenants Tenants
	opts    database.Options

	mu      sync.RWMutex
	clients map[string]*gorm.DB
	sf      singleflight.Group
}

// NewRegistry creates a registry over the loaded tenants mapping.
func NewRegistry(tenants Tenants, opts database.Options) *Registry {
	return &Registry{
		tenants: tenants,
		opts:    opts,
		clients: make(map[string]*gorm.DB),
	}
}

// Has reports whether tenantID is configured.
func (r *Registry) Has(tenantID string) bool {
	return r.tenants.Has(tenantID)
}

// Client returns the memoized database client for a tenant, opening it on
// first use. Returns ErrUnknownTenant for identifiers outside the mapping.
func (r *Registry) Client(tenantID string) (*gorm.DB, error) {
	r.mu.RLock()
	db, ok := r.clients[tenantID]
	r.mu.RUnlock()
	if ok {
		return db, nil
	}

	dsn, ok := r.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTenant, tenantID)
	}

	v, err, _ := r.sf.Do(tenantID, func() (interface{}, error) {
		// Re-check after acquiring the flight: a previous caller may have
		// finished construction between our miss and now.
		r.mu.RLock()
		db, ok := r.clients[tenantID]
		r.mu.RUnlock()
		if ok {
			return db, nil
		}

		opened, err := database.Open(dsn, r.opts)
		if err != nil {
			return nil, fmt.Errorf("open tenant %q database: %w", tenantID, err)
		}

		if err := database.AutoMigrate(opened,
			&domain.ChatRoom{},
			&domain.ChatRoomMembership{},
			&domain.Message{},
		); err != nil {
			return nil, fmt.Errorf("migrate tenant %q database: %w", tenantID, err)
		}

		r.mu.Lock()
		r.clients[tenantID] = opened
		r.mu.Unlock()

		l := log.L()
		l.Info().Str(log.FieldTenantID, tenantID).Msg("tenant database client constructed")
		return opened, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*gorm.DB), nil
}

// Close closes every constructed tenant client.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for tenantID, db := range r.clients {
		sqlDB, err := db.DB()
		if err != nil {
			continue
		}
		if err := sqlDB.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close tenant %q database: %w", tenantID, err)
		}
	}
	r.clients = make(map[string]*gorm.DB)
	return firstErr
}
