package tenant

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Tenants maps a tenant identifier to its database connection string.
// Loaded once at process start and immutable afterwards.
type Tenants map[string]string

var ErrTenantsNotFound = errors.New("tenants configuration not found")

// tenantsFileNames are tried in order; the example file is a fallback so a
// fresh checkout can boot without local configuration.
var tenantsFileNames = []string{"db-tenants.yaml", "db-tenants.example.yaml"}

// LoadTenants reads the tenant -> connection string mapping from dir.
// The mapping must be a non-empty flat string-to-string document.
func LoadTenants(dir string) (Tenants, error) {
	for _, name := range tenantsFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read tenants configuration %s: %w", path, err)
		}
		return parseTenants(v.AllSettings())
	}
	return nil, ErrTenantsNotFound
}

func parseTenants(raw map[string]interface{}) (Tenants, error) {
	if len(raw) == 0 {
		return nil, errors.New("tenants configuration is empty")
	}

	tenants := make(Tenants, len(raw))
	for id, value := range raw {
		dsn, ok := value.(string)
		if !ok || dsn == "" {
			return nil, fmt.Errorf("tenants configuration is invalid: tenant %q must map to a connection string", id)
		}
		tenants[id] = dsn
	}
	return tenants, nil
}

// Has reports whether a tenant is present in the mapping.
func (t Tenants) Has(tenantID string) bool {
	_, ok := t[tenantID]
	return ok
}
