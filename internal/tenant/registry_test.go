package tenant

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/huiqicai/hci-social-backend/pkg/database"
)

func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

func testOptions() database.Options {
	return database.Options{MaxIdleConns: 1, MaxOpenConns: 1}
}

func TestLoadTenants(t *testing.T) {
	dir := t.TempDir()
	content := "default: file:default?mode=memory&cache=shared\nacme: postgres://u:p@localhost/acme\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db-tenants.yaml"), []byte(content), 0o644))

	tenants, err := LoadTenants(dir)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	require.True(t, tenants.Has("default"))
	require.True(t, tenants.Has("acme"))
	require.False(t, tenants.Has("other"))
}

func TestLoadTenants_FallsBackToExampleFile(t *testing.T) {
	dir := t.TempDir()
	content := "default: file:default?mode=memory&cache=shared\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db-tenants.example.yaml"), []byte(content), 0o644))

	tenants, err := LoadTenants(dir)
	require.NoError(t, err)
	require.True(t, tenants.Has("default"))
}

func TestLoadTenants_Missing(t *testing.T) {
	_, err := LoadTenants(t.TempDir())
	require.ErrorIs(t, err, ErrTenantsNotFound)
}

func TestLoadTenants_RejectsNonFlatMapping(t *testing.T) {
	dir := t.TempDir()
	content := "default:\n  nested: value\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db-tenants.yaml"), []byte(content), 0o644))

	_, err := LoadTenants(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid")
}

func TestLoadTenants_RejectsEmptyMapping(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db-tenants.yaml"), []byte("{}\n"), 0o644))

	_, err := LoadTenants(dir)
	require.Error(t, err)
}

func TestRegistry_UnknownTenant(t *testing.T) {
	reg := NewRegistry(Tenants{"t1": memoryDSN()}, testOptions())
	t.Cleanup(func() { reg.Close() })

	_, err := reg.Client("nope")
	require.ErrorIs(t, err, ErrUnknownTenant)
}

func TestRegistry_MemoizesClientPerTenant(t *testing.T) {
	reg := NewRegistry(Tenants{"t1": memoryDSN()}, testOptions())
	t.Cleanup(func() { reg.Close() })

	first, err := reg.Client("t1")
	require.NoError(t, err)
	second, err := reg.Client("t1")
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestRegistry_IsolatesTenants(t *testing.T) {
	reg := NewRegistry(Tenants{"t1": memoryDSN(), "t2": memoryDSN()}, testOptions())
	t.Cleanup(func() { reg.Close() })

	db1, err := reg.Client("t1")
	require.NoError(t, err)
	db2, err := reg.Client("t2")
	require.NoError(t, err)
	require.NotSame(t, db1, db2)
}

func TestRegistry_ConcurrentConstructionYieldsSingleClient(t *testing.T) {
	reg := NewRegistry(Tenants{"t1": memoryDSN()}, testOptions())
	t.Cleanup(func() { reg.Close() })

	const callers = 16
	results := make([]interface{}, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := reg.Client("t1")
			require.NoError(t, err)
			results[i] = db
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		require.Same(t, results[0], results[i])
	}
}
