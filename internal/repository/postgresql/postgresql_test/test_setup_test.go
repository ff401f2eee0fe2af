package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/utils"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds a connection and a freshly provisioned tenant.
type TestDatabaseSetup struct {
	DB         *database.DB
	Tenants    *database.TenantResolver
	BusinessID string
	Schema     string
}

// NewTestDatabase connects to TEST_DATABASE_URL and provisions a throwaway
// tenant schema. The test is skipped when no database is configured.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 10, MinConns: 1})
	require.NoError(t, err)

	id := utils.NewID()
	suffix := id[len(id)-12:]
	setup := &TestDatabaseSetup{
		DB:         db,
		Tenants:    database.NewTenantResolver(db.Pool),
		BusinessID: "biz-" + suffix,
		Schema:     "test_" + suffix,
	}
	require.NoError(t, database.ProvisionTenant(ctx, db, setup.BusinessID, "Test", setup.Schema))

	t.Cleanup(setup.Close)
	return setup
}

// Insert runs an INSERT into a tenant table; %s in sql is the table name.
func (s *TestDatabaseSetup) Insert(t *testing.T, table, sql string, args ...interface{}) {
	t.Helper()
	_, err := s.DB.Exec(context.Background(), fmt.Sprintf(sql, database.QualifiedTable(s.Schema, table)), args...)
	require.NoError(t, err)
}

// Close drops the tenant schema and closes the pool.
func (s *TestDatabaseSetup) Close() {
	ctx := context.Background()
	_, _ = s.DB.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %q CASCADE", s.Schema))
	_, _ = s.DB.Exec(ctx, "DELETE FROM public.businesses WHERE id = $1", s.BusinessID)
	s.DB.Close()
}
