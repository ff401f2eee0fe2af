package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/cmlabs-hris/settlement-backend-go/migrations"
	"github.com/jackc/pgx/v5"
)

var ErrTenantNotFound = errors.New("tenant not found")

var schemaNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// TenantResolver maps a business to the Postgres schema holding its data.
// Lookups hit public.businesses once per business and are cached for the
// lifetime of the process.
type TenantResolver struct {
	q     Querier
	cache sync.Map
}

func NewTenantResolver(q Querier) *TenantResolver {
	return &TenantResolver{q: q}
}

func (r *TenantResolver) Schema(ctx context.Context, businessID string) (string, error) {
	if v, ok := r.cache.Load(businessID); ok {
		return v.(string), nil
	}

	var schema string
	err := r.q.QueryRow(ctx, `SELECT schema_name FROM public.businesses WHERE id = $1`, businessID).Scan(&schema)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrTenantNotFound, businessID)
		}
		return "", fmt.Errorf("resolve tenant schema: %w", err)
	}
	if !schemaNameRegex.MatchString(schema) {
		return "", fmt.Errorf("invalid schema name %q for business %s", schema, businessID)
	}

	actual, _ := r.cache.LoadOrStore(businessID, schema)
	return actual.(string), nil
}

// Table returns the quoted, schema-qualified name of table for a business.
func (r *TenantResolver) Table(ctx context.Context, businessID, table string) (string, error) {
	schema, err := r.Schema(ctx, businessID)
	if err != nil {
		return "", err
	}
	return QualifiedTable(schema, table), nil
}

// QualifiedTable quotes schema and table as a single identifier.
func QualifiedTable(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

// Forget drops a cached mapping, e.g. after a tenant is migrated.
func (r *TenantResolver) Forget(businessID string) {
	r.cache.Delete(businessID)
}

// ProvisionTenant creates the schema of a business, applies the tenant
// migration inside it and registers it in public.businesses.
func ProvisionTenant(ctx context.Context, db *DB, businessID, name, schema string) error {
	if !schemaNameRegex.MatchString(schema) {
		return fmt.Errorf("invalid schema name %q", schema)
	}
	public, err := migrations.FS.ReadFile(migrations.Public)
	if err != nil {
		return err
	}
	tenant, err := migrations.FS.ReadFile(migrations.Tenant)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin provisioning: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []string{
		string(public),
		"CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schema}.Sanitize(),
		"SET LOCAL search_path TO " + pgx.Identifier{schema}.Sanitize(),
		string(tenant),
	}
	for _, sql := range steps {
		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("provision tenant %s: %w", schema, err)
		}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO public.businesses (id, name, schema_name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, businessID, name, schema)
	if err != nil {
		return fmt.Errorf("register tenant %s: %w", businessID, err)
	}
	return tx.Commit(ctx)
}
