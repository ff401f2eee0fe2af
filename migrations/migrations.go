// Package migrations embeds the SQL schema. 001 runs once per database,
// 002 once per business schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

const (
	Public = "001_public.sql"
	Tenant = "002_tenant.sql"
)
