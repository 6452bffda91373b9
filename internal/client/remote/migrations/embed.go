// Package migrations embeds the goose migrations for a development backend
// schema. Hosted deployments manage their own schema and row-level security.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
