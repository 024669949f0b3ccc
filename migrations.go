// Package xssdawn embeds the SQL migrations applied by the migrate command.
package xssdawn

import "embed"

// Migrations holds the goose migrations of the run store.
//
//go:embed migrations/*.sql
var Migrations embed.FS
