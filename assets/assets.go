// Package assets embeds the files shipped with the binaries: SQL migrations, email templates and the seed dataset.
package assets

import "embed"

//go:embed migrations/*.sql templates/email/* fixtures/*.json
var FS embed.FS

const (
	MigrationsDir = "migrations"
	FixturesDir   = "fixtures"
)
