// Package pointsapi embeds the assets shipped with the binaries.
package pointsapi

import "embed"

//go:embed migrations/*.sql
var MigrationsFS embed.FS
