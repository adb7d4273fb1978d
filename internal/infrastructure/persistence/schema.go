package persistence

import (
	"fmt"
	"regexp"

	"github.com/cashflow/backend/internal/infrastructure/config"
	"github.com/cashflow/backend/internal/infrastructure/persistence/models"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// qualified prefixes table with the configured schema.
// The schema is interpolated into SQL, so it must be a plain identifier.
func (d *Database) qualified(table string) (string, error) {
	if d.Schema == "" {
		return table, nil
	}
	if !identifierPattern.MatchString(d.Schema) {
		return "", fmt.Errorf("invalid schema name %q", d.Schema)
	}
	return d.Schema + "." + table, nil
}

// AutoMigrate creates the warehouse tables on sqlite.
// Postgres deployments are migrated with cmd/migrate instead.
func (d *Database) AutoMigrate() error {
	if d.Driver != config.DriverSQLite {
		return fmt.Errorf("auto migrate is only supported on sqlite, use the migrate command for %s", d.Driver)
	}
	return d.DB.AutoMigrate(models.All()...)
}
