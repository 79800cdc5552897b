package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AddIntegrationConfig creates the per-organization integration settings table.
// map_token is stored encrypted.
func AddIntegrationConfig(tx *sqlx.Tx, _ Options) error {
	err := execAll(tx,
		`CREATE TABLE IF NOT EXISTS integration_config (
			organization_id TEXT PRIMARY KEY REFERENCES organizations(id),
			map_token TEXT NOT NULL DEFAULT '',
			map_style TEXT NOT NULL DEFAULT '',
			report_title TEXT NOT NULL DEFAULT '',
			updated_by TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP
		)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create integration_config table: %w", err)
	}
	return nil
}
