package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AddFilterPresets creates the saved filter preset table. filter_config holds the JSON payload.
func AddFilterPresets(tx *sqlx.Tx, _ Options) error {
	err := execAll(tx,
		`CREATE TABLE IF NOT EXISTS filter_presets (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			user_id TEXT NOT NULL,
			scope TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			filter_config TEXT NOT NULL,
			usage_count INTEGER NOT NULL DEFAULT 0,
			last_used_at TIMESTAMP,
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(organization_id, user_id, scope, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_filter_presets_owner ON filter_presets (organization_id, scope, user_id)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create filter_presets table: %w", err)
	}
	return nil
}
