package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AddUploads creates the object storage metadata table.
func AddUploads(tx *sqlx.Tx, _ Options) error {
	err := execAll(tx,
		`CREATE TABLE IF NOT EXISTS uploads (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			kind TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			path TEXT NOT NULL UNIQUE,
			file_name TEXT NOT NULL,
			content_type TEXT NOT NULL,
			size BIGINT NOT NULL,
			uploaded_by TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_owner ON uploads (organization_id, kind, owner_id)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create uploads table: %w", err)
	}
	return nil
}
