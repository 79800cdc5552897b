package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AddJobLocations adds the captured site pin columns to jobs.
func AddJobLocations(tx *sqlx.Tx, _ Options) error {
	err := execAll(tx,
		`ALTER TABLE jobs ADD COLUMN latitude DOUBLE PRECISION`,
		`ALTER TABLE jobs ADD COLUMN longitude DOUBLE PRECISION`,
		`ALTER TABLE jobs ADD COLUMN location_source TEXT`,
	)
	if err != nil {
		return fmt.Errorf("failed to add location columns: %w", err)
	}
	return nil
}
