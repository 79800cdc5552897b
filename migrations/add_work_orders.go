package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AddWorkOrders creates the maintenance work order table read by the analytics view.
func AddWorkOrders(tx *sqlx.Tx, _ Options) error {
	err := execAll(tx,
		`CREATE TABLE IF NOT EXISTS work_orders (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			vehicle_id TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			labor_cost NUMERIC(12,2) NOT NULL DEFAULT 0,
			parts_cost NUMERIC(12,2) NOT NULL DEFAULT 0,
			dvir_defects INTEGER NOT NULL DEFAULT 0,
			opened_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_work_orders_org_opened ON work_orders (organization_id, opened_at)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create work_orders table: %w", err)
	}
	return nil
}
