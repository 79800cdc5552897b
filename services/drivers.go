package services

import (
	"context"
	"fmt"

	"fleetdesk/backend/models"
)

// ListDrivers returns the organization's active drivers ordered by name.
func ListDrivers(ctx context.Context, orgID string) ([]models.Driver, error) {
	const op = "list drivers"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	drivers := []models.Driver{}
	err = conn.SelectContext(ctx, &drivers, conn.Rebind(`
		SELECT id, organization_id, name, phone, active
		FROM drivers
		WHERE organization_id = ? AND active = TRUE
		ORDER BY name
	`), orgID)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	return drivers, nil
}

func GetDriver(ctx context.Context, orgID, driverID string) (*models.Driver, error) {
	const op = "get driver"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	var d models.Driver
	err = conn.GetContext(ctx, &d, conn.Rebind(`
		SELECT id, organization_id, name, phone, active FROM drivers WHERE id = ? AND organization_id = ?
	`), driverID, orgID)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("driver %s: %w", driverID, models.ErrNotFound)
		}
		return nil, persistenceError(op, err)
	}
	return &d, nil
}
