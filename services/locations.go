package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fleetdesk/backend/geocode"
	"fleetdesk/backend/logging"
	"fleetdesk/backend/models"
)

// Geocoder resolves a street address to coordinates.
type Geocoder interface {
	Forward(ctx context.Context, token, address string) (geocode.Place, error)
}

// SetJobLocation stores a dropped pin for the job.
func SetJobLocation(ctx context.Context, orgID, jobID string, coords models.Coordinates, source models.LocationSource) (*models.JobLocation, error) {
	if err := coords.Validate(); err != nil {
		return nil, err
	}

	const op = "set job location"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	res, err := conn.ExecContext(ctx, conn.Rebind(`
		UPDATE jobs SET latitude = ?, longitude = ?, location_source = ?, updated_at = ?
		WHERE id = ? AND organization_id = ?
	`), coords.Latitude, coords.Longitude, string(source), time.Now().UTC(), jobID, orgID)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{"job": jobID, "source": source}).Info("Job location updated")
	return &models.JobLocation{JobID: jobID, Coordinates: coords, Source: source}, nil
}

// GeocodeJobLocation resolves address, or the job's own address when empty,
// and stores the result as the job's location. The organization's map token
// is preferred over the server default.
func GeocodeJobLocation(ctx context.Context, g Geocoder, orgID, jobID, address string) (*models.JobLocation, error) {
	job, err := GetJob(ctx, orgID, jobID)
	if err != nil {
		return nil, err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		address = job.Address
	}
	if address == "" {
		return nil, models.NewValidationError("address", "address is required")
	}

	settings, err := GetIntegrationSettings(ctx, orgID)
	if err != nil {
		return nil, err
	}

	place, err := g.Forward(ctx, settings.MapToken, address)
	switch {
	case errors.Is(err, geocode.ErrNoMatch):
		return nil, models.NewValidationError("address", fmt.Sprintf("no location found for %q", address))
	case err != nil:
		return nil, models.NewPersistenceError("geocode address", err)
	}

	loc, err := SetJobLocation(ctx, orgID, jobID, place.Coordinates, models.LocationGeocoded)
	if err != nil {
		return nil, err
	}
	loc.PlaceName = place.Name
	return loc, nil
}
