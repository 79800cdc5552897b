package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"fleetdesk/backend/logging"
	"fleetdesk/backend/models"
	"fleetdesk/backend/security"
)

// GetIntegrationSettings loads the organization's settings with the map token
// decrypted. An organization without a row gets empty settings.
func GetIntegrationSettings(ctx context.Context, orgID string) (*models.IntegrationSettings, error) {
	const op = "get integration settings"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	settings := models.IntegrationSettings{OrganizationID: orgID}
	err = conn.GetContext(ctx, &settings, conn.Rebind(`
		SELECT organization_id, map_token, map_style, report_title, updated_by, updated_at
		FROM integration_config
		WHERE organization_id = ?
	`), orgID)
	if isNoRows(err) {
		// the scan may have allocated pointer fields before finding no row
		settings = models.IntegrationSettings{OrganizationID: orgID}
	} else if err != nil {
		return nil, persistenceError(op, err)
	}

	if settings.MapToken != "" {
		token, err := security.Decrypt(settings.MapToken)
		if err != nil {
			logging.FromContext(ctx).WithError(err).Error("Failed to decrypt map token")
			return nil, persistenceError("decrypt map token", err)
		}
		settings.MapToken = token
		settings.HasMapToken = true
		settings.MapTokenHint = security.Mask(token)
	}
	return &settings, nil
}

// UpdateIntegrationSettings applies the set fields of update. The map token is
// encrypted before it is written.
func UpdateIntegrationSettings(ctx context.Context, identity models.Identity, update models.IntegrationUpdate) (*models.IntegrationSettings, error) {
	current, err := GetIntegrationSettings(ctx, identity.OrganizationID)
	if err != nil {
		return nil, err
	}

	encrypted := ""
	if current.MapToken != "" {
		if encrypted, err = security.Encrypt(current.MapToken); err != nil {
			return nil, persistenceError("encrypt map token", err)
		}
	}
	if update.MapToken != nil {
		token := strings.TrimSpace(*update.MapToken)
		encrypted = ""
		if token != "" {
			if !security.Enabled() {
				return nil, models.NewValidationError("mapToken", "credential storage is not configured")
			}
			if encrypted, err = security.Encrypt(token); err != nil {
				return nil, persistenceError("encrypt map token", errors.Wrap(err, "map token"))
			}
		}
	}
	if update.MapStyle != nil {
		current.MapStyle = strings.TrimSpace(*update.MapStyle)
	}
	if update.ReportTitle != nil {
		current.ReportTitle = strings.TrimSpace(*update.ReportTitle)
	}

	const op = "update integration settings"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}
	_, err = conn.ExecContext(ctx, conn.Rebind(`
		INSERT INTO integration_config (organization_id, map_token, map_style, report_title, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (organization_id) DO UPDATE SET
			map_token = excluded.map_token,
			map_style = excluded.map_style,
			report_title = excluded.report_title,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`), identity.OrganizationID, encrypted, current.MapStyle, current.ReportTitle, identity.UserID, time.Now().UTC())
	if err != nil {
		return nil, persistenceError(op, err)
	}

	logging.FromContext(ctx).WithField("organization", identity.OrganizationID).Info("Integration settings updated")
	return GetIntegrationSettings(ctx, identity.OrganizationID)
}
