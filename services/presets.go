package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleetdesk/backend/logging"
	"fleetdesk/backend/metrics"
	"fleetdesk/backend/models"
)

// PresetInput is a request to save the current filters under a name.
type PresetInput struct {
	Scope       string
	Name        string
	Description string
	IsPublic    bool
	IsDefault   bool
	Filters     models.FilterState
}

const presetColumns = `id, organization_id, user_id, scope, name, description, filter_config,
	usage_count, last_used_at, is_public, is_default, created_at`

// SaveFilterPreset stores the active fields of in.Filters as a named preset
// owned by the caller. Name validation happens before any datastore call.
// Marking a preset as default clears the caller's previous default in the same scope.
func SaveFilterPreset(ctx context.Context, identity models.Identity, in PresetInput) (*models.FilterPreset, error) {
	preset, err := in.Filters.ToPreset(in.Name, in.Description)
	if err != nil {
		return nil, err
	}

	scope := strings.TrimSpace(in.Scope)
	if scope == "" {
		scope = models.ScopeJobs
	}
	preset.ID = uuid.NewString()
	preset.OrganizationID = identity.OrganizationID
	preset.UserID = identity.UserID
	preset.Scope = scope
	preset.IsPublic = in.IsPublic
	preset.IsDefault = in.IsDefault
	preset.CreatedAt = time.Now().UTC()

	const op = "save filter preset"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistenceError(op, err)
	}

	if preset.IsDefault {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE filter_presets
			SET is_default = FALSE
			WHERE organization_id = ? AND user_id = ? AND scope = ?
		`), preset.OrganizationID, preset.UserID, preset.Scope)
		if err != nil {
			rollback(tx)
			return nil, persistenceError(op, err)
		}
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO filter_presets (id, organization_id, user_id, scope, name, description, filter_config, is_public, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), preset.ID, preset.OrganizationID, preset.UserID, preset.Scope, preset.Name, preset.Description,
		preset.Filters, preset.IsPublic, preset.IsDefault, preset.CreatedAt)
	if err != nil {
		rollback(tx)
		if isUniqueViolation(err) {
			return nil, models.NewValidationError("name", fmt.Sprintf("a preset named %q already exists", preset.Name))
		}
		return nil, persistenceError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, persistenceError(op, err)
	}

	metrics.PresetSaved()
	logging.FromContext(ctx).WithFields(logrus.Fields{"preset": preset.ID, "scope": scope}).Info("Filter preset saved")
	return &preset, nil
}

// ListFilterPresets returns the caller's presets in scope plus the public
// presets of the organization. Defaults come first, then the most used.
func ListFilterPresets(ctx context.Context, identity models.Identity, scope string) ([]models.FilterPreset, error) {
	const op = "list filter presets"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}
	if scope == "" {
		scope = models.ScopeJobs
	}

	presets := []models.FilterPreset{}
	err = conn.SelectContext(ctx, &presets, conn.Rebind(`
		SELECT `+presetColumns+`
		FROM filter_presets
		WHERE organization_id = ? AND scope = ? AND (user_id = ? OR is_public = TRUE)
		ORDER BY is_default DESC, usage_count DESC, name
	`), identity.OrganizationID, scope, identity.UserID)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	return presets, nil
}

// GetFilterPreset retrieves a preset the caller owns or that is public.
func GetFilterPreset(ctx context.Context, identity models.Identity, id string) (*models.FilterPreset, error) {
	const op = "get filter preset"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	var preset models.FilterPreset
	err = conn.GetContext(ctx, &preset, conn.Rebind(`
		SELECT `+presetColumns+`
		FROM filter_presets
		WHERE id = ? AND organization_id = ?
	`), id, identity.OrganizationID)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("filter preset %s: %w", id, models.ErrNotFound)
		}
		return nil, persistenceError(op, err)
	}
	if preset.UserID != identity.UserID && !preset.IsPublic {
		return nil, fmt.Errorf("filter preset %s: %w", id, models.ErrNotFound)
	}
	return &preset, nil
}

// GetDefaultFilterPreset returns the caller's default preset for scope, or nil when none is set.
func GetDefaultFilterPreset(ctx context.Context, identity models.Identity, scope string) (*models.FilterPreset, error) {
	const op = "get default filter preset"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	var preset models.FilterPreset
	err = conn.GetContext(ctx, &preset, conn.Rebind(`
		SELECT `+presetColumns+`
		FROM filter_presets
		WHERE organization_id = ? AND user_id = ? AND scope = ? AND is_default = TRUE
	`), identity.OrganizationID, identity.UserID, scope)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, persistenceError(op, err)
	}
	return &preset, nil
}

// ApplyFilterPreset computes the filter state that results from applying the
// preset to current: a partial merge, or a full replace when replace is set.
// The usage counter moves only after the new state validated and the write
// succeeded; on any error current is returned unchanged.
func ApplyFilterPreset(ctx context.Context, identity models.Identity, id string, current models.FilterState, replace bool) (models.FilterState, *models.FilterPreset, error) {
	preset, err := GetFilterPreset(ctx, identity, id)
	if err != nil {
		return current, nil, err
	}

	var next models.FilterState
	if replace {
		next, err = current.ReplaceWithPreset(*preset)
	} else {
		next, err = current.ApplyPreset(*preset)
	}
	if err != nil {
		return current, nil, err
	}

	const op = "record preset usage"
	conn, err := db(op)
	if err != nil {
		return current, nil, err
	}
	usedAt := time.Now().UTC()
	_, err = conn.ExecContext(ctx, conn.Rebind(`
		UPDATE filter_presets
		SET usage_count = usage_count + 1, last_used_at = ?
		WHERE id = ? AND organization_id = ?
	`), usedAt, preset.ID, identity.OrganizationID)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("preset", preset.ID).Error("Failed to record preset usage")
		return current, nil, persistenceError(op, err)
	}

	preset.UsageCount++
	preset.LastUsedAt = &usedAt
	metrics.PresetApplied()
	return next, preset, nil
}

// DeleteFilterPreset removes a preset. Only its owner or an admin may delete it.
func DeleteFilterPreset(ctx context.Context, identity models.Identity, id string) error {
	const op = "delete filter preset"
	conn, err := db(op)
	if err != nil {
		return err
	}

	var owner string
	err = conn.GetContext(ctx, &owner, conn.Rebind(`
		SELECT user_id FROM filter_presets WHERE id = ? AND organization_id = ?
	`), id, identity.OrganizationID)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("filter preset %s: %w", id, models.ErrNotFound)
		}
		return persistenceError(op, err)
	}
	if owner != identity.UserID && !models.IsRoleAtLeast(identity.Role, models.RoleAdmin) {
		return fmt.Errorf("filter preset %s: %w", id, models.ErrForbidden)
	}

	if _, err := conn.ExecContext(ctx, conn.Rebind(`
		DELETE FROM filter_presets WHERE id = ? AND organization_id = ?
	`), id, identity.OrganizationID); err != nil {
		return persistenceError(op, err)
	}
	return nil
}
