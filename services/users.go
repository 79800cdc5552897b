package services

import (
	"context"
	"fmt"
	"time"

	"fleetdesk/backend/models"
)

// GetUser retrieves a user by id across organizations. Auth uses it to
// resolve the tenant of a verified token.
func GetUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "get user"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	var u models.User
	err = conn.GetContext(ctx, &u, conn.Rebind(`
		SELECT id, organization_id, email, display_name, role, created_at FROM users WHERE id = ?
	`), userID)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
		}
		return nil, persistenceError(op, err)
	}
	if u.Role == "" {
		u.Role = models.RoleViewer
	}
	return &u, nil
}

// GetUserRole gets the role of a user in the organization. Users without a role are viewers.
func GetUserRole(ctx context.Context, orgID, userID string) (string, error) {
	const op = "get user role"
	conn, err := db(op)
	if err != nil {
		return "", err
	}

	var role string
	err = conn.GetContext(ctx, &role, conn.Rebind(`
		SELECT role FROM users WHERE id = ? AND organization_id = ?
	`), userID, orgID)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
		}
		return "", persistenceError(op, err)
	}
	if role == "" {
		return models.RoleViewer, nil
	}
	return role, nil
}

// IsAdmin checks if a user is an admin of the organization
func IsAdmin(ctx context.Context, orgID, userID string) (bool, error) {
	role, err := GetUserRole(ctx, orgID, userID)
	if err != nil {
		return false, err
	}
	return models.IsRoleAtLeast(role, models.RoleAdmin), nil
}

// EnsureOrganization creates the organization if it does not exist yet.
func EnsureOrganization(ctx context.Context, orgID, name string) error {
	const op = "ensure organization"
	conn, err := db(op)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, conn.Rebind(`
		INSERT INTO organizations (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO NOTHING
	`), orgID, name)
	if err != nil {
		return persistenceError(op, err)
	}
	return nil
}

// UpsertUser records a user seen through the identity provider. Profile fields
// are refreshed; an existing role is never overwritten.
func UpsertUser(ctx context.Context, u models.User) error {
	const op = "upsert user"
	conn, err := db(op)
	if err != nil {
		return err
	}
	if u.Role == "" {
		u.Role = models.RoleViewer
	}
	_, err = conn.ExecContext(ctx, conn.Rebind(`
		INSERT INTO users (id, organization_id, email, display_name, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, display_name = excluded.display_name
	`), u.ID, u.OrganizationID, u.Email, u.DisplayName, u.Role, time.Now().UTC())
	if err != nil {
		return persistenceError(op, err)
	}
	return nil
}

// UserDirectory resolves authenticated callers from the users table.
type UserDirectory struct{}

func (UserDirectory) LookupUser(ctx context.Context, userID string) (*models.User, error) {
	return GetUser(ctx, userID)
}
