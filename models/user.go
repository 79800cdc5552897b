package models

import "time"

// User is a member of an organization as recorded in the datastore.
type User struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organizationId" db:"organization_id"`
	Email          string    `json:"email" db:"email"`
	DisplayName    string    `json:"displayName" db:"display_name"`
	Role           string    `json:"role" db:"role"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role"`
	DisplayName    string `json:"displayName"`
	Email          string `json:"email"`
}

// AuditName is the name stamped on generated documents.
func (i Identity) AuditName() string {
	switch {
	case i.DisplayName != "" && i.Email != "":
		return i.DisplayName + " <" + i.Email + ">"
	case i.DisplayName != "":
		return i.DisplayName
	case i.Email != "":
		return i.Email
	default:
		return i.UserID
	}
}
