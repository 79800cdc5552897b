package middleware

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"fleetdesk/backend/configuration"
	"fleetdesk/backend/logging"
	"fleetdesk/backend/models"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier checks an ID token. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserLookup resolves a verified user id to its organization membership.
type UserLookup interface {
	LookupUser(ctx context.Context, userID string) (*models.User, error)
}

// InitializeFirebase builds the Firebase Auth client from the configured
// service account. It returns nil without error when no credentials are set,
// which puts the API in development auth mode.
func InitializeFirebase(ctx context.Context, opts configuration.FirebaseOptions) (*auth.Client, error) {
	log := logging.Default()
	if !opts.Configured() {
		log.Warn("No Firebase credentials configured, running with development auth")
		return nil, nil
	}

	creds := []byte(opts.CredentialsJSON)
	if len(creds) == 0 {
		decoded, err := base64.StdEncoding.DecodeString(opts.CredentialsBase64)
		if err != nil {
			return nil, err
		}
		creds = decoded
	}

	var config *firebase.Config
	if opts.ProjectID != "" {
		config = &firebase.Config{ProjectID: opts.ProjectID}
	}
	app, err := firebase.NewApp(ctx, config, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("Firebase Admin SDK initialized")
	return client, nil
}

// Authenticator places the caller's Identity in the request context.
type Authenticator struct {
	verifier TokenVerifier
	users    UserLookup
	devUser  models.Identity
}

// NewAuthenticator returns an authenticator. A nil verifier injects devUser into every request.
func NewAuthenticator(verifier TokenVerifier, users UserLookup, devUser configuration.DevUserOptions) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		users:    users,
		devUser: models.Identity{
			UserID:         devUser.ID,
			OrganizationID: devUser.OrganizationID,
			Role:           devUser.Role,
			DisplayName:    devUser.DisplayName,
			Email:          devUser.Email,
		},
	}
}

// Middleware verifies the bearer token and resolves the caller's organization and role.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS preflight carries no credentials.
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if a.verifier == nil {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), a.devUser)))
			return
		}

		ctx := r.Context()
		log := logging.FromContext(ctx)

		idToken := extractToken(r.Header.Get("Authorization"))
		if idToken == "" {
			http.Error(w, "Unauthorized: No token provided", http.StatusUnauthorized)
			return
		}
		token, err := a.verifier.VerifyIDToken(ctx, idToken)
		if err != nil {
			log.WithError(err).Warn("Error verifying token")
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := a.users.LookupUser(ctx, token.UID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			log.WithField("uid", token.UID).Warn("Verified user has no organization")
			http.Error(w, "Forbidden: Not a member of any organization", http.StatusForbidden)
			return
		case err != nil:
			log.WithError(err).Error("Failed to resolve user")
			http.Error(w, "Service temporarily unavailable, please try again", http.StatusServiceUnavailable)
			return
		}

		identity := models.Identity{
			UserID:         user.ID,
			OrganizationID: user.OrganizationID,
			Role:           user.Role,
			DisplayName:    user.DisplayName,
			Email:          user.Email,
		}
		if name, ok := token.Claims["name"].(string); ok && name != "" {
			identity.DisplayName = name
		}
		if email, ok := token.Claims["email"].(string); ok && email != "" {
			identity.Email = email
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
	})
}

// extractToken gets the token from the Authorization header
func extractToken(authHeader string) string {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithIdentity stores identity in ctx and tags the request logger with it.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	entry := logging.FromContext(ctx).WithFields(logrus.Fields{
		"user": identity.UserID,
		"org":  identity.OrganizationID,
	})
	ctx = logging.WithEntry(ctx, entry)
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity returns the authenticated caller, if any.
func GetIdentity(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok && identity.UserID != ""
}
