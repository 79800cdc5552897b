package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"fleetdesk/backend/dispatch"
	"fleetdesk/backend/logging"
	"fleetdesk/backend/middleware"
	"fleetdesk/backend/models"
)

const retryMessage = "Service temporarily unavailable, please try again"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so field errors match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default().WithError(err).Warn("Failed to encode response")
	}
}

// classify maps an error to its status code and the message the client sees.
// Technical causes are logged here and never sent.
func classify(r *http.Request, err error) (int, errorResponse) {
	log := logging.FromContext(r.Context())

	var (
		validation *models.ValidationError
		stale      *models.StaleReferenceError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorResponse{Error: validation.Message, Field: validation.Field}
	case errors.As(err, &stale):
		return http.StatusConflict, errorResponse{Error: stale.Error()}
	case errors.Is(err, dispatch.ErrMoveInFlight):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, dispatch.ErrBoardClosed):
		return http.StatusGone, errorResponse{Error: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "Not found"}
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "Forbidden: Insufficient permissions"}
	case models.IsPersistence(err):
		log.WithError(err).Error("Datastore operation failed")
		return http.StatusServiceUnavailable, errorResponse{Error: retryMessage}
	default:
		log.WithError(err).Error("Unhandled error")
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(r, err)
	writeJSON(w, status, body)
}

// currentIdentity writes a 401 and returns false when the request is unauthenticated.
func currentIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: No user found", http.StatusUnauthorized)
	}
	return identity, ok
}

type normalizer interface {
	Normalize()
}

// decodeRequest reads a JSON body into dst, trims it and runs the struct
// validation. An empty body decodes as the zero request.
func decodeRequest(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return models.NewValidationError("body", "invalid JSON body")
	}
	if n, ok := dst.(normalizer); ok {
		n.Normalize()
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return models.NewValidationError("", err.Error())
	}
	fe := fieldErrors[0]
	return models.NewValidationError(fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a date formatted as %s", fe.Param())
	case "latitude", "longitude":
		return fmt.Sprintf("must be a valid %s", fe.Tag())
	default:
		return "is invalid"
	}
}
