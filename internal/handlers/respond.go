package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bensuskins/command-center/internal/assistant"
	"github.com/bensuskins/command-center/internal/calendar"
	"github.com/bensuskins/command-center/internal/lists"
	"github.com/bensuskins/command-center/internal/preferences"
	"github.com/bensuskins/command-center/internal/quiz"
	"github.com/bensuskins/command-center/internal/services"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func readJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return errInvalidBody
	}
	return nil
}

// writeError maps domain errors onto statuses. Internal failures are logged
// and their details kept out of the response.
func writeError(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error(action, "error", err)
		message = "failed " + action
	} else if status >= http.StatusBadGateway {
		slog.Warn(action, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func statusFor(err error) int {
	var requestFailed *assistant.RequestFailedError
	switch {
	case errors.Is(err, assistant.ErrNotConfigured),
		errors.Is(err, calendar.ErrNotConfigured),
		errors.Is(err, lists.ErrRemoteUnavailable),
		errors.Is(err, services.ErrOIDCNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &requestFailed),
		errors.Is(err, assistant.ErrInvalidResponseShape),
		errors.Is(err, lists.ErrRemoteWrite):
		return http.StatusBadGateway
	case errors.Is(err, assistant.ErrNoJSONFound),
		errors.Is(err, assistant.ErrMalformedJSON):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lists.ErrNotFound),
		errors.Is(err, services.ErrVehicleNotFound),
		errors.Is(err, quiz.ErrSessionNotFound),
		errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrAlreadyConnected):
		return http.StatusConflict
	case errors.Is(err, errInvalidBody),
		errors.Is(err, errTokenNameRequired),
		errors.Is(err, errInvalidTokenScope),
		errors.Is(err, services.ErrVehicleNameRequired),
		errors.Is(err, services.ErrInvalidVehicleType),
		errors.Is(err, services.ErrInvalidMaintenanceType),
		errors.Is(err, services.ErrRestaurantNameRequired),
		errors.Is(err, services.ErrRecipeNameRequired),
		errors.Is(err, services.ErrStateMismatch),
		errors.Is(err, preferences.ErrInvalidTheme),
		errors.Is(err, quiz.ErrUnknownCategory),
		errors.Is(err, quiz.ErrNoCategory),
		errors.Is(err, quiz.ErrNoOpenQuestion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
