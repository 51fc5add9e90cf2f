package server

import (
	"encoding/json"
	"net/http"

	"github.com/palisadehq/palisade/internal/auth"
)

// errorResponse is the JSON body for every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Cause string `json:"cause,omitempty"`
}

// respondAuthError maps an authentication failure onto the transport.
// Every cause collapses to 401 except FORCE_PASSWORD_CHANGE, which the
// client needs to see to redirect into a password-change flow, and OTHER,
// which means this deployment failed, not the credential.
func respondAuthError(w http.ResponseWriter, err error) {
	cause := auth.CauseOf(err)
	switch cause {
	case auth.CauseForcePasswordChange:
		respondError(w, http.StatusForbidden, "password change required", string(cause))
	case auth.CauseOther:
		respondError(w, http.StatusInternalServerError, "authentication unavailable", string(cause))
	default:
		respondError(w, http.StatusUnauthorized, "not authenticated", string(cause))
	}
}

func respondError(w http.ResponseWriter, status int, message, cause string) {
	respondJSON(w, status, errorResponse{Error: message, Cause: cause})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
