package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/palisadehq/palisade/internal/services/iam"
)

// HeaderIDToken and HeaderAccessToken carry OIDC credential material on
// the federated login endpoint. The tokens also travel in the JSON body;
// the headers exist for clients that cannot shape the body (CLI plugins,
// reverse proxies injecting IdP output).
const (
	HeaderIDToken     = "X-Id-Token"
	HeaderAccessToken = "X-Access-Token"
)

// LoginRequest carries username/password credentials for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// OIDCLoginRequest carries IdP-issued tokens for POST /auth/login/oidc.
// Either token may be absent; both absent is a bad request.
type OIDCLoginRequest struct {
	IDToken     string `json:"id_token,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// ChangePasswordRequest carries a managed-account password rotation.
type ChangePasswordRequest struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PrincipalResponse is the identity view returned by login and whoami.
type PrincipalResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Provider    string   `json:"provider"`
	Type        string   `json:"type"`
	Teams       []string `json:"teams"`
	Permissions []string `json:"permissions"`
}

// LoginResponse is the body returned by both login endpoints.
type LoginResponse struct {
	Principal PrincipalResponse `json:"principal"`
	Token     string            `json:"token"`
	ExpiresAt int64             `json:"expires_at"`
}

func principalResponse(p *iam.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		Provider:    string(p.Provider),
		Type:        string(p.Type),
		Teams:       p.Teams,
		Permissions: p.Permissions,
	}
}

func loginResponse(result *iam.LoginResult) LoginResponse {
	return LoginResponse{
		Principal: principalResponse(result.Principal),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.Unix(),
	}
}

// HandleLogin authenticates a username/password pair and returns a bearer
// token. Managed accounts first, directory fallback when configured.
func HandleLogin(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		if req.Username == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "username and password are required", "")
			return
		}

		result, err := svc.LoginWithPassword(r.Context(), req.Username, req.Password)
		if err != nil {
			respondAuthError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, loginResponse(result))
	}
}

// HandleOIDCLogin authenticates IdP-issued tokens and returns a bearer
// token. Tokens come from the JSON body or, when the body carries none,
// from the X-Id-Token / X-Access-Token headers.
func HandleOIDCLogin(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OIDCLoginRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "invalid request body", "")
				return
			}
		}
		creds := iam.OIDCCredentials{IDToken: req.IDToken, AccessToken: req.AccessToken}
		if !creds.Present() {
			creds = iam.OIDCCredentials{
				IDToken:     r.Header.Get(HeaderIDToken),
				AccessToken: r.Header.Get(HeaderAccessToken),
			}
		}
		if !creds.Present() {
			respondError(w, http.StatusBadRequest, "an id_token or access_token is required", "")
			return
		}

		result, err := svc.LoginWithOIDC(r.Context(), creds)
		if err != nil {
			respondAuthError(w, err)
			return
		}
		if result == nil {
			// Disabled or the provider's discovery document is unreachable.
			respondError(w, http.StatusServiceUnavailable, "oidc login is not available", "")
			return
		}
		respondJSON(w, http.StatusOK, loginResponse(result))
	}
}

// HandleChangePassword rotates a managed account's password. The current
// password authenticates the call, so it needs no prior login; a flagged
// account uses exactly this endpoint to clear its forced change.
func HandleChangePassword(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChangePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		if req.Username == "" || req.CurrentPassword == "" || req.NewPassword == "" {
			respondError(w, http.StatusBadRequest, "username, current_password and new_password are required", "")
			return
		}

		if err := svc.ChangePassword(r.Context(), req.Username, req.CurrentPassword, req.NewPassword); err != nil {
			respondAuthError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleWhoAmI returns the authenticated principal. Mounted behind the
// RequireAuthenticated guard, so the context lookup cannot miss.
func HandleWhoAmI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := iam.PrincipalFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "not authenticated", "")
			return
		}
		respondJSON(w, http.StatusOK, principalResponse(principal))
	}
}

// HealthResponse reports liveness and which login paths this deployment
// accepts, so clients pick a flow without probing.
type HealthResponse struct {
	Status       string           `json:"status"`
	Time         int64            `json:"time"`
	Capabilities iam.Capabilities `json:"capabilities"`
}

// HandleHealth is the liveness and capability discovery endpoint.
func HandleHealth(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{
			Status:       "ok",
			Time:         time.Now().Unix(),
			Capabilities: svc.Capabilities(),
		})
	}
}
