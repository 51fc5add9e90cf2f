package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/palisadehq/palisade/internal/db/models"
)

// The admin surface is mounted behind RequirePermission(ACCESS_MANAGEMENT)
// in the router; handlers here only validate input and translate models.

// CreateUserRequest creates an account. Password is required for LOCAL
// accounts and must be absent for DIRECTORY/OIDC ones.
type CreateUserRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password,omitempty"`
	Provider string   `json:"provider"`
	Teams    []string `json:"teams,omitempty"`
}

// UserResponse is the admin view of an account. It never carries the
// password digest.
type UserResponse struct {
	ID                  string   `json:"id"`
	Username            string   `json:"username"`
	Provider            string   `json:"provider"`
	Email               string   `json:"email,omitempty"`
	Suspended           bool     `json:"suspended"`
	ForcePasswordChange bool     `json:"force_password_change"`
	Teams               []string `json:"teams"`
	CreatedAt           int64    `json:"created_at"`
}

func userResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:                  u.ID,
		Username:            u.Username,
		Provider:            string(u.Provider),
		Suspended:           u.Suspended,
		ForcePasswordChange: u.ForcePasswordChange,
		Teams:               make([]string, 0, len(u.Teams)),
		CreatedAt:           u.CreatedAt.Unix(),
	}
	if u.Email != nil {
		resp.Email = *u.Email
	}
	for _, team := range u.Teams {
		resp.Teams = append(resp.Teams, team.Name)
	}
	return resp
}

// HandleCreateUser handles POST /admin/users.
func HandleCreateUser(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		provider, ok := parseProvider(req.Provider)
		if !ok {
			respondError(w, http.StatusBadRequest, "provider must be LOCAL, DIRECTORY or OIDC", "")
			return
		}

		user, err := svc.CreateUser(r.Context(), req.Username, req.Password, provider, req.Teams)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		respondJSON(w, http.StatusCreated, userResponse(user))
	}
}

// HandleListUsers handles GET /admin/users.
func HandleListUsers(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListUsers(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "list users failed", "")
			return
		}
		resp := make([]UserResponse, 0, len(users))
		for i := range users {
			resp = append(resp, userResponse(&users[i]))
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

// SuspendUserRequest toggles an account's suspension flag.
type SuspendUserRequest struct {
	Provider  string `json:"provider"`
	Suspended bool   `json:"suspended"`
}

// HandleSuspendUser handles POST /admin/users/{username}/suspend.
func HandleSuspendUser(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SuspendUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		provider, ok := parseProvider(req.Provider)
		if !ok {
			respondError(w, http.StatusBadRequest, "provider must be LOCAL, DIRECTORY or OIDC", "")
			return
		}

		username := chi.URLParam(r, "username")
		if err := svc.SetUserSuspended(r.Context(), username, provider, req.Suspended); err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleForcePasswordChange handles POST /admin/users/{username}/force-password-change.
func HandleForcePasswordChange(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		if err := svc.RequirePasswordChange(r.Context(), username); err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CreateApiKeyRequest mints a key owned by the named teams.
type CreateApiKeyRequest struct {
	Comment string   `json:"comment,omitempty"`
	Teams   []string `json:"teams"`
}

// ApiKeyResponse is the admin view of a key. Key carries the plaintext
// only in the create/rotate responses and is never retrievable again.
type ApiKeyResponse struct {
	ID         string   `json:"id"`
	PublicID   string   `json:"public_id,omitempty"`
	Comment    string   `json:"comment,omitempty"`
	Legacy     bool     `json:"legacy"`
	Teams      []string `json:"teams"`
	CreatedAt  int64    `json:"created_at"`
	LastUsedAt *int64   `json:"last_used_at,omitempty"`
	Key        string   `json:"key,omitempty"`
}

func apiKeyResponse(k *models.ApiKey, rawKey string) ApiKeyResponse {
	resp := ApiKeyResponse{
		ID:        k.ID,
		Comment:   k.Comment,
		Legacy:    k.Legacy,
		Teams:     make([]string, 0, len(k.Teams)),
		CreatedAt: k.CreatedAt.Unix(),
		Key:       rawKey,
	}
	if k.PublicID != nil {
		resp.PublicID = *k.PublicID
	}
	if k.LastUsedAt != nil {
		ts := k.LastUsedAt.Unix()
		resp.LastUsedAt = &ts
	}
	for _, team := range k.Teams {
		resp.Teams = append(resp.Teams, team.Name)
	}
	return resp
}

// HandleCreateApiKey handles POST /admin/apikeys.
func HandleCreateApiKey(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateApiKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}

		key, rawKey, err := svc.CreateApiKey(r.Context(), req.Comment, req.Teams)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		respondJSON(w, http.StatusCreated, apiKeyResponse(key, rawKey))
	}
}

// HandleRotateApiKey handles POST /admin/apikeys/{publicID}/rotate. The
// previous key string stops authenticating the moment this returns.
func HandleRotateApiKey(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		publicID := chi.URLParam(r, "publicID")
		key, rawKey, err := svc.RotateApiKey(r.Context(), publicID)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		respondJSON(w, http.StatusOK, apiKeyResponse(key, rawKey))
	}
}

// HandleListApiKeys handles GET /admin/apikeys.
func HandleListApiKeys(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := svc.ListApiKeys(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "list api keys failed", "")
			return
		}
		resp := make([]ApiKeyResponse, 0, len(keys))
		for i := range keys {
			resp = append(resp, apiKeyResponse(&keys[i], ""))
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

// CreateTeamRequest creates a named team.
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// TeamResponse is the admin view of a team.
type TeamResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func teamResponse(t *models.Team) TeamResponse {
	resp := TeamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Permissions: make([]string, 0, len(t.Permissions)),
	}
	for _, perm := range t.Permissions {
		resp.Permissions = append(resp.Permissions, perm.Name)
	}
	return resp
}

// HandleCreateTeam handles POST /admin/teams.
func HandleCreateTeam(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTeamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		team, err := svc.CreateTeam(r.Context(), req.Name)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		respondJSON(w, http.StatusCreated, teamResponse(team))
	}
}

// HandleListTeams handles GET /admin/teams.
func HandleListTeams(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := svc.ListTeams(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "list teams failed", "")
			return
		}
		resp := make([]TeamResponse, 0, len(teams))
		for i := range teams {
			resp = append(resp, teamResponse(&teams[i]))
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

// MapGroupRequest binds an external IdP group name to a team for OIDC
// team synchronization.
type MapGroupRequest struct {
	Group string `json:"group"`
	Team  string `json:"team"`
}

// HandleMapGroup handles POST /admin/teams/group-mappings.
func HandleMapGroup(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MapGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		if err := svc.MapGroup(r.Context(), req.Group, req.Team); err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GrantRequest grants a permission to a team, or directly to a user when
// Username is set.
type GrantRequest struct {
	Permission string `json:"permission"`
	Team       string `json:"team,omitempty"`
	Username   string `json:"username,omitempty"`
	Provider   string `json:"provider,omitempty"`
}

// HandleGrantPermission handles POST /admin/grants.
func HandleGrantPermission(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}

		switch {
		case req.Team != "" && req.Username == "":
			if err := svc.GrantTeamPermission(r.Context(), req.Team, req.Permission); err != nil {
				respondError(w, http.StatusBadRequest, err.Error(), "")
				return
			}
		case req.Username != "" && req.Team == "":
			provider, ok := parseProvider(req.Provider)
			if !ok {
				respondError(w, http.StatusBadRequest, "provider must be LOCAL, DIRECTORY or OIDC", "")
				return
			}
			if err := svc.GrantUserPermission(r.Context(), req.Username, provider, req.Permission); err != nil {
				respondError(w, http.StatusBadRequest, err.Error(), "")
				return
			}
		default:
			respondError(w, http.StatusBadRequest, "exactly one of team or username is required", "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CreatePermissionRequest registers a named capability.
type CreatePermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PermissionResponse is the admin view of a permission.
type PermissionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// HandleCreatePermission handles POST /admin/permissions.
func HandleCreatePermission(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePermissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		perm, err := svc.CreatePermission(r.Context(), req.Name, req.Description)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		respondJSON(w, http.StatusCreated, PermissionResponse{ID: perm.ID, Name: perm.Name, Description: perm.Description})
	}
}

// HandleListPermissions handles GET /admin/permissions.
func HandleListPermissions(svc iamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perms, err := svc.ListPermissions(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "list permissions failed", "")
			return
		}
		resp := make([]PermissionResponse, 0, len(perms))
		for _, perm := range perms {
			resp = append(resp, PermissionResponse{ID: perm.ID, Name: perm.Name, Description: perm.Description})
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

func parseProvider(raw string) (models.IdentityProvider, bool) {
	switch models.IdentityProvider(raw) {
	case models.ProviderLocal, models.ProviderDirectory, models.ProviderOIDC:
		return models.IdentityProvider(raw), true
	case "":
		// LOCAL is the overwhelmingly common case for admin operations.
		return models.ProviderLocal, true
	default:
		return "", false
	}
}
