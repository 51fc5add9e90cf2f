package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/db/models"
	"github.com/palisadehq/palisade/internal/services/iam"
)

// fakeService stubs the slice of iam.Service the router exercises. The
// embedded interface panics on anything a test forgot to stub, which is
// exactly the signal we want.
type fakeService struct {
	iam.Service

	requestPrincipal *iam.Principal
	requestErr       error

	loginResult *iam.LoginResult
	loginErr    error

	oidcResult *iam.LoginResult
	oidcErr    error
}

func (f *fakeService) AuthenticateRequest(_ context.Context, _ iam.AuthRequest) (*iam.Principal, error) {
	return f.requestPrincipal, f.requestErr
}

func (f *fakeService) LoginWithPassword(_ context.Context, _, _ string) (*iam.LoginResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeService) LoginWithOIDC(_ context.Context, _ iam.OIDCCredentials) (*iam.LoginResult, error) {
	return f.oidcResult, f.oidcErr
}

func (f *fakeService) Authorize(principal *iam.Principal, required ...string) bool {
	if principal == nil {
		return false
	}
	return iam.HasAnyPermission(principal.Permissions, required...)
}

func (f *fakeService) Capabilities() iam.Capabilities {
	return iam.Capabilities{Managed: true, Directory: true}
}

func (f *fakeService) ListPermissions(_ context.Context) ([]models.Permission, error) {
	return []models.Permission{{ID: "p-1", Name: "deploy"}}, nil
}

func newTestServer(t *testing.T, svc iam.Service) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewRouter(RouterOptions{Service: svc}))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// TestHealth_ReportsCapabilities tests that the health endpoint exposes
// which login paths the deployment accepts
func TestHealth_ReportsCapabilities(t *testing.T) {
	ts := newTestServer(t, &fakeService{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !health.Capabilities.Managed || !health.Capabilities.Directory || health.Capabilities.OIDC {
		t.Errorf("Unexpected capabilities: %+v", health.Capabilities)
	}
}

// TestLogin_Success tests the password login happy path
func TestLogin_Success(t *testing.T) {
	expiresAt := time.Now().Add(7 * 24 * time.Hour)
	svc := &fakeService{
		loginResult: &iam.LoginResult{
			Principal: &iam.Principal{ID: "u-1", Name: "alice", Provider: "LOCAL", Type: iam.PrincipalTypeUser, Permissions: []string{"deploy"}},
			Token:     "signed-token",
			ExpiresAt: expiresAt,
		},
	}
	ts := newTestServer(t, svc)

	resp := postJSON(t, ts.URL+"/auth/login", LoginRequest{Username: "alice", Password: "hunter2"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token != "signed-token" {
		t.Errorf("Expected token in response, got %q", body.Token)
	}
	if body.Principal.Name != "alice" {
		t.Errorf("Expected principal alice, got %q", body.Principal.Name)
	}
	if body.ExpiresAt != expiresAt.Unix() {
		t.Errorf("Expected expiry %d, got %d", expiresAt.Unix(), body.ExpiresAt)
	}
}

// TestLogin_CauseMapping tests that login failures surface the taxonomy
// member with the right status code
func TestLogin_CauseMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCause  string
	}{
		{"invalid credentials", auth.NewError(auth.CauseInvalidCredentials, "invalid username or password"), http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"suspended", auth.NewError(auth.CauseSuspended, "account is suspended"), http.StatusUnauthorized, "SUSPENDED"},
		{"force password change", auth.NewError(auth.CauseForcePasswordChange, "rotate password"), http.StatusForbidden, "FORCE_PASSWORD_CHANGE"},
		{"infrastructure", auth.NewError(auth.CauseOther, "repository down"), http.StatusInternalServerError, "OTHER"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeService{loginErr: tc.err})
			resp := postJSON(t, ts.URL+"/auth/login", LoginRequest{Username: "alice", Password: "wrong"})
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, resp.StatusCode)
			}
			var body errorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Cause != tc.wantCause {
				t.Errorf("Expected cause %q, got %q", tc.wantCause, body.Cause)
			}
		})
	}
}

// TestLogin_MissingFields tests input validation before any service call
func TestLogin_MissingFields(t *testing.T) {
	ts := newTestServer(t, &fakeService{})

	resp := postJSON(t, ts.URL+"/auth/login", LoginRequest{Username: "alice"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

// TestOIDCLogin_NotAvailable tests the (nil, nil) "not applicable" channel
// mapping to 503 instead of 401
func TestOIDCLogin_NotAvailable(t *testing.T) {
	ts := newTestServer(t, &fakeService{})

	resp := postJSON(t, ts.URL+"/auth/login/oidc", OIDCLoginRequest{IDToken: "some-token"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}

// TestOIDCLogin_HeaderFallback tests that tokens travel via headers when
// the body carries none
func TestOIDCLogin_HeaderFallback(t *testing.T) {
	svc := &fakeService{
		oidcResult: &iam.LoginResult{
			Principal: &iam.Principal{Name: "alice", Provider: "OIDC", Type: iam.PrincipalTypeUser},
			Token:     "tok",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	ts := newTestServer(t, svc)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/auth/login/oidc", nil)
	req.Header.Set(HeaderIDToken, "header-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

// TestOIDCLogin_NoTokens tests that an empty attempt is a bad request,
// not an authentication failure
func TestOIDCLogin_NoTokens(t *testing.T) {
	ts := newTestServer(t, &fakeService{})

	resp := postJSON(t, ts.URL+"/auth/login/oidc", OIDCLoginRequest{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

// TestWhoAmI tests the identity endpoint behind the authentication guard
func TestWhoAmI(t *testing.T) {
	principal := &iam.Principal{ID: "u-1", Name: "alice", Provider: "LOCAL", Type: iam.PrincipalTypeUser, Teams: []string{"platform"}}

	t.Run("authenticated", func(t *testing.T) {
		ts := newTestServer(t, &fakeService{requestPrincipal: principal})
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/auth/whoami", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
		var body PrincipalResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Name != "alice" || len(body.Teams) != 1 {
			t.Errorf("Unexpected identity: %+v", body)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		ts := newTestServer(t, &fakeService{})
		resp, err := http.Get(ts.URL + "/api/auth/whoami")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", resp.StatusCode)
		}
	})
}

// TestAdminSurface_Authorization tests the ACCESS_MANAGEMENT guard over
// the admin routes
func TestAdminSurface_Authorization(t *testing.T) {
	tests := []struct {
		name       string
		principal  *iam.Principal
		wantStatus int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"missing permission", &iam.Principal{Name: "alice", Permissions: []string{"deploy"}}, http.StatusForbidden},
		{"access management", &iam.Principal{Name: "root", Permissions: []string{auth.PermissionAccessManagement}}, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeService{requestPrincipal: tc.principal})

			req, _ := http.NewRequest(http.MethodGet, ts.URL+"/admin/permissions", nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, resp.StatusCode)
			}
		})
	}
}

// TestAuthenticationFailure_StopsRequest tests that a rejected credential
// never reaches a handler as anonymous
func TestAuthenticationFailure_StopsRequest(t *testing.T) {
	svc := &fakeService{requestErr: auth.NewError(auth.CauseInvalidCredentials, "unknown api key")}
	ts := newTestServer(t, svc)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set(iam.HeaderAPIKey, "palisade_bogus")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}
