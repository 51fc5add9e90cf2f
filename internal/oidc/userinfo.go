package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/palisadehq/palisade/internal/auth"
)

// UserInfoClient retrieves claims from a provider's UserInfo endpoint using
// the caller's access token. A non-2xx status means the IdP rejected the
// token (INVALID_CREDENTIALS); transport and parse failures are OTHER.
type UserInfoClient struct {
	client *http.Client
}

// NewUserInfoClient builds a UserInfo client over the shared HTTP client.
func NewUserInfoClient(client *http.Client) *UserInfoClient {
	return &UserInfoClient{client: client}
}

// Fetch calls endpoint with the bearer access token and returns the claim
// set.
func (c *UserInfoClient) Fetch(ctx context.Context, endpoint, accessToken string) (map[string]any, error) {
	if endpoint == "" {
		return nil, auth.NewError(auth.CauseOther, "provider advertises no userinfo endpoint")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, auth.WrapError(auth.CauseOther, "build userinfo request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", oidc.PrefixBearer+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, auth.WrapError(auth.CauseOther, "call userinfo endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, auth.NewError(auth.CauseInvalidCredentials,
			fmt.Sprintf("userinfo endpoint rejected access token with status %d", resp.StatusCode))
	}

	claims := map[string]any{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBytes)).Decode(&claims); err != nil {
		return nil, auth.WrapError(auth.CauseOther, "decode userinfo response", err)
	}

	return claims, nil
}
