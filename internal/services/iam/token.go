package iam

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/db/models"
)

// TokenValidity is how long issued bearer tokens live. There is no refresh
// flow; clients log in again when the token expires.
const TokenValidity = 7 * 24 * time.Hour

// DefaultIssuer is stamped on tokens when the configuration carries no
// application name.
const DefaultIssuer = "Palisade"

// TokenClaims is the claim set carried by issued bearer tokens.
type TokenClaims struct {
	jwt.RegisteredClaims

	// Permissions is the comma-joined effective permission set at issuance
	// time. Informational only: validation recomputes permissions from the
	// store so revocations take effect without waiting out the token.
	Permissions string `json:"permissions,omitempty"`

	// Provider records which identity authority vouched for the login.
	Provider string `json:"idp,omitempty"`
}

// TokenService mints and validates the HMAC-signed bearer tokens returned
// by interactive logins.
type TokenService struct {
	issuer     string
	signingKey []byte

	// now is swapped in tests to pin the clock.
	now func() time.Time
}

// NewTokenService builds a token service signing with signingKey and
// stamping issuer. An empty issuer falls back to DefaultIssuer.
func NewTokenService(issuer string, signingKey []byte) *TokenService {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &TokenService{issuer: issuer, signingKey: signingKey, now: time.Now}
}

// Issue mints a token for subject carrying the effective permissions and
// the provider that vouched for the login. The permissions claim is sorted
// regardless of input order so equal permission sets always produce equal
// claims. Returns the signed compact token and its expiry.
func (s *TokenService) Issue(subject string, permissions []string, provider models.IdentityProvider) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(TokenValidity)

	sorted := slices.Clone(permissions)
	slices.Sort(sorted)

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Permissions: strings.Join(sorted, ","),
		Provider:    string(provider),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// TokenIdentity is the validated view of a presented token.
type TokenIdentity struct {
	Subject     string
	Provider    models.IdentityProvider
	Permissions []string
	ExpiresAt   time.Time
}

// Validate checks rawToken's signature and claims. The signature is checked
// before any claim, so expiry on an otherwise valid token maps to
// EXPIRED_CREDENTIALS; every other defect is INVALID_CREDENTIALS.
func (s *TokenService) Validate(rawToken string) (*TokenIdentity, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, auth.WrapError(auth.CauseExpiredCredentials, "token expired", err)
		}
		return nil, auth.WrapError(auth.CauseInvalidCredentials, "invalid token", err)
	}

	if claims.Subject == "" {
		return nil, auth.NewError(auth.CauseInvalidCredentials, "token missing subject")
	}

	ident := &TokenIdentity{
		Subject:   claims.Subject,
		Provider:  models.IdentityProvider(claims.Provider),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.Permissions != "" {
		ident.Permissions = strings.Split(claims.Permissions, ",")
	}
	return ident, nil
}

func (s *TokenService) keyFunc(*jwt.Token) (any, error) {
	return s.signingKey, nil
}
