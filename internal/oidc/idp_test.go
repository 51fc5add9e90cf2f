package oidc

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/palisadehq/palisade/internal/cache"
)

// fakeIdP is an in-process identity provider serving discovery, JWKS and
// UserInfo endpoints, with per-endpoint failure injection.
type fakeIdP struct {
	srv   *httptest.Server
	key   *rsa.PrivateKey
	keyID string

	issuer          string // overrides srv.URL in the discovery document
	discoveryStatus int
	discoveryBody   string
	jwksStatus      int
	keySet          *jose.JSONWebKeySet
	userinfoStatus  int
	userinfoBody    string
	userinfoClaims  map[string]any

	discoveryHits     int
	jwksHits          int
	lastAuthorization string
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &fakeIdP{key: key, keyID: "key-1"}
	idp.srv = httptest.NewServer(idp.handler())
	t.Cleanup(idp.srv.Close)
	return idp
}

func (idp *fakeIdP) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		idp.discoveryHits++
		if idp.discoveryStatus != 0 {
			w.WriteHeader(idp.discoveryStatus)
			return
		}
		if idp.discoveryBody != "" {
			w.Write([]byte(idp.discoveryBody))
			return
		}
		issuer := idp.issuer
		if issuer == "" {
			issuer = idp.srv.URL
		}
		json.NewEncoder(w).Encode(&oidc.DiscoveryConfiguration{
			Issuer:           issuer,
			JwksURI:          idp.srv.URL + "/keys",
			UserinfoEndpoint: idp.srv.URL + "/userinfo",
		})
	})

	mux.HandleFunc("/keys", func(w http.ResponseWriter, _ *http.Request) {
		idp.jwksHits++
		if idp.jwksStatus != 0 {
			w.WriteHeader(idp.jwksStatus)
			return
		}
		keySet := idp.keySet
		if keySet == nil {
			keySet = &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
				Key:       &idp.key.PublicKey,
				KeyID:     idp.keyID,
				Algorithm: string(jose.RS256),
				Use:       "sig",
			}}}
		}
		json.NewEncoder(w).Encode(keySet)
	})

	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		idp.lastAuthorization = r.Header.Get("Authorization")
		if idp.userinfoStatus != 0 {
			w.WriteHeader(idp.userinfoStatus)
			return
		}
		if idp.userinfoBody != "" {
			w.Write([]byte(idp.userinfoBody))
			return
		}
		json.NewEncoder(w).Encode(idp.userinfoClaims)
	})

	return mux
}

// validClaims returns registered claims that pass verification against this
// IdP for the given client.
func (idp *fakeIdP) validClaims(clientID string) jwt.Claims {
	return jwt.Claims{
		Issuer:   idp.srv.URL,
		Subject:  "subject",
		Audience: jwt.Audience{clientID},
		Expiry:   jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
}

func (idp *fakeIdP) signToken(t *testing.T, std jwt.Claims, extra map[string]any) string {
	return signWith(t, idp.key, idp.keyID, std, extra)
}

func signWith(t *testing.T, key *rsa.PrivateKey, keyID string, std jwt.Claims, extra map[string]any) string {
	t.Helper()

	jwk := &jose.JSONWebKey{Key: key, KeyID: keyID, Algorithm: string(jose.RS256)}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: jwk}, nil)
	require.NoError(t, err)

	builder := jwt.Signed(signer).Claims(std)
	if extra != nil {
		builder = builder.Claims(extra)
	}
	raw, err := builder.Serialize()
	require.NoError(t, err)
	return raw
}

func newTestCache(t *testing.T) cache.Service {
	t.Helper()
	store, err := cache.New(0)
	require.NoError(t, err)
	return store
}
