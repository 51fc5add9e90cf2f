// Package cmdutil centralizes IAM service construction for CLI commands,
// so every admin command wires repositories and credential plumbing the
// same way the server does.
package cmdutil

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/cache"
	"github.com/palisadehq/palisade/internal/config"
	"github.com/palisadehq/palisade/internal/db/bunx"
	"github.com/palisadehq/palisade/internal/db/models"
	"github.com/palisadehq/palisade/internal/httpx"
	"github.com/palisadehq/palisade/internal/repository"
	"github.com/palisadehq/palisade/internal/services/iam"
)

// ServiceBundle bundles the IAM service with its underlying DB connection
// so callers can reuse the connection when necessary.
type ServiceBundle struct {
	Service iam.Service
	DB      *bun.DB
}

// Close releases the underlying database connection.
func (b *ServiceBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	bunx.Close(b.DB)
}

// NewServiceBundle builds a ready-to-use IAM service from configuration:
// database, repositories, metadata cache, outbound HTTP client and the
// bearer-token signing key.
func NewServiceBundle(cfg *config.Config) (*ServiceBundle, error) {
	db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	models.Register(db)

	store, err := cache.New(cfg.CacheSize)
	if err != nil {
		bunx.Close(db)
		return nil, fmt.Errorf("build metadata cache: %w", err)
	}

	signingKey, err := auth.LoadOrGenerateSigningKey(cfg.TokenSigningKeyPath)
	if err != nil {
		bunx.Close(db)
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	httpClient := httpx.NewClient(
		time.Duration(cfg.HTTPTimeoutSeconds)*time.Second,
		httpx.ProxyFromConfig(cfg.Proxy),
	)

	svc, err := iam.New(cfg, iam.Dependencies{
		Users:       repository.NewBunUserRepository(db),
		Teams:       repository.NewBunTeamRepository(db),
		ApiKeys:     repository.NewBunApiKeyRepository(db),
		Permissions: repository.NewBunPermissionRepository(db),
		Cache:       store,
		HTTPClient:  httpClient,
		SigningKey:  signingKey,
	})
	if err != nil {
		bunx.Close(db)
		return nil, fmt.Errorf("build iam service: %w", err)
	}

	return &ServiceBundle{Service: svc, DB: db}, nil
}
