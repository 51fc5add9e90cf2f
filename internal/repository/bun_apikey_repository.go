package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/palisadehq/palisade/internal/db/bunx"
	"github.com/palisadehq/palisade/internal/db/models"
)

// BunApiKeyRepository implements ApiKeyRepository using Bun ORM
type BunApiKeyRepository struct {
	db *bun.DB
}

// NewBunApiKeyRepository creates a new Bun-based API key repository
func NewBunApiKeyRepository(db *bun.DB) *BunApiKeyRepository {
	return &BunApiKeyRepository{db: db}
}

// Create inserts a key record and binds it to the given teams in one
// transaction.
func (r *BunApiKeyRepository) Create(ctx context.Context, key *models.ApiKey, teamIDs []string) error {
	if key.ID == "" {
		key.ID = bunx.NewUUIDv7()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(key).
			Exec(ctx); err != nil {
			return fmt.Errorf("insert key: %w", err)
		}

		if len(teamIDs) == 0 {
			return nil
		}
		edges := make([]models.ApiKeyTeam, 0, len(teamIDs))
		for _, teamID := range teamIDs {
			edges = append(edges, models.ApiKeyTeam{ApiKeyID: key.ID, TeamID: teamID})
		}
		if _, err := tx.NewInsert().
			Model(&edges).
			Exec(ctx); err != nil {
			return fmt.Errorf("bind teams: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// GetByPublicID retrieves a key by its public identifier with owning teams
// and their permissions preloaded.
func (r *BunApiKeyRepository) GetByPublicID(ctx context.Context, publicID string) (*models.ApiKey, error) {
	key := new(models.ApiKey)
	err := r.db.NewSelect().
		Model(key).
		Relation("Teams").
		Relation("Teams.Permissions").
		Where("public_id = ?", publicID).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("api key %s: %w", publicID, ErrNotFound)
		}
		return nil, fmt.Errorf("get api key by public id: %w", err)
	}
	return key, nil
}

// GetLegacyByDigest retrieves a legacy key by full-key digest equality.
// Legacy keys have no public identifier, the digest is the only index.
func (r *BunApiKeyRepository) GetLegacyByDigest(ctx context.Context, digest string) (*models.ApiKey, error) {
	key := new(models.ApiKey)
	err := r.db.NewSelect().
		Model(key).
		Relation("Teams").
		Relation("Teams.Permissions").
		Where("legacy = ?", true).
		Where("secret_hash = ?", digest).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("legacy api key: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get legacy api key: %w", err)
	}
	return key, nil
}

// Rotate replaces the key material for an existing record in a single
// update: the new public id and digest become visible together and the old
// secret stops matching immediately. There is no dual-validity window.
func (r *BunApiKeyRepository) Rotate(ctx context.Context, id, newPublicID, newSecretHash string) error {
	result, err := r.db.NewUpdate().
		Model((*models.ApiKey)(nil)).
		Set("public_id = ?", newPublicID).
		Set("secret_hash = ?", newSecretHash).
		Set("legacy = ?", false).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rotate api key: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("api key %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateLastUsed stamps the key's last activity time.
func (r *BunApiKeyRepository) UpdateLastUsed(ctx context.Context, id string) error {
	_, err := r.db.NewUpdate().
		Model((*models.ApiKey)(nil)).
		Set("last_used_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update last used: %w", err)
	}
	return nil
}

// List retrieves all keys with their owning teams.
func (r *BunApiKeyRepository) List(ctx context.Context) ([]models.ApiKey, error) {
	var keys []models.ApiKey
	err := r.db.NewSelect().
		Model(&keys).
		Relation("Teams").
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}
