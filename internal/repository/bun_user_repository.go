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

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Create inserts a new user into the database
func (r *BunUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = bunx.NewUUIDv7()
	}
	if user.CreatedAt.IsZero() {
		now := time.Now()
		user.CreatedAt = now
		user.UpdatedAt = now
	}
	_, err := r.db.NewInsert().
		Model(user).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates an existing user
func (r *BunUserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}

	return nil
}

// GetManagedByUsername retrieves a managed (locally authenticated) user
func (r *BunUserRepository) GetManagedByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getByUsername(ctx, username, models.ProviderLocal)
}

// GetDirectoryByUsername retrieves a directory-backed user
func (r *BunUserRepository) GetDirectoryByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getByUsername(ctx, username, models.ProviderDirectory)
}

// GetOidcByUsername retrieves an OIDC-federated user
func (r *BunUserRepository) GetOidcByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getByUsername(ctx, username, models.ProviderOIDC)
}

// getByUsername loads a user by (username, provider) with teams, team
// permissions and direct permissions preloaded, so permission resolution
// never needs a second round trip.
func (r *BunUserRepository) getByUsername(ctx context.Context, username string, provider models.IdentityProvider) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Relation("Teams").
		Relation("Teams.Permissions").
		Relation("Permissions").
		Where("username = ?", username).
		Where("provider = ?", provider).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s (%s): %w", username, provider, ErrNotFound)
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

// SetPasswordHash updates the stored bcrypt digest for a managed account
// and clears any pending forced-change flag in the same statement; the
// rotation is what the flag was demanding.
func (r *BunUserRepository) SetPasswordHash(ctx context.Context, id string, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("force_password_change = ?", false).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// List retrieves all users
func (r *BunUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ReplaceTeams rewrites a user's team memberships to exactly teamIDs. The
// delete and the inserts run in one transaction so a concurrent reader
// never observes a half-rewritten membership set.
func (r *BunUserRepository) ReplaceTeams(ctx context.Context, userID string, teamIDs []string) error {
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.UserTeam)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear memberships: %w", err)
		}

		if len(teamIDs) == 0 {
			return nil
		}

		edges := make([]models.UserTeam, 0, len(teamIDs))
		for _, teamID := range teamIDs {
			edges = append(edges, models.UserTeam{UserID: userID, TeamID: teamID})
		}
		if _, err := tx.NewInsert().
			Model(&edges).
			Exec(ctx); err != nil {
			return fmt.Errorf("insert memberships: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace teams for user %s: %w", userID, err)
	}
	return nil
}

// AddToTeams adds memberships without touching existing ones. Duplicate
// edges are ignored.
func (r *BunUserRepository) AddToTeams(ctx context.Context, userID string, teamIDs []string) error {
	if len(teamIDs) == 0 {
		return nil
	}
	edges := make([]models.UserTeam, 0, len(teamIDs))
	for _, teamID := range teamIDs {
		edges = append(edges, models.UserTeam{UserID: userID, TeamID: teamID})
	}
	_, err := r.db.NewInsert().
		Model(&edges).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add user %s to teams: %w", userID, err)
	}
	return nil
}

// GrantPermission assigns a permission directly to a user.
func (r *BunUserRepository) GrantPermission(ctx context.Context, userID, permissionID string) error {
	edge := &models.UserPermission{UserID: userID, PermissionID: permissionID}
	_, err := r.db.NewInsert().
		Model(edge).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("grant permission to user %s: %w", userID, err)
	}
	return nil
}
