package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/db/bunx"
	"github.com/palisadehq/palisade/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20250815000002, down_20250815000002)
}

// up_20250815000002 seeds the access-management permission and an
// administrators team holding it, giving operators a bootstrap path: create
// a managed user, bind it to the administrators team, and the whole admin
// surface opens up.
func up_20250815000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding access management permission...")

	perm := models.Permission{
		ID:          bunx.NewUUIDv7(),
		Name:        auth.PermissionAccessManagement,
		Description: "Manage users, teams, permissions, group mappings and API keys",
	}
	if _, err := db.NewInsert().
		Model(&perm).
		On("CONFLICT (name) DO NOTHING"). // Idempotent
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed permission %s: %w", perm.Name, err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] seeding administrators team...")

	team := models.Team{
		ID:        bunx.NewUUIDv7(),
		Name:      auth.DefaultAdminTeam,
		CreatedAt: time.Now(),
	}
	if _, err := db.NewInsert().
		Model(&team).
		On("CONFLICT (name) DO NOTHING"). // Idempotent
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed team %s: %w", team.Name, err)
	}

	// Conflict handling above means the stored rows may predate this run, so
	// resolve the real identifiers before wiring the grant.
	var teamID string
	if err := db.NewSelect().
		Model((*models.Team)(nil)).
		Column("id").
		Where("name = ?", auth.DefaultAdminTeam).
		Scan(ctx, &teamID); err != nil {
		return fmt.Errorf("failed to look up team %s: %w", auth.DefaultAdminTeam, err)
	}
	var permID string
	if err := db.NewSelect().
		Model((*models.Permission)(nil)).
		Column("id").
		Where("name = ?", auth.PermissionAccessManagement).
		Scan(ctx, &permID); err != nil {
		return fmt.Errorf("failed to look up permission %s: %w", auth.PermissionAccessManagement, err)
	}

	grant := models.TeamPermission{TeamID: teamID, PermissionID: permID}
	if _, err := db.NewInsert().
		Model(&grant).
		On("CONFLICT DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to grant %s to %s: %w", auth.PermissionAccessManagement, auth.DefaultAdminTeam, err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20250815000002 removes the seeded team and permission. Grants vanish
// with them via the cascading foreign keys.
func down_20250815000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing administrators team...")
	if _, err := db.NewDelete().
		Model((*models.Team)(nil)).
		Where("name = ?", auth.DefaultAdminTeam).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove team %s: %w", auth.DefaultAdminTeam, err)
	}
	fmt.Println(" OK")

	fmt.Print(" [down] removing access management permission...")
	if _, err := db.NewDelete().
		Model((*models.Permission)(nil)).
		Where("name = ?", auth.PermissionAccessManagement).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove permission %s: %w", auth.PermissionAccessManagement, err)
	}
	fmt.Println(" OK")

	return nil
}
