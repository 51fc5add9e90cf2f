package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/palisadehq/palisade/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20250815000001, down_20250815000001)
}

// up_20250815000001 creates the credential schema: users, teams, permissions,
// api_keys, oidc_group_mappings and the membership join tables.
func up_20250815000001(ctx context.Context, db *bun.DB) error {
	// 1. Principal tables
	fmt.Print(" [up] creating users table...")
	_, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create users: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating teams table...")
	_, err = db.NewCreateTable().
		Model((*models.Team)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create teams: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating permissions table...")
	_, err = db.NewCreateTable().
		Model((*models.Permission)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create permissions: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating api_keys table...")
	_, err = db.NewCreateTable().
		Model((*models.ApiKey)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create api_keys: %w", err)
	}
	// Legacy keys are matched by digest equality, so the digest needs an index.
	db.Exec(`CREATE INDEX IF NOT EXISTS idx_api_keys_secret_hash ON api_keys(secret_hash)`)
	fmt.Println(" OK")

	fmt.Print(" [up] creating oidc_group_mappings table...")
	q := db.NewCreateTable().
		Model((*models.OidcGroupMapping)(nil)).
		IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(team_id) REFERENCES teams(id) ON DELETE CASCADE`)
	}
	_, err = q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create oidc_group_mappings: %w", err)
	}
	db.Exec(`CREATE INDEX IF NOT EXISTS idx_oidc_group_mappings_group ON oidc_group_mappings(group_name)`)
	if IsPostgreSQL(db) {
		db.Exec(`ALTER TABLE oidc_group_mappings ADD CONSTRAINT fk_oidc_group_mappings_team_id FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE CASCADE`)
	}
	fmt.Println(" OK")

	// 2. Membership join tables
	fmt.Print(" [up] creating membership tables...")

	q = db.NewCreateTable().Model((*models.UserTeam)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`)
		q = q.ForeignKey(`(team_id) REFERENCES teams(id) ON DELETE CASCADE`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create user_teams: %w", err)
	}

	q = db.NewCreateTable().Model((*models.UserPermission)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`)
		q = q.ForeignKey(`(permission_id) REFERENCES permissions(id) ON DELETE CASCADE`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create user_permissions: %w", err)
	}

	q = db.NewCreateTable().Model((*models.TeamPermission)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(team_id) REFERENCES teams(id) ON DELETE CASCADE`)
		q = q.ForeignKey(`(permission_id) REFERENCES permissions(id) ON DELETE CASCADE`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create team_permissions: %w", err)
	}

	q = db.NewCreateTable().Model((*models.ApiKeyTeam)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(api_key_id) REFERENCES api_keys(id) ON DELETE CASCADE`)
		q = q.ForeignKey(`(team_id) REFERENCES teams(id) ON DELETE CASCADE`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create api_key_teams: %w", err)
	}

	if IsPostgreSQL(db) {
		db.Exec(`ALTER TABLE user_teams ADD CONSTRAINT fk_user_teams_user_id FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`)
		db.Exec(`ALTER TABLE user_teams ADD CONSTRAINT fk_user_teams_team_id FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE CASCADE`)
		db.Exec(`ALTER TABLE user_permissions ADD CONSTRAINT fk_user_permissions_user_id FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`)
		db.Exec(`ALTER TABLE user_permissions ADD CONSTRAINT fk_user_permissions_permission_id FOREIGN KEY (permission_id) REFERENCES permissions(id) ON DELETE CASCADE`)
		db.Exec(`ALTER TABLE team_permissions ADD CONSTRAINT fk_team_permissions_team_id FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE CASCADE`)
		db.Exec(`ALTER TABLE team_permissions ADD CONSTRAINT fk_team_permissions_permission_id FOREIGN KEY (permission_id) REFERENCES permissions(id) ON DELETE CASCADE`)
		db.Exec(`ALTER TABLE api_key_teams ADD CONSTRAINT fk_api_key_teams_api_key_id FOREIGN KEY (api_key_id) REFERENCES api_keys(id) ON DELETE CASCADE`)
		db.Exec(`ALTER TABLE api_key_teams ADD CONSTRAINT fk_api_key_teams_team_id FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE CASCADE`)
	}
	fmt.Println(" OK")

	return nil
}

// down_20250815000001 drops the credential schema.
func down_20250815000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping credential tables...")

	// SQLite has no DROP TABLE ... CASCADE.
	cascade := ""
	if IsPostgreSQL(db) {
		cascade = " CASCADE"
	}

	tables := []string{
		"api_key_teams",
		"team_permissions",
		"user_permissions",
		"user_teams",
		"oidc_group_mappings",
		"api_keys",
		"permissions",
		"teams",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s%s", table, cascade)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}

	fmt.Println(" OK")
	return nil
}
