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

// BunTeamRepository implements TeamRepository using Bun ORM
type BunTeamRepository struct {
	db *bun.DB
}

// NewBunTeamRepository creates a new Bun-based team repository
func NewBunTeamRepository(db *bun.DB) *BunTeamRepository {
	return &BunTeamRepository{db: db}
}

// Create inserts a new team
func (r *BunTeamRepository) Create(ctx context.Context, team *models.Team) error {
	if team.ID == "" {
		team.ID = bunx.NewUUIDv7()
	}
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now()
	}
	_, err := r.db.NewInsert().
		Model(team).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

// GetByName retrieves a team by its unique name with permissions preloaded
func (r *BunTeamRepository) GetByName(ctx context.Context, name string) (*models.Team, error) {
	team := new(models.Team)
	err := r.db.NewSelect().
		Model(team).
		Relation("Permissions").
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("team %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get team by name: %w", err)
	}
	return team, nil
}

// GetByNames retrieves all teams whose names are in the given set, with
// permissions preloaded. Names that match nothing are silently absent from
// the result.
func (r *BunTeamRepository) GetByNames(ctx context.Context, names []string) ([]models.Team, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var teams []models.Team
	err := r.db.NewSelect().
		Model(&teams).
		Relation("Permissions").
		Where("name IN (?)", bun.In(names)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get teams by names: %w", err)
	}
	return teams, nil
}

// GetByMappedGroups resolves external group names through the
// oidc_group_mappings table to the teams they map onto, with permissions
// preloaded. A group with no mapping contributes nothing; duplicates
// collapse.
func (r *BunTeamRepository) GetByMappedGroups(ctx context.Context, groupNames []string) ([]models.Team, error) {
	if len(groupNames) == 0 {
		return nil, nil
	}
	var teams []models.Team
	err := r.db.NewSelect().
		Model(&teams).
		Distinct().
		Relation("Permissions").
		Join("JOIN oidc_group_mappings AS ogm ON ogm.team_id = t.id").
		Where("ogm.group_name IN (?)", bun.In(groupNames)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get teams by mapped groups: %w", err)
	}
	return teams, nil
}

// MapGroup binds an external group name to a team.
func (r *BunTeamRepository) MapGroup(ctx context.Context, groupName, teamID string) error {
	mapping := &models.OidcGroupMapping{
		ID:        bunx.NewUUIDv7(),
		GroupName: groupName,
		TeamID:    teamID,
	}
	_, err := r.db.NewInsert().
		Model(mapping).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("map group %s: %w", groupName, err)
	}
	return nil
}

// AddPermission grants a permission to a team.
func (r *BunTeamRepository) AddPermission(ctx context.Context, teamID, permissionID string) error {
	edge := &models.TeamPermission{TeamID: teamID, PermissionID: permissionID}
	_, err := r.db.NewInsert().
		Model(edge).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add permission to team %s: %w", teamID, err)
	}
	return nil
}

// List retrieves all teams
func (r *BunTeamRepository) List(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.NewSelect().
		Model(&teams).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}
