package iam

import (
	"context"
	"fmt"

	"github.com/palisadehq/palisade/internal/db/models"
	"github.com/palisadehq/palisade/internal/repository"
)

// Map-backed repository fakes shared across the tests in this package.
// Setting err makes every lookup fail, standing in for a broken store;
// updateErr fails only writes through Update.

// mockUserRepository for testing
type mockUserRepository struct {
	users     map[string]*models.User // keyed by provider/username
	err       error
	updateErr error

	replacedTeams map[string][]string // userID to last ReplaceTeams call
	addedTeams    map[string][]string // userID to accumulated AddToTeams calls
	grants        map[string][]string // userID to granted permission IDs
}

func newMockUserRepository(users ...*models.User) *mockUserRepository {
	m := &mockUserRepository{
		users:         make(map[string]*models.User),
		replacedTeams: make(map[string][]string),
		addedTeams:    make(map[string][]string),
		grants:        make(map[string][]string),
	}
	for _, user := range users {
		m.users[userKey(user.Provider, user.Username)] = user
	}
	return m
}

func userKey(provider models.IdentityProvider, username string) string {
	return string(provider) + "/" + username
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.err != nil {
		return m.err
	}
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users[userKey(user.Provider, user.Username)] = user
	return nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[userKey(user.Provider, user.Username)]; !ok {
		return fmt.Errorf("user %s: %w", user.Username, repository.ErrNotFound)
	}
	m.users[userKey(user.Provider, user.Username)] = user
	return nil
}

func (m *mockUserRepository) get(provider models.IdentityProvider, username string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if user, ok := m.users[userKey(provider, username)]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("user %s: %w", username, repository.ErrNotFound)
}

func (m *mockUserRepository) GetManagedByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.get(models.ProviderLocal, username)
}

func (m *mockUserRepository) GetDirectoryByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.get(models.ProviderDirectory, username)
}

func (m *mockUserRepository) GetOidcByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.get(models.ProviderOIDC, username)
}

func (m *mockUserRepository) SetPasswordHash(ctx context.Context, id string, passwordHash string) error {
	if m.err != nil {
		return m.err
	}
	for _, user := range m.users {
		if user.ID == id {
			hash := passwordHash
			user.PasswordHash = &hash
			user.ForcePasswordChange = false
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
}

func (m *mockUserRepository) List(ctx context.Context) ([]models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		result = append(result, *user)
	}
	return result, nil
}

func (m *mockUserRepository) ReplaceTeams(ctx context.Context, userID string, teamIDs []string) error {
	if m.err != nil {
		return m.err
	}
	m.replacedTeams[userID] = append([]string(nil), teamIDs...)
	return nil
}

func (m *mockUserRepository) AddToTeams(ctx context.Context, userID string, teamIDs []string) error {
	if m.err != nil {
		return m.err
	}
	m.addedTeams[userID] = append(m.addedTeams[userID], teamIDs...)
	return nil
}

func (m *mockUserRepository) GrantPermission(ctx context.Context, userID, permissionID string) error {
	if m.err != nil {
		return m.err
	}
	m.grants[userID] = append(m.grants[userID], permissionID)
	return nil
}

// mockTeamRepository for testing
type mockTeamRepository struct {
	teams    map[string]*models.Team // keyed by name
	mappings map[string][]string     // external group name to team names
	granted  map[string][]string     // teamID to granted permission IDs
	err      error
}

func newMockTeamRepository(teams ...*models.Team) *mockTeamRepository {
	m := &mockTeamRepository{
		teams:    make(map[string]*models.Team),
		mappings: make(map[string][]string),
		granted:  make(map[string][]string),
	}
	for _, team := range teams {
		m.teams[team.Name] = team
	}
	return m
}

func (m *mockTeamRepository) Create(ctx context.Context, team *models.Team) error {
	if m.err != nil {
		return m.err
	}
	if team.ID == "" {
		team.ID = fmt.Sprintf("team-%d", len(m.teams)+1)
	}
	m.teams[team.Name] = team
	return nil
}

func (m *mockTeamRepository) GetByName(ctx context.Context, name string) (*models.Team, error) {
	if m.err != nil {
		return nil, m.err
	}
	if team, ok := m.teams[name]; ok {
		return team, nil
	}
	return nil, fmt.Errorf("team %s: %w", name, repository.ErrNotFound)
}

func (m *mockTeamRepository) GetByNames(ctx context.Context, names []string) ([]models.Team, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(names) == 0 {
		return nil, nil
	}
	result := make([]models.Team, 0, len(names))
	seen := make(map[string]struct{})
	for _, name := range names {
		team, ok := m.teams[name]
		if !ok {
			continue
		}
		if _, dup := seen[team.ID]; dup {
			continue
		}
		seen[team.ID] = struct{}{}
		result = append(result, *team)
	}
	return result, nil
}

func (m *mockTeamRepository) GetByMappedGroups(ctx context.Context, groupNames []string) ([]models.Team, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(groupNames) == 0 {
		return nil, nil
	}
	result := make([]models.Team, 0)
	seen := make(map[string]struct{})
	for _, group := range groupNames {
		for _, teamName := range m.mappings[group] {
			team, ok := m.teams[teamName]
			if !ok {
				continue
			}
			if _, dup := seen[team.ID]; dup {
				continue
			}
			seen[team.ID] = struct{}{}
			result = append(result, *team)
		}
	}
	return result, nil
}

func (m *mockTeamRepository) MapGroup(ctx context.Context, groupName, teamID string) error {
	if m.err != nil {
		return m.err
	}
	for _, team := range m.teams {
		if team.ID == teamID {
			m.mappings[groupName] = append(m.mappings[groupName], team.Name)
			return nil
		}
	}
	return fmt.Errorf("team %s: %w", teamID, repository.ErrNotFound)
}

func (m *mockTeamRepository) AddPermission(ctx context.Context, teamID, permissionID string) error {
	if m.err != nil {
		return m.err
	}
	m.granted[teamID] = append(m.granted[teamID], permissionID)
	return nil
}

func (m *mockTeamRepository) List(ctx context.Context) ([]models.Team, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([]models.Team, 0, len(m.teams))
	for _, team := range m.teams {
		result = append(result, *team)
	}
	return result, nil
}

// mockApiKeyRepository for testing
type mockApiKeyRepository struct {
	keys     map[string]*models.ApiKey // keyed by ID
	boundTo  map[string][]string       // keyID to team IDs bound at create
	lastUsed []string                  // IDs stamped by UpdateLastUsed
	err      error
}

func newMockApiKeyRepository(keys ...*models.ApiKey) *mockApiKeyRepository {
	m := &mockApiKeyRepository{
		keys:    make(map[string]*models.ApiKey),
		boundTo: make(map[string][]string),
	}
	for _, key := range keys {
		m.keys[key.ID] = key
	}
	return m
}

func (m *mockApiKeyRepository) Create(ctx context.Context, key *models.ApiKey, teamIDs []string) error {
	if m.err != nil {
		return m.err
	}
	if key.ID == "" {
		key.ID = fmt.Sprintf("key-%d", len(m.keys)+1)
	}
	m.keys[key.ID] = key
	m.boundTo[key.ID] = append([]string(nil), teamIDs...)
	return nil
}

func (m *mockApiKeyRepository) GetByPublicID(ctx context.Context, publicID string) (*models.ApiKey, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, key := range m.keys {
		if key.PublicID != nil && *key.PublicID == publicID {
			return key, nil
		}
	}
	return nil, fmt.Errorf("api key %s: %w", publicID, repository.ErrNotFound)
}

func (m *mockApiKeyRepository) GetLegacyByDigest(ctx context.Context, digest string) (*models.ApiKey, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, key := range m.keys {
		if key.Legacy && key.SecretHash == digest {
			return key, nil
		}
	}
	return nil, fmt.Errorf("legacy api key: %w", repository.ErrNotFound)
}

func (m *mockApiKeyRepository) Rotate(ctx context.Context, id, newPublicID, newSecretHash string) error {
	if m.err != nil {
		return m.err
	}
	key, ok := m.keys[id]
	if !ok {
		return fmt.Errorf("api key %s: %w", id, repository.ErrNotFound)
	}
	publicID := newPublicID
	key.PublicID = &publicID
	key.SecretHash = newSecretHash
	key.Legacy = false
	return nil
}

func (m *mockApiKeyRepository) UpdateLastUsed(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.lastUsed = append(m.lastUsed, id)
	return nil
}

func (m *mockApiKeyRepository) List(ctx context.Context) ([]models.ApiKey, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([]models.ApiKey, 0, len(m.keys))
	for _, key := range m.keys {
		result = append(result, *key)
	}
	return result, nil
}

// mockPermissionRepository for testing
type mockPermissionRepository struct {
	permissions map[string]*models.Permission // keyed by name
	err         error
}

func newMockPermissionRepository(permissions ...*models.Permission) *mockPermissionRepository {
	m := &mockPermissionRepository{permissions: make(map[string]*models.Permission)}
	for _, permission := range permissions {
		m.permissions[permission.Name] = permission
	}
	return m
}

func (m *mockPermissionRepository) Create(ctx context.Context, permission *models.Permission) error {
	if m.err != nil {
		return m.err
	}
	if permission.ID == "" {
		permission.ID = fmt.Sprintf("perm-%d", len(m.permissions)+1)
	}
	m.permissions[permission.Name] = permission
	return nil
}

func (m *mockPermissionRepository) GetByName(ctx context.Context, name string) (*models.Permission, error) {
	if m.err != nil {
		return nil, m.err
	}
	if permission, ok := m.permissions[name]; ok {
		return permission, nil
	}
	return nil, fmt.Errorf("permission %s: %w", name, repository.ErrNotFound)
}

func (m *mockPermissionRepository) List(ctx context.Context) ([]models.Permission, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([]models.Permission, 0, len(m.permissions))
	for _, permission := range m.permissions {
		result = append(result, *permission)
	}
	return result, nil
}

// newTeam builds a team whose permission records carry "perm-<name>" IDs.
func newTeam(id, name string, permissions ...string) *models.Team {
	team := &models.Team{ID: id, Name: name}
	for _, permission := range permissions {
		team.Permissions = append(team.Permissions, &models.Permission{
			ID:   "perm-" + permission,
			Name: permission,
		})
	}
	return team
}
