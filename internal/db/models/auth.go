package models

import (
	"time"

	"github.com/uptrace/bun"
)

// IdentityProvider tags which authority vouched for a principal's
// credentials.
type IdentityProvider string

const (
	// ProviderLocal marks managed accounts whose password digest we store.
	ProviderLocal IdentityProvider = "LOCAL"
	// ProviderDirectory marks accounts validated by LDAP bind.
	ProviderDirectory IdentityProvider = "DIRECTORY"
	// ProviderOIDC marks accounts federated from an OpenID Connect IdP.
	ProviderOIDC IdentityProvider = "OIDC"
)

// Principal is anything that can authenticate: a user of any provider, or
// an API key. Effective permissions are computed from the direct grants
// plus every owning team's grants.
type Principal interface {
	PrincipalName() string
	PrincipalTeams() []*Team
	PrincipalPermissions() []*Permission
}

// User is a human (or automation) account. Managed, directory and OIDC
// accounts share the table; Provider says which credential path applies.
// Username is unique per provider, not globally, so "alice" can exist both
// as a managed account and as a directory account.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       string           `bun:"id,pk,type:uuid"`
	Username string           `bun:"username,notnull,unique:users_username_provider"`
	Provider IdentityProvider `bun:"provider,notnull,unique:users_username_provider"`

	// PasswordHash is set for managed accounts only (bcrypt digest).
	PasswordHash *string `bun:"password_hash" json:"-"`

	// Subject is the OIDC subject identifier, bound once at first login
	// and immutable afterwards.
	Subject *string `bun:"subject"`

	// Email is refreshed from the IdP on OIDC logins but never required.
	Email *string `bun:"email"`

	ForcePasswordChange bool `bun:"force_password_change,notnull,default:false"`
	Suspended           bool `bun:"suspended,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	Teams       []*Team       `bun:"m2m:user_teams,join:User=Team"`
	Permissions []*Permission `bun:"m2m:user_permissions,join:User=Permission"`
}

func (u *User) PrincipalName() string { return u.Username }

func (u *User) PrincipalTeams() []*Team { return u.Teams }

func (u *User) PrincipalPermissions() []*Permission { return u.Permissions }

// ApiKey is a long-lived credential bound to one or more teams. Only the
// secret's digest is stored; the plaintext is shown once at creation.
// Legacy keys predate the public-identifier scheme: they have no PublicID
// and are matched by digest equality alone.
type ApiKey struct {
	bun.BaseModel `bun:"table:api_keys,alias:ak"`

	ID string `bun:"id,pk,type:uuid"`

	// PublicID is the lookup index embedded in the key material. Nil for
	// legacy keys.
	PublicID   *string `bun:"public_id,unique,nullzero"`
	SecretHash string  `bun:"secret_hash,notnull" json:"-"`
	Comment    string  `bun:"comment"`
	Legacy     bool    `bun:"legacy,notnull,default:false"`

	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt *time.Time `bun:"last_used_at"`

	Teams []*Team `bun:"m2m:api_key_teams,join:ApiKey=Team"`
}

// PrincipalName never exposes key material: the comment when present,
// otherwise the public identifier, otherwise a fixed marker for legacy
// keys.
func (k *ApiKey) PrincipalName() string {
	if k.Comment != "" {
		return k.Comment
	}
	if k.PublicID != nil {
		return *k.PublicID
	}
	return "legacy-api-key"
}

func (k *ApiKey) PrincipalTeams() []*Team { return k.Teams }

// PrincipalPermissions is nil: keys carry no direct grants, their
// effective permissions come entirely from the owning teams.
func (k *ApiKey) PrincipalPermissions() []*Permission { return nil }

// Team groups principals and owns permission grants.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID        string    `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`

	Permissions []*Permission `bun:"m2m:team_permissions,join:Team=Permission"`
}

// Permission is a named capability. Authorization intersects a principal's
// effective permission names with a route's required set.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID          string `bun:"id,pk,type:uuid"`
	Name        string `bun:"name,notnull,unique"`
	Description string `bun:"description"`
}

// OidcGroupMapping maps an external IdP group name onto a local team.
// Team synchronization resolves the profile's group names through this
// table to compute the desired membership set.
type OidcGroupMapping struct {
	bun.BaseModel `bun:"table:oidc_group_mappings,alias:ogm"`

	ID        string `bun:"id,pk,type:uuid"`
	GroupName string `bun:"group_name,notnull,unique:ogm_group_team"`
	TeamID    string `bun:"team_id,notnull,type:uuid,unique:ogm_group_team"`

	Team *Team `bun:"rel:belongs-to,join:team_id=id"`
}

// Join tables. Bun needs these registered before any m2m query runs; see
// Register.

type UserTeam struct {
	bun.BaseModel `bun:"table:user_teams,alias:ut"`

	UserID string `bun:"user_id,pk,type:uuid"`
	User   *User  `bun:"rel:belongs-to,join:user_id=id"`
	TeamID string `bun:"team_id,pk,type:uuid"`
	Team   *Team  `bun:"rel:belongs-to,join:team_id=id"`
}

type UserPermission struct {
	bun.BaseModel `bun:"table:user_permissions,alias:up"`

	UserID       string      `bun:"user_id,pk,type:uuid"`
	User         *User       `bun:"rel:belongs-to,join:user_id=id"`
	PermissionID string      `bun:"permission_id,pk,type:uuid"`
	Permission   *Permission `bun:"rel:belongs-to,join:permission_id=id"`
}

type TeamPermission struct {
	bun.BaseModel `bun:"table:team_permissions,alias:tp"`

	TeamID       string      `bun:"team_id,pk,type:uuid"`
	Team         *Team       `bun:"rel:belongs-to,join:team_id=id"`
	PermissionID string      `bun:"permission_id,pk,type:uuid"`
	Permission   *Permission `bun:"rel:belongs-to,join:permission_id=id"`
}

type ApiKeyTeam struct {
	bun.BaseModel `bun:"table:api_key_teams,alias:akt"`

	ApiKeyID string  `bun:"api_key_id,pk,type:uuid"`
	ApiKey   *ApiKey `bun:"rel:belongs-to,join:api_key_id=id"`
	TeamID   string  `bun:"team_id,pk,type:uuid"`
	Team     *Team   `bun:"rel:belongs-to,join:team_id=id"`
}

// Register declares the m2m join models with bun. Must run once per
// bun.DB before any relation query.
func Register(db *bun.DB) {
	db.RegisterModel(
		(*UserTeam)(nil),
		(*UserPermission)(nil),
		(*TeamPermission)(nil),
		(*ApiKeyTeam)(nil),
	)
}
