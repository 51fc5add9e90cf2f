// Package directory validates username/password pairs by binding against
// an LDAP server and exposes the enumeration searches the admin surface
// uses.
package directory

import (
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/config"
)

const defaultTimeout = 10 * time.Second

// Directory holds the connection settings for one LDAP deployment. It is
// stateless: every operation dials, works, and closes, so concurrent
// requests never share a connection.
type Directory struct {
	cfg config.LDAPConfig
}

// New builds a Directory from configuration. The caller is responsible for
// checking cfg.Configured() before routing logins here.
func New(cfg config.LDAPConfig) *Directory {
	return &Directory{cfg: cfg}
}

// FormatPrincipal renders the name presented to the server on a login
// bind: the format template when one is configured, otherwise
// username@domain when a domain is configured, otherwise the raw username.
func (d *Directory) FormatPrincipal(username string) string {
	if d.cfg.FormatTemplate != "" {
		return fmt.Sprintf(d.cfg.FormatTemplate, username)
	}
	if d.cfg.Domain != "" {
		return username + "@" + d.cfg.Domain
	}
	return username
}

// Authenticate binds against the directory with the asserted credentials.
// Empty credentials are rejected before any network traffic: an anonymous
// LDAP bind succeeds on most servers and must never count as a login.
func (d *Directory) Authenticate(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return auth.NewError(auth.CauseInvalidCredentials, "username and password are required")
	}

	conn, err := d.dial()
	if err != nil {
		// Unreachable is logged apart from a rejected bind, but the caller
		// sees the same category: the credential could not be validated.
		log.Printf("WARNING: directory server %s unreachable: %v", d.cfg.ServerURL, err)
		return auth.WrapError(auth.CauseInvalidCredentials, "directory server unreachable", err)
	}
	defer conn.Close()

	if err := conn.Bind(d.FormatPrincipal(username), password); err != nil {
		return auth.WrapError(auth.CauseInvalidCredentials, "directory bind rejected", err)
	}
	return nil
}

// SearchGroups lists group names under the configured base DN using the
// service credentials.
func (d *Directory) SearchGroups() ([]string, error) {
	return d.search(d.cfg.GroupsFilter)
}

// SearchUsers lists user names under the configured base DN using the
// service credentials.
func (d *Directory) SearchUsers() ([]string, error) {
	return d.search(d.cfg.UsersFilter)
}

func (d *Directory) search(filter string) ([]string, error) {
	conn, err := d.dial()
	if err != nil {
		return nil, fmt.Errorf("dial directory: %w", err)
	}
	defer conn.Close()

	if d.cfg.BindUsername != "" {
		if err := conn.Bind(d.cfg.BindUsername, d.cfg.BindPassword); err != nil {
			return nil, fmt.Errorf("service bind: %w", err)
		}
	}

	req := ldap.NewSearchRequest(
		d.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		[]string{d.cfg.AttributeName},
		nil,
	)

	res, err := conn.Search(req)
	return collectNames(res, err, d.cfg.AttributeName)
}

// collectNames translates one search outcome into attribute values.
// Servers that do not follow referrals answer with a referral code and
// whatever partial results they had; that is end-of-results, not a
// failure.
func collectNames(res *ldap.SearchResult, err error, attr string) ([]string, error) {
	if err != nil {
		if !ldap.IsErrorWithCode(err, ldap.LDAPResultReferral) {
			return nil, fmt.Errorf("directory search: %w", err)
		}
		if res == nil {
			return []string{}, nil
		}
	}

	names := make([]string, 0, len(res.Entries))
	for _, entry := range res.Entries {
		if name := entry.GetAttributeValue(attr); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (d *Directory) dial() (*ldap.Conn, error) {
	timeout := time.Duration(d.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	conn, err := ldap.DialURL(d.cfg.ServerURL, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(timeout)
	return conn, nil
}
