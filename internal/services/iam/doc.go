// Package iam provides identity and access management services for Palisade.
//
// The IAM service centralizes credential validation, token issuance, and
// permission evaluation. It provides:
//
//   - Authentication via pluggable strategies (API key, bearer token,
//     password against the managed store or the directory, OIDC tokens)
//   - A normalized failure taxonomy so callers map rejections onto HTTP
//     responses without parsing authenticator internals
//   - Short-lived signed tokens minted after interactive logins
//   - Permission evaluation over pre-resolved effective permissions
//   - User, team, API key, and permission administration
//
// Architecture:
//
//   - Authenticator interface: pluggable request-credential strategies
//   - Principal struct: unified authentication result (immutable)
//   - TokenService: HMAC-signed bearer tokens for login sessions
//   - Service interface: facade for all IAM operations
//
// Effective permissions are resolved once at authentication time and
// carried on the Principal. Authorization checks that pre-resolved set and
// never goes back to the database.
package iam
