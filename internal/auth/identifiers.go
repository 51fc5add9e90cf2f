package auth

// PermissionAccessManagement guards the administrative surface: managing
// users, teams, permissions, group mappings and API keys.
const PermissionAccessManagement = "ACCESS_MANAGEMENT"

// DefaultAdminTeam is created by the seed migration and granted
// PermissionAccessManagement, so the first managed user can be bootstrapped
// into a working administrator account.
const DefaultAdminTeam = "administrators"
