// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS, logging,
// CORS, timeouts). AppConfig is everything specific to Paradebook: the
// MongoDB connection, session cookies, audit-log behavior, and the
// break-glass admin bootstrap.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: paradebook-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Audit logging settings
	AuditLogMode   string        // "all" (db+log), "db", "log", or "off"
	AuditRetention time.Duration // How long audit entries are kept before TTL expiry

	// BootstrapAdminEmail, when set, grants the admin role on startup to an
	// existing account that has no role assignment yet. This is the recovery
	// path for a deployment whose last admin locked themselves out; it never
	// touches an account that already holds a role.
	BootstrapAdminEmail string
}
