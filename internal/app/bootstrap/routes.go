// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	auditfeature "github.com/brigadetools/paradebook/internal/app/features/auditlog"
	healthfeature "github.com/brigadetools/paradebook/internal/app/features/health"
	invitesfeature "github.com/brigadetools/paradebook/internal/app/features/invites"
	loginfeature "github.com/brigadetools/paradebook/internal/app/features/login"
	membersfeature "github.com/brigadetools/paradebook/internal/app/features/members"
	rolesfeature "github.com/brigadetools/paradebook/internal/app/features/roles"
	settingsfeature "github.com/brigadetools/paradebook/internal/app/features/settings"
	signupfeature "github.com/brigadetools/paradebook/internal/app/features/signup"
	auditstore "github.com/brigadetools/paradebook/internal/app/store/audit"
	invitestore "github.com/brigadetools/paradebook/internal/app/store/invites"
	memberstore "github.com/brigadetools/paradebook/internal/app/store/members"
	rolestore "github.com/brigadetools/paradebook/internal/app/store/roles"
	settingsstore "github.com/brigadetools/paradebook/internal/app/store/settings"
	userstore "github.com/brigadetools/paradebook/internal/app/store/users"
	sysauditlog "github.com/brigadetools/paradebook/internal/app/system/auditlog"
	"github.com/brigadetools/paradebook/internal/app/system/auth"
	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It builds the stores, the audit recorder,
// and the feature handlers, then arranges them in two tiers:
//
//   - public routes: health, session endpoints, signup, and the invite
//     validity probe
//   - /api routes: everything else, behind the role resolver, so each
//     handler receives an Actor whose role was looked up on this request
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Session manager using app config. Secure cookies in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	users := userstore.New(db)
	roles := rolestore.New(db)
	members := memberstore.New(db)
	settings := settingsstore.New(db)
	invites := invitestore.New(db)
	audits := auditstore.New(db)

	resolver := authz.NewResolver(roles, logger)
	recorder := sysauditlog.New(audits, logger, sysauditlog.Config{Mode: appCfg.AuditLogMode})

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	loginHandler := loginfeature.NewHandler(users, resolver, sessionMgr, logger)
	signupHandler := signupfeature.NewHandler(users, roles, invites, sessionMgr, logger)
	membersHandler := membersfeature.NewHandler(members, recorder, logger)
	settingsHandler := settingsfeature.NewHandler(settings, recorder, logger)
	invitesHandler := invitesfeature.NewHandler(invites, recorder, logger)
	rolesHandler := rolesfeature.NewHandler(roles, recorder, logger)
	auditHandler := auditfeature.NewHandler(audits, members, settings, roles, invites, recorder, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads the session identity into context when a
	// valid cookie is present. Role resolution and gating happen downstream.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	r.Get("/health", healthHandler.Serve)

	// The unauthenticated surface is throttled per client IP. Invite codes
	// are bearer credentials, so the probe gets the tighter window.
	authLimiter := ratelimit.New(15, time.Minute)
	probeLimiter := ratelimit.New(10, time.Minute)

	// Session and account endpoints. Signup self-gates through the invite
	// claim; login and logout need no role at all.
	r.Route("/auth", func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		loginHandler.MountRoutes(r)
		signupHandler.MountRoutes(r)
	})

	// Public invite validity probe, usable before an account exists.
	r.With(probeLimiter.Middleware).Get("/api/invites/{code}", invitesHandler.ServeValidate)

	// Everything below requires a signed-in identity with a role assignment.
	r.Route("/api", func(r chi.Router) {
		r.Use(resolver.Middleware)

		r.Route("/members", membersHandler.MountRoutes)
		r.Route("/settings", settingsHandler.MountRoutes)
		r.Route("/invites", invitesHandler.MountRoutes)
		r.Route("/roles", rolesHandler.MountRoutes)
		r.Route("/audit", auditHandler.MountRoutes)
	})

	return r, nil
}
