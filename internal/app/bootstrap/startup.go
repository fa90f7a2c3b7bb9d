// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	rolestore "github.com/brigadetools/paradebook/internal/app/store/roles"
	settingsstore "github.com/brigadetools/paradebook/internal/app/store/settings"
	userstore "github.com/brigadetools/paradebook/internal/app/store/users"
	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It seeds
// the per-section settings documents and, when configured, performs the
// break-glass admin grant.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := seedSectionSettings(ctx, deps, logger); err != nil {
		return err
	}
	return bootstrapAdmin(ctx, appCfg, deps, logger)
}

// seedSectionSettings creates the settings document for each section that
// does not have one yet, so captains see defaults instead of an empty page.
func seedSectionSettings(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	store := settingsstore.New(deps.MongoDatabase)

	for _, section := range []models.Section{models.SectionCompany, models.SectionJunior} {
		exists, err := store.Exists(ctx, section)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		settings := models.SectionSettings{
			Section:    section,
			MeetingDay: models.DefaultMeetingDay,
		}
		if err := store.Save(ctx, section, settings); err != nil {
			return err
		}
		logger.Info("seeded default section settings", zap.String("section", string(section)))
	}
	return nil
}

// bootstrapAdmin grants the admin role to the configured account if that
// account exists and has no role assignment. An account that already holds
// any role is left alone: this path recovers a lost admin, it never
// escalates a live one.
func bootstrapAdmin(ctx context.Context, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.BootstrapAdminEmail == "" {
		return nil
	}

	users := userstore.New(deps.MongoDatabase)
	roles := rolestore.New(deps.MongoDatabase)

	u, err := users.GetByEmail(ctx, appCfg.BootstrapAdminEmail)
	if err != nil {
		return err
	}
	if u == nil {
		logger.Warn("bootstrap admin email has no account; skipping",
			zap.String("email", appCfg.BootstrapAdminEmail))
		return nil
	}

	existing, err := roles.GetByUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Info("bootstrap admin already holds a role; skipping",
			zap.String("email", u.Email),
			zap.String("role", existing.Role))
		return nil
	}

	ra := &models.RoleAssignment{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(authz.Admin),
	}
	if err := roles.Create(ctx, ra); err != nil {
		return err
	}
	logger.Info("granted bootstrap admin role", zap.String("email", u.Email))
	return nil
}
