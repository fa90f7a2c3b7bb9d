// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/brigadetools/paradebook/internal/app/store/audit"
	"github.com/brigadetools/paradebook/internal/app/store/invites"
	"github.com/brigadetools/paradebook/internal/app/store/members"
	"github.com/brigadetools/paradebook/internal/app/store/roles"
	settingsstore "github.com/brigadetools/paradebook/internal/app/store/settings"
	sysauditlog "github.com/brigadetools/paradebook/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler owns the audit log endpoints: redacted browsing for captains,
// full entries and revert execution for admins. Reverting needs write
// access to every store an audited action can touch.
type Handler struct {
	Audit    *audit.Store
	Members  *members.Store
	Settings *settingsstore.Store
	Roles    *roles.Store
	Invites  *invites.Store
	Recorder *sysauditlog.Recorder
	Log      *zap.Logger
}

// NewHandler constructs an auditlog Handler.
func NewHandler(auditStore *audit.Store, memberStore *members.Store, settingsStore *settingsstore.Store, roleStore *roles.Store, inviteStore *invites.Store, recorder *sysauditlog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:    auditStore,
		Members:  memberStore,
		Settings: settingsStore,
		Roles:    roleStore,
		Invites:  inviteStore,
		Recorder: recorder,
		Log:      logger,
	}
}
