// internal/app/features/signup/handler.go
package signup

import (
	"github.com/brigadetools/paradebook/internal/app/store/invites"
	"github.com/brigadetools/paradebook/internal/app/store/roles"
	"github.com/brigadetools/paradebook/internal/app/store/users"
	"github.com/brigadetools/paradebook/internal/app/system/auth"
	"go.uber.org/zap"
)

// Handler owns account creation through invite codes.
type Handler struct {
	Users    *users.Store
	Roles    *roles.Store
	Invites  *invites.Store
	Sessions *auth.SessionManager
	Log      *zap.Logger
}

// NewHandler constructs a signup Handler.
func NewHandler(userStore *users.Store, roleStore *roles.Store, inviteStore *invites.Store, sessions *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userStore,
		Roles:    roleStore,
		Invites:  inviteStore,
		Sessions: sessions,
		Log:      logger,
	}
}
