// internal/app/features/login/handler.go
package login

import (
	"github.com/brigadetools/paradebook/internal/app/store/users"
	"github.com/brigadetools/paradebook/internal/app/system/auth"
	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"go.uber.org/zap"
)

// Handler owns the session endpoints: sign in, sign out, and the
// current-identity probe the SPA calls on load.
type Handler struct {
	Users    *users.Store
	Resolver *authz.Resolver
	Sessions *auth.SessionManager
	Log      *zap.Logger
}

// NewHandler constructs a login Handler.
func NewHandler(userStore *users.Store, resolver *authz.Resolver, sessions *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userStore,
		Resolver: resolver,
		Sessions: sessions,
		Log:      logger,
	}
}
