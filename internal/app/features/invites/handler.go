// internal/app/features/invites/handler.go
package invites

import (
	invitestore "github.com/brigadetools/paradebook/internal/app/store/invites"
	"github.com/brigadetools/paradebook/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler owns invite issuance, listing, revocation, and the public
// validity probe used by the signup page.
type Handler struct {
	Invites  *invitestore.Store
	Recorder *auditlog.Recorder
	Log      *zap.Logger
}

// NewHandler constructs an invites Handler.
func NewHandler(store *invitestore.Store, recorder *auditlog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{Invites: store, Recorder: recorder, Log: logger}
}
