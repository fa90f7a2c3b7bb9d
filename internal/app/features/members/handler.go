// internal/app/features/members/handler.go
package members

import (
	"github.com/brigadetools/paradebook/internal/app/store/members"
	"github.com/brigadetools/paradebook/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler owns the member roll: profiles and parade-night marks.
type Handler struct {
	Members  *members.Store
	Recorder *auditlog.Recorder
	Log      *zap.Logger
}

// NewHandler constructs a members Handler.
func NewHandler(memberStore *members.Store, recorder *auditlog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		Members:  memberStore,
		Recorder: recorder,
		Log:      logger,
	}
}
