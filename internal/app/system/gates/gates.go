// Package gates provides per-handler authorization checks on top of the
// resolved actor. Route groups use authz.Resolver.Middleware for the
// signed-in-with-a-role requirement; gates are for handlers that need a
// minimum role beyond that, or an exact-role requirement like the revert
// endpoints. Resource-specific decisions that depend on the target row
// stay in the accesspolicy package.
package gates

import (
	"net/http"

	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/app/system/httpjson"
)

// Result carries the actor when a gate passes.
type Result struct {
	Actor authz.Actor
	OK    bool
}

// RequireActor ensures a resolved actor is present on the request. Without
// one the response is 401 and the handler must return.
func RequireActor(w http.ResponseWriter, r *http.Request) Result {
	actor, ok := authz.ActorCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return Result{OK: false}
	}
	return Result{Actor: actor, OK: true}
}

// RequireAtLeast ensures the actor holds min or higher. On refusal it
// writes a 403 with an insufficient_role reason.
func RequireAtLeast(w http.ResponseWriter, r *http.Request, min authz.Role) Result {
	res := RequireActor(w, r)
	if !res.OK {
		return res
	}
	if !res.Actor.Role.AtLeast(min) {
		httpjson.Error(w, faults.Denied("insufficient_role", "requires "+string(min)+" or higher"))
		return Result{OK: false}
	}
	return res
}

// RequireAdmin ensures the actor is exactly an admin. Used by the revert
// endpoints, where the admin check is repeated at execution time rather
// than trusted from any earlier decision.
func RequireAdmin(w http.ResponseWriter, r *http.Request) Result {
	res := RequireActor(w, r)
	if !res.OK {
		return res
	}
	if res.Actor.Role != authz.Admin {
		httpjson.Error(w, faults.Denied("insufficient_role", "requires admin"))
		return Result{OK: false}
	}
	return res
}
