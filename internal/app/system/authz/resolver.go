package authz

import (
	"context"
	"errors"
	"net/http"

	"github.com/brigadetools/paradebook/internal/app/store/roles"
	"github.com/brigadetools/paradebook/internal/app/system/auth"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/app/system/httpjson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrNoRole is returned when an identity has no role assignment at all.
// Callers must treat this as "deny everything", never as the lowest role.
// It is distinct from infrastructure failures so an outage is not mistaken
// for a missing assignment.
var ErrNoRole = errors.New("no role assigned")

// Actor is the resolved caller of a request: a trusted identity plus the
// role its assignment row grants.
type Actor struct {
	UserID primitive.ObjectID
	Email  string
	Role   Role
}

type ctxKey string

const actorKey ctxKey = "actor"

// ActorCtx returns the resolved actor placed in context by
// Resolver.Middleware, and a found flag.
func ActorCtx(r *http.Request) (Actor, bool) {
	a, ok := r.Context().Value(actorKey).(Actor)
	return a, ok
}

// WithActor injects an actor into the request context. Exposed for handler
// tests; production requests go through Resolver.Middleware.
func WithActor(r *http.Request, a Actor) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), actorKey, a))
}

// Resolver maps authenticated identities to roles via the role-assignment
// store. It is a pure lookup with no side effects.
type Resolver struct {
	roles *roles.Store
	log   *zap.Logger
}

// NewResolver creates a Resolver backed by the given role-assignment store.
func NewResolver(store *roles.Store, logger *zap.Logger) *Resolver {
	return &Resolver{roles: store, log: logger}
}

// Resolve returns the role assigned to userID, ErrNoRole when no assignment
// exists, or the store error when the lookup itself failed.
func (rv *Resolver) Resolve(ctx context.Context, userID primitive.ObjectID) (Role, error) {
	ra, err := rv.roles.GetByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if ra == nil {
		return "", ErrNoRole
	}
	role, err := Parse(ra.Role)
	if err != nil {
		// A malformed role in storage is a data defect, not a missing
		// assignment. Fail closed but surface it as infrastructure.
		rv.log.Error("malformed role in assignment row",
			zap.String("user_id", userID.Hex()),
			zap.String("role", ra.Role))
		return "", err
	}
	return role, nil
}

// Middleware requires a signed-in identity with a role assignment, and
// stores the resolved Actor in the request context. An identity without a
// role gets 403 with a no_role reason (the SPA forces sign-out on it);
// a store failure gets 503 so outages are never reported as denials.
func (rv *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.CurrentUser(r)
		if !ok {
			httpjson.Unauthorized(w)
			return
		}
		uid, err := primitive.ObjectIDFromHex(user.ID)
		if err != nil {
			// Session corruption; fail closed.
			httpjson.Unauthorized(w)
			return
		}

		role, err := rv.Resolve(r.Context(), uid)
		if errors.Is(err, ErrNoRole) {
			httpjson.Error(w, faults.Denied("no_role", "no role is assigned to this account"))
			return
		}
		if err != nil {
			rv.log.Error("role resolution failed", zap.Error(err), zap.String("user_id", user.ID))
			httpjson.Error(w, faults.Infra(err, "could not resolve role"))
			return
		}

		next.ServeHTTP(w, WithActor(r, Actor{UserID: uid, Email: user.Email, Role: role}))
	})
}
