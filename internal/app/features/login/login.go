// internal/app/features/login/login.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/brigadetools/paradebook/internal/app/system/auth"
	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/app/system/httpjson"
	"github.com/brigadetools/paradebook/internal/app/system/timeouts"
)

// MountRoutes mounts the session endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)
	r.Get("/me", h.ServeMe)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// HandleLogin verifies credentials and writes a session cookie. Wrong
// email and wrong password produce the identical response so the endpoint
// cannot be used to probe for accounts.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, faults.Validation("invalid login payload"))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		httpjson.Error(w, faults.Validation("email and password are required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		h.Log.Error("login: user lookup failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not verify credentials"))
		return
	}
	if user == nil {
		h.Log.Info("login failed: unknown email", zap.String("email", req.Email))
		h.rejectCredentials(w)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.Log.Info("login failed: wrong password", zap.String("user_id", user.ID.Hex()))
		h.rejectCredentials(w)
		return
	}

	su := auth.SessionUser{
		ID:    user.ID.Hex(),
		Name:  user.FullName,
		Email: user.Email,
	}
	if err := h.Sessions.SignIn(w, r, su); err != nil {
		h.Log.Error("login: session write failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not start session"))
		return
	}

	h.Log.Info("login success", zap.String("user_id", user.ID.Hex()))
	httpjson.OK(w, h.identity(ctx, su))
}

// HandleLogout clears the session.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Error("logout: session clear failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not end session"))
		return
	}
	httpjson.NoContent(w)
}

// ServeMe reports the signed-in identity and its current role. The role is
// resolved fresh on every call, so a revoked role shows up immediately and
// the SPA can force sign-out.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	httpjson.OK(w, h.identity(ctx, *user))
}

// rejectCredentials writes the single response used for every credential
// failure, keeping unknown-email indistinguishable from wrong-password.
func (h *Handler) rejectCredentials(w http.ResponseWriter) {
	httpjson.Respond(w, http.StatusUnauthorized, httpjson.ErrorBody{
		Kind:   "unauthorized",
		Detail: "invalid email or password",
	})
}

// identity resolves the role for a session user. No role leaves Role
// empty rather than failing, since the probe itself must still answer.
func (h *Handler) identity(ctx context.Context, u auth.SessionUser) meResponse {
	resp := meResponse{ID: u.ID, Name: u.Name, Email: u.Email}

	uid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return resp
	}
	role, err := h.Resolver.Resolve(ctx, uid)
	if err != nil {
		if !errors.Is(err, authz.ErrNoRole) {
			h.Log.Error("identity: role resolution failed", zap.Error(err), zap.String("user_id", u.ID))
		}
		return resp
	}
	resp.Role = string(role)
	return resp
}
