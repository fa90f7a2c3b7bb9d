// internal/app/features/members/routes.go
package members

import "github.com/go-chi/chi/v5"

// MountRoutes mounts the member routes. The route group already requires a
// signed-in actor with a role; per-operation authorization happens in the
// handlers through the access policy.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeMember)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	r.Put("/{id}/marks", h.HandleSetMarks)
	r.Delete("/{id}/marks/{date}", h.HandleRemoveMark)
}
