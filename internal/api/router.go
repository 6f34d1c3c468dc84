package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/postservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *postservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/posts", h.ListPosts)
	r.Get("/posts/*", h.GetPost)
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/search", h.Search)
	r.Get("/find", h.Find)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// NewSiteRouter creates the public router for rendered pages and assets.
// assets may be nil to disable /assets.
func NewSiteRouter(svc *postservice.Service, assets *AssetHandler) chi.Router {
	bh := NewBlogHandler(svc)

	r := chi.NewRouter()
	r.Get("/blog", bh.Index)
	r.Get("/blog/*", bh.Post)
	if assets != nil {
		r.Get("/assets/*", assets.ServeFile)
	}
	return r
}
