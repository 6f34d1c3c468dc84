package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/postservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *postservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *postservice.Service) *Handler {
	return &Handler{svc: svc}
}

// postKey extracts the post key from the wildcard part of the URL.
// Supports encoded slashes from API clients (e.g. posts%2Fhello.md).
func postKey(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListPosts handles GET /api/posts.
//
//	@Summary		List the post index, newest first
//	@Tags			posts
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			drafts	query		bool	false	"Include drafts"
//	@Param			match	query		string	false	"Fuzzy title filter"
//	@Success		200		{object}	postservice.ListResult
//	@Security		BearerAuth
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	drafts, _ := strconv.ParseBool(q.Get("drafts"))

	res, err := h.svc.ListPosts(r.Context(), postservice.ListOptions{
		Tag:    q.Get("tag"),
		Drafts: drafts,
		Match:  q.Get("match"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, "list posts", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetPost handles GET /api/posts/*.
//
//	@Summary		Get a single post by key
//	@Tags			posts
//	@Produce		json
//	@Param			key				path		string	true	"Post key"
//	@Param			If-None-Match	header		string	false	"Checksum from a previous ETag"
//	@Success		200				{object}	postservice.PostDetail
//	@Success		304				"Not modified"
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts/{key} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	key := postKey(r)
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
		return
	}
	post, err := h.svc.GetPost(r.Context(), key)
	if err != nil {
		writeError(w, "get post", err, "key", key)
		return
	}

	etag := `"` + post.Checksum + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Trim(match, `"`) == post.Checksum {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across posts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	map[string][]search.Result
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, "query", q)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Find handles GET /api/find.
//
//	@Summary		Fuzzy-find posts by title or key
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Pattern"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	map[string][]postservice.Match
//	@Security		BearerAuth
//	@Router			/find [get]
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	matches, err := h.svc.Find(r.Context(), q, limit)
	if err != nil {
		writeError(w, "find", err, "query", q)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matches": matches,
	})
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List posts linking to a post
//	@Tags			posts
//	@Produce		json
//	@Param			key	path		string	true	"Post key"
//	@Success		200	{object}	map[string][]string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{key} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	key := postKey(r)
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), key)
	if err != nil {
		writeError(w, "backlinks", err, "key", key)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"key":       key,
		"backlinks": bl,
	})
}
