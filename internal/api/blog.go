package api

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/starford/inkwell/internal/content"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/postservice"
)

var blogTemplates = template.Must(template.New("layout").Parse(`
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}}</title>
</head>
<body>
{{end}}
{{define "foot"}}</body>
</html>
{{end}}
{{define "index"}}{{template "head" "Blog"}}<main>
<h1>Blog</h1>
<ul class="posts">
{{range .}}<li>
<a href="{{.Link}}">{{.Title}}</a> <time datetime="{{.Date.Format "2006-01-02"}}">{{.DateText}}</time>
{{if .Short}}<p>{{.Short}}</p>{{end}}
{{if .Tags}}<span class="tags">{{range .Tags}}<span class="tag">#{{.}}</span> {{end}}</span>{{end}}
</li>
{{end}}</ul>
</main>
{{template "foot"}}{{end}}
{{define "post"}}{{template "head" .Title}}<main>
<article>
<header>
<h1>{{.Title}}</h1>
<time datetime="{{.Front.Date.Format "2006-01-02"}}">{{.DateText}}</time>
</header>
{{.Body}}
</article>
<p><a href="/blog">All posts</a></p>
</main>
{{template "foot"}}{{end}}
`))

type postPage struct {
	*models.Post
	DateText string
	Body     template.HTML
}

// BlogHandler renders posts as HTML pages.
type BlogHandler struct {
	svc *postservice.Service
}

// NewBlogHandler creates a new BlogHandler.
func NewBlogHandler(svc *postservice.Service) *BlogHandler {
	return &BlogHandler{svc: svc}
}

// Index handles GET /blog: every published post, newest first.
func (h *BlogHandler) Index(w http.ResponseWriter, r *http.Request) {
	ix, err := h.svc.Index(r.Context())
	if err != nil {
		status, msg := statusFor(err)
		http.Error(w, msg, status)
		return
	}
	published := make([]models.PostSummary, 0, ix.Len())
	for _, e := range ix.Entries {
		if !e.Draft {
			published = append(published, e)
		}
	}
	h.render(w, "index", published)
}

// Post handles GET /blog/*. Drafts are served to anyone who knows the link.
func (h *BlogHandler) Post(w http.ResponseWriter, r *http.Request) {
	key := postKey(r)
	if key == "" {
		h.Index(w, r)
		return
	}
	p, err := h.svc.Post(r.Context(), key)
	if err != nil {
		status, msg := statusFor(err)
		if status != http.StatusNotFound {
			slog.Error("blog post failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		http.Error(w, msg, status)
		return
	}
	w.Header().Set("ETag", `"`+p.Checksum+`"`)
	h.render(w, "post", postPage{
		Post:     p,
		DateText: p.Front.Date.Format(content.DateTextLayout),
		// Rendered by goldmark with raw HTML disabled.
		Body: template.HTML(p.HTML), //nolint:gosec
	})
}

func (h *BlogHandler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := blogTemplates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("blog render failed", slog.String("template", name), slog.String("error", err.Error()))
	}
}
