package api

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/starford/inkwell/internal/storage"
)

// AssetHandler serves the non-post files of the content tree (images and
// other attachments) read-only. Post sources and ignored files are hidden.
type AssetHandler struct {
	tree  *storage.Tree
	match *storage.Matcher
}

// NewAssetHandler creates a handler over tree. match is the matcher the
// tree was built with; nil serves every file.
func NewAssetHandler(tree *storage.Tree, match *storage.Matcher) *AssetHandler {
	return &AssetHandler{tree: tree, match: match}
}

// ServeFile handles GET /assets/*.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key := postKey(r)
	if key == "" || h.match.Ignored(key) || (h.match != nil && h.match.Accepts(key)) {
		http.NotFound(w, r)
		return
	}
	abs, err := h.tree.Abs(key)
	if err != nil {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	info, err := h.tree.Stat(key)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.ServeFile(w, r, abs)
}
