package service

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticHandler serves the built frontend. Unknown paths without an
// extension fall back to index.html so client-side routes work on reload.
type StaticHandler struct {
	dir string
}

// NewStaticHandler serves files from dir.
func NewStaticHandler(dir string) *StaticHandler {
	return &StaticHandler{dir: dir}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	urlPath := path.Clean("/" + r.URL.Path)
	switch {
	case urlPath == "/":
		urlPath = "/index.html"
	case urlPath == "/offline":
		urlPath = "/offline.html"
	}

	if urlPath == "/sw.js" {
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Service-Worker-Allowed", "/")
	}

	if h.serveFile(w, r, urlPath) {
		return
	}

	// Missing assets are a plain 404; the offline page stands in for those under /offline
	if path.Ext(urlPath) != "" {
		if strings.HasPrefix(urlPath, "/offline/") && h.serveFile(w, r, "/offline.html") {
			return
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	if !h.serveFile(w, r, "/index.html") {
		slog.Warn("index.html not found", "dir", h.dir)
		http.NotFound(w, r)
	}
}

// serveFile writes the file at urlPath and reports whether it exists.
// ServeContent is used instead of ServeFile, which redirects /index.html to /.
func (h *StaticHandler) serveFile(w http.ResponseWriter, r *http.Request, urlPath string) bool {
	f, err := os.Open(filepath.Join(h.dir, filepath.FromSlash(urlPath)))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Error("Failed to open static file", "path", urlPath, "error", err)
		}
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}
