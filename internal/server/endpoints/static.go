package endpoints

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/web"
)

// StaticEndpoint serves the embedded upload page and its assets. It is
// registered last so every more specific route wins.
type StaticEndpoint struct{}

func (e *StaticEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/{path...}", e.handler
}

func (e *StaticEndpoint) RequiresInit() bool { return false }

func (e *StaticEndpoint) Command(_ func() string) *cobra.Command { return nil }

func (e *StaticEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	assets, err := web.DistFS()
	if err != nil {
		http.Error(w, "upload page not available", http.StatusInternalServerError)
		return
	}

	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	switch {
	case name == "" || name == ".":
		name = "index.html"
	case path.Ext(name) == "":
		// Page links such as /report/<id> land on the upload page.
		name = "index.html"
	}

	if _, err := fs.Stat(assets, name); err != nil {
		http.NotFound(w, r)
		return
	}
	if name == "index.html" {
		w.Header().Set("Cache-Control", "no-cache")
	}
	http.ServeFileFS(w, r, assets, name)
}
