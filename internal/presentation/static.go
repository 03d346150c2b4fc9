package presentation

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed web/*
var webFS embed.FS

// MountStatic serves the embedded dashboard page. API routes must be
// registered first so they win over the file server.
func MountStatic(r chi.Router) {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFileFS(w, r, sub, "index.html")
	})
	r.Mount("/assets", http.StripPrefix("/assets", http.FileServer(http.FS(sub))))
}
