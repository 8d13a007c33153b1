// Package web serves a built calendar frontend from disk.
package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type Server struct {
	Dir string
}

// Handler serves files from Dir. Unknown extensionless paths fall back to
// index.html so client-side routes survive a reload.
func (s *Server) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		clean := path.Clean("/" + r.URL.Path)
		if path.Ext(clean) == "" && !s.exists(clean) {
			http.ServeFile(w, r, filepath.Join(s.Dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}

func (s *Server) exists(urlPath string) bool {
	_, err := os.Stat(filepath.Join(s.Dir, filepath.FromSlash(strings.TrimPrefix(urlPath, "/"))))
	return err == nil
}
