package middleware

import (
	"bytes"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

// Static serves files from fsys. With spaFallback, paths that do not name a file are answered
// with index.html so client-side routes such as /configuration/KC_SNK/ load the page.
func Static(fsys fs.FS, spaFallback bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}
		if !fs.ValidPath(name) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		data, info, err := readFile(fsys, name)
		if err != nil && spaFallback {
			name = "index.html"
			data, info, err = readFile(fsys, name)
		}
		if err != nil {
			http.NotFound(w, r)
			return
		}

		setContentType(w, name)
		http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(data))
	})
}

func readFile(fsys fs.FS, name string) ([]byte, fs.FileInfo, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return nil, nil, fs.ErrNotExist
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}

func setContentType(w http.ResponseWriter, name string) {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
}
