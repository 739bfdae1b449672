package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"provisionr/infra/webui"
)

func (a *API) staticHandler() (http.Handler, error) {
	fileSystem, err := staticFileSystem(a.config.StaticDir)
	if err != nil {
		return nil, fmt.Errorf("prepare static filesystem: %w", err)
	}
	files := http.FileServer(http.FS(fileSystem))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			respondError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		// http.FS rejects names that are not valid io/fs paths, so cleaning
		// here is enough to keep requests inside the root.
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}
		info, err := fs.Stat(fileSystem, name)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}), nil
}

func staticFileSystem(dir string) (fs.FS, error) {
	if dir == "" {
		return webui.Files(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static path %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}
