package webui

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var files embed.FS

// Files returns the admin UI assets rooted at the dist directory.
func Files() fs.FS {
	sub, err := fs.Sub(files, "dist")
	if err != nil {
		panic(err)
	}
	return sub
}
