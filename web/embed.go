// Package web holds the upload page served at / by mediscan serve.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var dist embed.FS

// DistFS returns the page assets rooted at dist/, so index.html is at the top.
func DistFS() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
