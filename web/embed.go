// Package web holds the console's templates and browser assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var content embed.FS

// Templates returns the template tree rooted at templates/.
func Templates() (fs.FS, error) {
	return fs.Sub(content, "templates")
}

// Static returns the asset tree served under /static/.
func Static() (fs.FS, error) {
	return fs.Sub(content, "static")
}
