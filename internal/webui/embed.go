// Package webui embeds the landing page served at the root of the users API.
// The embedded filesystem is rooted at "static/" and holds index.html,
// script.js and style.css.
package webui

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed static
var staticFS embed.FS

// Assets returns the embedded landing page rooted so that index.html is at
// the top level.
func Assets() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The directory is embedded at compile time.
		panic(err)
	}
	return sub
}

// Open returns the assets in dir when set, the embedded ones otherwise. A
// directory override must contain index.html.
func Open(dir string) (fs.FS, error) {
	if dir == "" {
		return Assets(), nil
	}
	fsys := os.DirFS(dir)
	if _, err := fs.Stat(fsys, "index.html"); err != nil {
		return nil, err
	}
	return fsys, nil
}
