package dist

import (
	"embed"
	"io/fs"
)

//go:embed index.html
var content embed.FS

// Content is the static web UI served at the root path.
var Content fs.FS = content
