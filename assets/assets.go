package assets

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var files embed.FS

// EmailTemplates holds the `.txt` & `.gohtml` email templates.
func EmailTemplates() fs.FS {
	sub, err := fs.Sub(files, "templates/email")
	if err != nil {
		panic(err) // embedded path is fixed at build time
	}
	return sub
}
