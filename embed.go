// Package postdeck provides embedded runtime resources.
package postdeck

import (
	"embed"
	"io/fs"
)

//go:embed templates/config.example.yaml
var rawTemplates embed.FS

// Templates is the embedded templates filesystem with the "templates/" prefix stripped.
var Templates = mustSub(rawTemplates, "templates")

// ExampleConfigName is the name of the annotated example config in Templates.
const ExampleConfigName = "config.example.yaml"

// ExampleConfig returns the annotated example config file.
func ExampleConfig() []byte {
	data, err := fs.ReadFile(Templates, ExampleConfigName)
	if err != nil {
		panic(err)
	}
	return data
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
