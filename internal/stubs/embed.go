package stubs

import (
	"embed"
	"io/fs"
)

//go:embed all:typeshed
var typeshed embed.FS

// EmbeddedFS returns the builtin stubs shipped with the binary.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(typeshed, "typeshed")
	if err != nil {
		panic(err)
	}
	return sub
}
