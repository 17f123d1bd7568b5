package syntax

import (
	"embed"
	"io/fs"
)

//go:embed builtin
var builtinFS embed.FS

// Builtin returns the definitions shipped with the package.
func Builtin() fs.FS {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewDefaultRegistry returns a registry holding the built-in definitions.
func NewDefaultRegistry(opts ...RegistryOption) (*Registry, error) {
	r := NewRegistry(opts...)
	if err := r.RegisterFS(Builtin()); err != nil {
		return nil, err
	}
	return r, nil
}
