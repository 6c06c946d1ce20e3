package catalog

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed defaults/*.yaml
var defaultFS embed.FS

// Default returns the built-in catalog: the four classic heroes, the arena
// roster and its encounters.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(defaultFS, "defaults")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// Load returns the catalog in dir, or the built-in catalog when dir is empty.
func Load(dir string) (*Catalog, error) {
	if dir == "" {
		return Default()
	}
	return LoadFS(os.DirFS(dir))
}
