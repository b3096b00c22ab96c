// Package templates provides the Swift sources staged into the widget
// extension. The default bundle is compiled into the binary; a directory
// with the same layout can replace it.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Artifact paths, relative to the bundle root.
const (
	AttributesFile = "DinamicIslandActivityAttributes.swift"
	WidgetFile     = "Widgets/DinamicIslandWidget.swift"
	BundleFile     = "Widgets/DinamicIslandWidgetBundle.swift"
)

// Artifacts lists every file a bundle must contain, in staging order.
var Artifacts = []string{AttributesFile, WidgetFile, BundleFile}

//go:embed files
var embedded embed.FS

// Bundle is a readable set of template files.
type Bundle struct {
	fsys   fs.FS
	source string
	// dir is the bundle root on disk, empty for the embedded bundle.
	dir string
}

// Default returns the embedded bundle.
func Default() *Bundle {
	sub, err := fs.Sub(embedded, "files")
	if err != nil {
		panic(err)
	}
	return &Bundle{fsys: sub, source: "embedded"}
}

// Open returns the bundle rooted at dir, which must be an existing directory.
func Open(dir string) (*Bundle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	b := FromFS(os.DirFS(dir), dir)
	b.dir = dir
	return b, nil
}

// FromFS wraps an arbitrary file system.
func FromFS(fsys fs.FS, source string) *Bundle {
	return &Bundle{fsys: fsys, source: source}
}

// Path returns where the artifact name lives: a file path for bundles
// opened from disk, the bundle-relative name otherwise.
func (b *Bundle) Path(name string) string {
	if b.dir == "" {
		return name
	}
	return filepath.Join(b.dir, filepath.FromSlash(name))
}

// Source describes where the bundle was loaded from.
func (b *Bundle) Source() string {
	return b.source
}

// Read returns the content of the artifact at name.
func (b *Bundle) Read(name string) ([]byte, error) {
	return fs.ReadFile(b.fsys, name)
}

// Missing returns the artifacts the bundle does not contain.
func (b *Bundle) Missing() []string {
	var missing []string
	for _, name := range Artifacts {
		info, err := fs.Stat(b.fsys, name)
		if err != nil || info.IsDir() {
			missing = append(missing, name)
		}
	}
	return missing
}

// ErrIncomplete is returned by Verify when artifacts are missing.
var ErrIncomplete = errors.New("template bundle is incomplete")

// Verify checks that every artifact is present.
func (b *Bundle) Verify() error {
	if missing := b.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s is missing %v", ErrIncomplete, b.source, missing)
	}
	return nil
}
