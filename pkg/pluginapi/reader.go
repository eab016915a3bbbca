// Package pluginapi is the stable contract between the viewer host and reader
// plugins. Plugins import only this package and pkg/imagestack.
package pluginapi

import (
	"context"
	"fmt"
	"strings"

	"nwbview/pkg/imagestack"
)

// Paths is the path argument handed to detectors and readers. A single file
// is a one-element list.
type Paths []string

// PathOf wraps a single path.
func PathOf(path string) Paths { return Paths{path} }

// First returns the first path, or "" for an empty list.
func (p Paths) First() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// LayerKind names the host layer type a LayerData populates.
type LayerKind string

// LayerImage is the only kind NWB readers produce.
const LayerImage LayerKind = "image"

// LayerData is one (data, options, kind) tuple returned by a reader.
type LayerData struct {
	Data    *imagestack.Stack
	Options map[string]any
	Kind    LayerKind
}

// ReaderFunc reads the paths a detector accepted.
type ReaderFunc func(ctx context.Context, paths Paths) ([]LayerData, error)

// GetReaderFunc decides whether a reader can handle paths. It returns nil
// when it cannot, and must not perform I/O.
type GetReaderFunc func(paths Paths) ReaderFunc

// Reader is a reader contribution registered by a plugin.
type Reader struct {
	Name       string
	Extensions []string
	GetReader  GetReaderFunc
}

// Validate checks the contribution is usable by the host.
func (r Reader) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("reader name required")
	}
	if r.GetReader == nil {
		return fmt.Errorf("reader %s: GetReader required", r.Name)
	}
	for _, ext := range r.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("reader %s: extension %q must start with '.'", r.Name, ext)
		}
	}
	return nil
}

// HasSuffix reports whether the first path ends with one of exts. It is the
// usual building block for a GetReaderFunc.
func (p Paths) HasSuffix(exts ...string) bool {
	first := p.First()
	for _, ext := range exts {
		if ext != "" && strings.HasSuffix(first, ext) {
			return true
		}
	}
	return false
}
