// Package resolve maps bundle locations to the asset pack directory that
// currently holds them.
package resolve

import (
	"path/filepath"
	"strings"

	"github.com/cfoust/assetpacks/pkg/assets"
	"github.com/cfoust/assetpacks/pkg/loader"
	"github.com/cfoust/assetpacks/pkg/manifest"

	"github.com/repeale/fp-go/option"
)

// PathSource finds the on-device file for a bundle inside a pack.
type PathSource interface {
	Locate(pack string, fileName string) opt.Option[string]
}

// Table is the deployed source: pack name to download directory, as
// reported by the platform. A Table must not be modified once it has been
// handed to a Resolver.
type Table map[string]string

func (t Table) Locate(pack string, fileName string) opt.Option[string] {
	dir, ok := t[pack]
	if !ok || dir == "" {
		return opt.None[string]()
	}
	return opt.Some(filepath.Join(dir, fileName))
}

// Clone returns a copy that is safe to publish.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for pack, dir := range t {
		out[pack] = dir
	}
	return out
}

const PACK_SUFFIX = ".androidpack"

// Probe is the development source: bundles are looked for in the build
// output, under <Root>/<pack>.androidpack/<file>.
type Probe struct {
	Root string
}

func (p Probe) PackDir(pack string) string {
	return filepath.Join(p.Root, pack+PACK_SUFFIX)
}

func (p Probe) Locate(pack string, fileName string) opt.Option[string] {
	target := filepath.Join(p.PackDir(pack), fileName)
	if !assets.FileExists(target) {
		return opt.None[string]()
	}
	return opt.Some(target)
}

// FileName returns the last element of id, accepting both slash styles.
func FileName(id string) string {
	id = strings.ReplaceAll(id, "\\", "/")
	if i := strings.LastIndex(id, "/"); i != -1 {
		id = id[i+1:]
	}
	return id
}

// BundleName strips the directory and extension from id.
func BundleName(id string) string {
	name := FileName(id)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

type Resolver struct {
	index  *manifest.Index
	source PathSource
}

func New(index *manifest.Index, source PathSource) *Resolver {
	return &Resolver{
		index:  index,
		source: source,
	}
}

// Resolve returns the identifier the loader should open for location. It
// only reads immutable state and is safe to call from any goroutine.
func (r *Resolver) Resolve(location loader.Location) string {
	original := location.InternalID
	if location.Kind != loader.KindBundle {
		return original
	}

	entry := r.index.Lookup(BundleName(original))
	if opt.IsNone(entry) {
		return original
	}

	path := r.source.Locate(entry.Value.AssetPackName, FileName(original))
	if opt.IsNone(path) {
		return original
	}

	return path.Value
}

// Transform adapts Resolve to the loader's hook.
func (r *Resolver) Transform() loader.TransformFunc {
	return r.Resolve
}

var _ PathSource = (Table)(nil)
var _ PathSource = Probe{}
