// Package loader is the surface the content loader exposes to initializers:
// resource locations, a global internal-id transform and a provider registry.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
)

type Kind int

const (
	KindAsset Kind = iota
	KindBundle
	KindScene
	KindCatalog
)

func (k Kind) String() string {
	switch k {
	case KindAsset:
		return "asset"
	case KindBundle:
		return "bundle"
	case KindScene:
		return "scene"
	case KindCatalog:
		return "catalog"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Location is a resource the loader is about to open.
type Location struct {
	// InternalID is the logical identifier, usually a path or URL ending in
	// the bundle file name.
	InternalID string
	Kind       Kind
	ProviderID string
}

// TransformFunc maps a location to the identifier that should actually be
// opened. It is called from arbitrary goroutines.
type TransformFunc func(Location) string

type Provider interface {
	ID() string
	Open(ctx context.Context, location Location) (io.ReadCloser, error)
}

type Loader struct {
	transform atomic.Pointer[TransformFunc]

	providers map[string]Provider
	mutex     deadlock.RWMutex
}

func New() *Loader {
	return &Loader{
		providers: make(map[string]Provider),
	}
}

// SetTransform installs the global internal-id transform. A nil function
// restores the identity transform.
func (l *Loader) SetTransform(transform TransformFunc) {
	if transform == nil {
		l.transform.Store(nil)
		return
	}
	l.transform.Store(&transform)
}

// InternalID returns the identifier to open for location.
func (l *Loader) InternalID(location Location) string {
	transform := l.transform.Load()
	if transform == nil {
		return location.InternalID
	}
	return (*transform)(location)
}

// RegisterProvider adds or replaces the provider with the same ID.
func (l *Loader) RegisterProvider(provider Provider) {
	l.mutex.Lock()
	l.providers[provider.ID()] = provider
	l.mutex.Unlock()
}

func (l *Loader) Provider(id string) (Provider, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	provider, ok := l.providers[id]
	return provider, ok
}

// Open hands location to its provider.
func (l *Loader) Open(ctx context.Context, location Location) (io.ReadCloser, error) {
	provider, ok := l.Provider(location.ProviderID)
	if !ok {
		return nil, fmt.Errorf("no provider registered for %q", location.ProviderID)
	}
	return provider.Open(ctx, location)
}

const BUNDLE_PROVIDER = "assetpack.bundle"

// BundleProvider opens bundles from the filesystem after running them
// through the loader's transform.
type BundleProvider struct {
	loader *Loader
}

func NewBundleProvider(loader *Loader) *BundleProvider {
	return &BundleProvider{loader: loader}
}

func (b *BundleProvider) ID() string {
	return BUNDLE_PROVIDER
}

func (b *BundleProvider) Open(ctx context.Context, location Location) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(b.loader.InternalID(location))
}

var _ Provider = (*BundleProvider)(nil)
