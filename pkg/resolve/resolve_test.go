package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cfoust/assetpacks/pkg/loader"
	"github.com/cfoust/assetpacks/pkg/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *manifest.Index {
	m, err := manifest.Parse([]byte(`{"Entries":[
		{"AssetPackName":"p1","AssetBundles":["b1","b2"]},
		{"AssetPackName":"p2","AssetBundles":["b3"]}
	]}`))
	require.NoError(t, err)
	return manifest.NewIndex(m)
}

func bundle(id string) loader.Location {
	return loader.Location{InternalID: id, Kind: loader.KindBundle}
}

func TestBundleName(t *testing.T) {
	assert.Equal(t, "b1", BundleName("jar:file:///base.apk!/assets/aa/Android/b1.bundle"))
	assert.Equal(t, "b1", BundleName(`C:\build\aa\b1.bundle`))
	assert.Equal(t, "b1", BundleName("b1"))
	assert.Equal(t, "b1.bundle", FileName("aa/b1.bundle"))
}

func TestTable(t *testing.T) {
	resolver := New(testIndex(t), Table{"p1": "/data/packs/p1"})

	assert.Equal(
		t,
		"/data/packs/p1/b1.bundle",
		resolver.Resolve(bundle("jar:file:///base.apk!/assets/aa/Android/b1.bundle")),
	)

	// p2 has not been downloaded
	assert.Equal(t, "aa/b3.bundle", resolver.Resolve(bundle("aa/b3.bundle")))

	// not in the manifest
	assert.Equal(t, "aa/other.bundle", resolver.Resolve(bundle("aa/other.bundle")))
}

func TestNonBundleKinds(t *testing.T) {
	resolver := New(testIndex(t), Table{"p1": "/data/packs/p1", "p2": "/data/packs/p2"})

	for _, kind := range []loader.Kind{loader.KindAsset, loader.KindScene, loader.KindCatalog} {
		location := loader.Location{InternalID: "aa/b1.bundle", Kind: kind}
		assert.Equal(t, "aa/b1.bundle", resolver.Resolve(location), kind.String())
	}
}

func TestEveryManifestBundle(t *testing.T) {
	index := testIndex(t)
	table := Table{"p1": "/data/packs/p1", "p2": "/data/packs/p2"}
	resolver := New(index, table)

	for _, name := range []string{"b1", "b2", "b3"} {
		entry := index.Lookup(name).Value
		resolved := resolver.Resolve(bundle("aa/Android/" + name + ".bundle"))
		rel, err := filepath.Rel(table[entry.AssetPackName], resolved)
		require.NoError(t, err)
		assert.Equal(t, name+".bundle", rel)
	}
}

func TestProbe(t *testing.T) {
	root := t.TempDir()
	probe := Probe{Root: root}
	resolver := New(testIndex(t), probe)

	assert.Equal(t, "aa/b1.bundle", resolver.Resolve(bundle("aa/b1.bundle")))

	require.NoError(t, os.MkdirAll(probe.PackDir("p1"), 0755))
	target := filepath.Join(root, "p1.androidpack", "b1.bundle")
	require.NoError(t, os.WriteFile(target, []byte{}, 0644))

	assert.Equal(t, target, resolver.Resolve(bundle("aa/b1.bundle")))
	assert.Equal(t, "aa/b2.bundle", resolver.Resolve(bundle("aa/b2.bundle")))
}

func TestNilIndex(t *testing.T) {
	resolver := New(nil, Table{"p1": "/data/packs/p1"})
	assert.Equal(t, "aa/b1.bundle", resolver.Resolve(bundle("aa/b1.bundle")))
}

func TestConcurrentResolve(t *testing.T) {
	resolver := New(testIndex(t), Table{"p1": "/data/packs/p1"})
	transform := resolver.Transform()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got := transform(bundle(fmt.Sprintf("aa/b%d.bundle", 1+(i+j)%3)))
				assert.NotEmpty(t, got)
			}
		}(i)
	}
	wg.Wait()
}

func TestClone(t *testing.T) {
	table := Table{"p1": "/a"}
	clone := table.Clone()
	table["p1"] = "/b"
	assert.Equal(t, "/a", clone["p1"])
}
