package sim

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cfoust/assetpacks/pkg/assetpack"
	"github.com/cfoust/assetpacks/pkg/assets"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mutex  sync.Mutex
	events []assetpack.StatusEvent
	done   chan struct{}
	want   int
}

func newRecorder(terminal int) *recorder {
	return &recorder{done: make(chan struct{}), want: terminal}
}

func (r *recorder) observe(event assetpack.StatusEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, event)
	if event.Status.Terminal() {
		r.want--
		if r.want == 0 {
			close(r.done)
		}
	}
}

func (r *recorder) wait(t *testing.T) []assetpack.StatusEvent {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pack statuses")
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]assetpack.StatusEvent(nil), r.events...)
}

func statuses(events []assetpack.StatusEvent, pack string) []assetpack.Status {
	out := make([]assetpack.Status, 0)
	for _, event := range events {
		if event.Pack == pack {
			out = append(out, event.Status)
		}
	}
	return out
}

func storeWith(t *testing.T, packs ...string) assets.Store {
	store := assets.FSStore(t.TempDir())
	for _, pack := range packs {
		data, err := assets.PackArchive([]assets.ArchiveFile{
			{Path: pack + "-b1.bundle", Data: []byte(pack)},
		})
		require.NoError(t, err)
		require.NoError(t, store.Set(context.Background(), pack+".zip", data))
	}
	return store
}

func TestInstall(t *testing.T) {
	install := t.TempDir()
	platform := New(context.Background(), Options{
		Target: true,
		Packs: []Pack{
			{Name: "custom"},
			{Name: "core", Core: true},
		},
		Store:       storeWith(t, "core", "custom"),
		InstallDir:  install,
		Parallelism: 1,
		Log:         zerolog.Nop(),
	})
	defer platform.Close()

	assert.True(t, platform.IsTarget())
	assert.False(t, platform.CoreDownloaded())
	assert.Equal(t, []string{"core", "custom"}, platform.PackNames())

	rec := newRecorder(2)
	platform.Download(platform.PackNames(), rec.observe)
	events := rec.wait(t)

	assert.Equal(t, []assetpack.Status{
		assetpack.StatusPending,
		assetpack.StatusDownloading,
		assetpack.StatusTransferring,
		assetpack.StatusCompleted,
	}, statuses(events, "core"))

	dir, ok := platform.PackPath("core")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(install, "core"), dir)

	data, err := os.ReadFile(filepath.Join(dir, "core-b1.bundle"))
	require.NoError(t, err)
	assert.Equal(t, "core", string(data))

	assert.True(t, platform.CoreDownloaded())
	assert.Empty(t, platform.PackNames())
}

func TestUnavailableAndCanceled(t *testing.T) {
	platform := New(context.Background(), Options{
		Target: true,
		Packs: []Pack{
			{Name: "missing"},
			{Name: "canceled", Cancel: true},
		},
		Store:      storeWith(t),
		InstallDir: t.TempDir(),
		Log:        zerolog.Nop(),
	})
	defer platform.Close()

	rec := newRecorder(3)
	platform.Download([]string{"missing", "canceled", "nobody"}, rec.observe)
	events := rec.wait(t)

	assert.Equal(t, assetpack.StatusUnknown, last(statuses(events, "missing")))
	assert.Equal(t, assetpack.StatusCanceled, last(statuses(events, "canceled")))
	assert.Equal(t, []assetpack.Status{assetpack.StatusUnknown}, statuses(events, "nobody"))

	_, ok := platform.PackPath("missing")
	assert.False(t, ok)
}

func TestCellular(t *testing.T) {
	platform := New(context.Background(), Options{
		Target:          true,
		Packs:           []Pack{{Name: "big", NeedsCellular: true}},
		Store:           storeWith(t, "big"),
		InstallDir:      t.TempDir(),
		CellularAllowed: true,
		Log:             zerolog.Nop(),
	})
	defer platform.Close()

	waiting := make(chan struct{})
	var once sync.Once
	rec := newRecorder(1)
	platform.Download([]string{"big"}, func(event assetpack.StatusEvent) {
		rec.observe(event)
		if event.Status == assetpack.StatusWaitingForNetwork {
			once.Do(func() { close(waiting) })
		}
	})

	<-waiting
	granted := make(chan bool, 1)
	platform.RequestCellularPermission(func(ok bool) { granted <- ok })
	assert.True(t, <-granted)

	events := rec.wait(t)
	assert.Equal(t, []assetpack.Status{
		assetpack.StatusPending,
		assetpack.StatusWaitingForNetwork,
		assetpack.StatusDownloading,
		assetpack.StatusTransferring,
		assetpack.StatusCompleted,
	}, statuses(events, "big"))
}

func TestCellularDenied(t *testing.T) {
	platform := New(context.Background(), Options{
		Target:     true,
		Packs:      []Pack{{Name: "big", NeedsCellular: true}},
		Store:      storeWith(t, "big"),
		InstallDir: t.TempDir(),
		Log:        zerolog.Nop(),
	})

	granted := make(chan bool, 1)
	platform.RequestCellularPermission(func(ok bool) { granted <- ok })
	assert.False(t, <-granted)

	rec := newRecorder(1)
	platform.Download([]string{"big"}, rec.observe)
	platform.Close()

	select {
	case <-rec.done:
		assert.Equal(t, assetpack.StatusCanceled, last(statuses(rec.events, "big")))
	case <-time.After(100 * time.Millisecond):
		// the forwarder may stop before the cancellation is published
	}
}

func TestAlreadyInstalled(t *testing.T) {
	platform := New(context.Background(), Options{
		Target: true,
		Packs:  []Pack{{Name: "core", Core: true}},
		Log:    zerolog.Nop(),
	})
	defer platform.Close()

	platform.MarkInstalled("core", "/data/packs/core")
	assert.True(t, platform.CoreDownloaded())

	rec := newRecorder(1)
	platform.Download([]string{"core"}, rec.observe)
	events := rec.wait(t)
	assert.Equal(t, []assetpack.Status{assetpack.StatusCompleted}, statuses(events, "core"))
}

func last(values []assetpack.Status) assetpack.Status {
	if len(values) == 0 {
		return assetpack.Status(-1)
	}
	return values[len(values)-1]
}
