package packinit

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/cfoust/assetpacks/pkg/assetpack"
	"github.com/cfoust/assetpacks/pkg/config"
	"github.com/cfoust/assetpacks/pkg/loader"
	"github.com/cfoust/assetpacks/pkg/manifest"
	"github.com/cfoust/assetpacks/pkg/resolve"

	"github.com/repeale/fp-go"
	"github.com/rs/zerolog"
	"github.com/sasha-s/go-deadlock"
)

type State int

const (
	StateStart State = iota
	StateCheckCoreStatus
	StateAwaitDownload
	StateFetchManifest
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateCheckCoreStatus:
		return "check-core-status"
	case StateAwaitDownload:
		return "await-download"
	case StateFetchManifest:
		return "fetch-manifest"
	case StateComplete:
		return "complete"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// event is something a platform callback reported while the machine waits.
type event interface {
	isEvent()
}

type statusEvent struct {
	assetpack.StatusEvent
}

type permissionEvent struct {
	granted bool
}

func (statusEvent) isEvent()     {}
func (permissionEvent) isEvent() {}

// machine is one initialization run. Only the run goroutine touches its
// fields; callbacks reach it through the event queue.
type machine struct {
	options Options
	log     zerolog.Logger

	state   State
	trace   []State
	warning *Warning

	pending             map[string]struct{}
	paths               resolve.Table
	permissionRequested bool

	resolver *resolve.Resolver

	// queue is unbounded so callbacks never wait on the run goroutine,
	// even when a platform invokes them from inside Download.
	queueMutex deadlock.Mutex
	queue      []event
	finished   bool
	notify     chan struct{}
}

func newMachine(options Options) *machine {
	return &machine{
		options: options,
		log:     options.Log,
		state:   StateStart,
		pending: make(map[string]struct{}),
		paths:   make(resolve.Table),
		notify:  make(chan struct{}, 1),
	}
}

func (m *machine) to(next State) {
	m.log.Debug().
		Str("from", m.state.String()).
		Str("to", next.String()).
		Msg("initialization transition")
	m.state = next
}

func (m *machine) fail(warning *Warning) {
	m.warning = warning
	m.to(StateComplete)
}

// post delivers a callback to the run goroutine without blocking.
// Callbacks that arrive after the run completed are dropped.
func (m *machine) post(e event) {
	m.queueMutex.Lock()
	if m.finished {
		m.queueMutex.Unlock()
		return
	}
	m.queue = append(m.queue, e)
	m.queueMutex.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *machine) next() (event, bool) {
	m.queueMutex.Lock()
	defer m.queueMutex.Unlock()

	if len(m.queue) == 0 {
		return nil, false
	}
	e := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return e, true
}

func (m *machine) finish() {
	m.queueMutex.Lock()
	m.finished = true
	m.queue = nil
	m.queueMutex.Unlock()
}

func (m *machine) onPackStatus(status assetpack.StatusEvent) {
	m.post(statusEvent{status})
}

func (m *machine) onPermissionResult(granted bool) {
	m.post(permissionEvent{granted})
}

func (m *machine) run(ctx context.Context) {
	for m.state != StateComplete {
		m.trace = append(m.trace, m.state)

		switch m.state {
		case StateStart:
			m.start()
		case StateCheckCoreStatus:
			m.checkCoreStatus()
		case StateAwaitDownload:
			m.await(ctx)
		case StateFetchManifest:
			m.fetchManifest(ctx)
		default:
			m.fail(interrupted(fmt.Errorf("unexpected state %s", m.state)))
		}
	}

	m.trace = append(m.trace, StateComplete)
	m.finish()
}

func (m *machine) start() {
	platform := m.options.Platform
	if platform == nil || !platform.IsTarget() {
		m.log.Debug().Msg("platform does not use asset packs")
		m.to(StateComplete)
		return
	}

	// Packs are read from the build output during development.
	if m.options.Environment == config.EnvironmentDevelopment {
		m.to(StateFetchManifest)
		return
	}

	m.to(StateCheckCoreStatus)
}

func (m *machine) checkCoreStatus() {
	platform := m.options.Platform
	if platform.CoreDownloaded() {
		m.to(StateFetchManifest)
		return
	}

	names := fp.Filter(func(name string) bool { return name != "" })(platform.PackNames())
	if len(names) == 0 {
		m.fail(packNamesUnavailable())
		return
	}

	if !m.options.Settings.WaitForBackgroundPacks {
		m.log.Info().Strs("packs", names).Msg("downloading asset packs in the background")
		observer := newBackgroundObserver(m.log)
		platform.Download(names, observer.Observe)
		m.to(StateFetchManifest)
		return
	}

	for _, name := range names {
		m.pending[name] = struct{}{}
	}

	m.log.Info().Strs("packs", names).Msg("waiting for asset packs to download")
	platform.Download(names, m.onPackStatus)
	m.to(StateAwaitDownload)
}

func (m *machine) await(ctx context.Context) {
	for {
		if e, ok := m.next(); ok {
			switch e := e.(type) {
			case statusEvent:
				m.onStatus(e.StatusEvent)
			case permissionEvent:
				m.onPermission(e.granted)
			}
			return
		}

		select {
		case <-m.notify:
		case <-ctx.Done():
			m.fail(interrupted(ctx.Err()))
			return
		}
	}
}

// onStatus applies one pack status change while waiting for downloads.
func (m *machine) onStatus(status assetpack.StatusEvent) {
	switch status.Status {
	case assetpack.StatusFailed:
		m.fail(statusFailed(status.Pack, status.Err))
	case assetpack.StatusUnknown:
		m.fail(packUnavailable(status.Pack))
	case assetpack.StatusCanceled:
		m.fail(downloadCanceled(status.Pack))
	case assetpack.StatusWaitingForNetwork:
		if m.permissionRequested {
			return
		}
		m.permissionRequested = true
		m.log.Info().Str("pack", status.Pack).Msg("asking to download over the mobile network")
		m.options.Platform.RequestCellularPermission(m.onPermissionResult)
	case assetpack.StatusCompleted:
		if _, ok := m.pending[status.Pack]; !ok {
			m.log.Debug().
				Str("pack", status.Pack).
				Msg("ignoring completion of a pack that is not being waited for")
			return
		}

		packPath, ok := m.options.Platform.PackPath(status.Pack)
		if !ok || packPath == "" {
			m.fail(packPathMissing(status.Pack))
			return
		}

		m.paths[status.Pack] = packPath
		delete(m.pending, status.Pack)
		packsCompletedTotal.Inc()
		m.log.Info().
			Str("pack", status.Pack).
			Str("path", packPath).
			Int("remaining", len(m.pending)).
			Msg("asset pack downloaded")

		if len(m.pending) == 0 {
			m.to(StateFetchManifest)
		}
	default:
		m.log.Debug().
			Str("pack", status.Pack).
			Str("status", status.Status.String()).
			Float64("progress", status.Progress()).
			Msg("asset pack progress")
	}
}

func (m *machine) onPermission(granted bool) {
	if !granted {
		m.fail(networkDenied())
		return
	}

	m.permissionRequested = false
	m.log.Info().Msg("mobile network downloads allowed")
}

func manifestName(source string) string {
	if source == "" {
		return manifest.FILENAME
	}
	return path.Base(filepath.ToSlash(source))
}

func (m *machine) fetchManifest(ctx context.Context) {
	fetcher := m.options.Fetcher
	name := manifestName(fetcher.Source())

	data, err := fetcher.Fetch(ctx)
	if err != nil {
		m.fail(manifestFetchFailed(name, err))
		return
	}

	parsed, err := manifest.Decode(name, data)
	if err != nil {
		m.fail(manifestFetchFailed(name, err))
		return
	}

	index := manifest.NewIndex(parsed)
	if duplicates := index.Duplicates(); len(duplicates) > 0 {
		m.log.Warn().Strs("bundles", duplicates).Msg("bundles listed by more than one asset pack, the last entry wins")
	}

	m.log.Info().
		Str("manifest", fetcher.Source()).
		Str("fingerprint", manifest.Fingerprint(data)).
		Int("bundles", index.Len()).
		Msg("loaded asset pack manifest")

	m.resolver = resolve.New(index, m.pathSource(index))

	l := m.options.Loader
	l.RegisterProvider(loader.NewBundleProvider(l))
	l.SetTransform(m.resolver.Transform())

	m.to(StateComplete)
}

func (m *machine) pathSource(index *manifest.Index) resolve.PathSource {
	if m.options.Environment == config.EnvironmentDevelopment {
		return resolve.Probe{Root: m.options.ContentRoot}
	}

	// Packs installed before this run never report a status change.
	for _, pack := range index.Packs() {
		if _, ok := m.paths[pack]; ok {
			continue
		}
		if packPath, ok := m.options.Platform.PackPath(pack); ok && packPath != "" {
			m.paths[pack] = packPath
		}
	}

	return m.paths.Clone()
}
