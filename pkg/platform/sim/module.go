// Package sim is an asset pack platform that installs packs from an
// assets.Store instead of a device store. It drives the same status
// sequences a device reports and is used by the CLI and tests.
package sim

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cfoust/assetpacks/pkg/assetpack"
	"github.com/cfoust/assetpacks/pkg/assets"
	"github.com/cfoust/assetpacks/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/errgroup"
)

type Pack struct {
	Name string
	// Core packs hold the application's built-in content.
	Core bool
	// NeedsCellular packs wait for network until the user allows metered
	// downloads.
	NeedsCellular bool
	// Cancel makes the download end as canceled.
	Cancel bool
}

type Options struct {
	Target bool
	Packs  []Pack
	// Store holds one zip archive per pack, keyed <pack>.zip.
	Store      assets.Store
	InstallDir string
	// CellularAllowed is the answer given to permission requests.
	CellularAllowed bool
	// Parallelism bounds concurrent installs. Zero means unbounded.
	Parallelism int
	Log         zerolog.Logger
}

type Platform struct {
	options Options
	packs   map[string]Pack
	log     zerolog.Logger

	mutex        deadlock.Mutex
	installed    map[string]string
	cellularWait chan struct{}
	granted      bool

	topic   *utils.Topic[assetpack.StatusEvent]
	session utils.Session
}

func New(ctx context.Context, options Options) *Platform {
	packs := make(map[string]Pack)
	for _, pack := range options.Packs {
		packs[pack.Name] = pack
	}

	return &Platform{
		options:      options,
		packs:        packs,
		log:          options.Log,
		installed:    make(map[string]string),
		cellularWait: make(chan struct{}),
		topic:        utils.NewTopic[assetpack.StatusEvent](),
		session:      utils.NewSession(ctx),
	}
}

// Close abandons in-flight downloads; they finish as canceled.
func (p *Platform) Close() {
	p.session.Cancel()
}

// MarkInstalled records a pack as already present in dir.
func (p *Platform) MarkInstalled(name string, dir string) {
	p.mutex.Lock()
	p.installed[name] = dir
	p.mutex.Unlock()
}

func (p *Platform) IsTarget() bool {
	return p.options.Target
}

func (p *Platform) CoreDownloaded() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pack := range p.options.Packs {
		if !pack.Core {
			continue
		}
		if _, ok := p.installed[pack.Name]; !ok {
			return false
		}
	}
	return true
}

// PackNames lists packs that are not installed, core packs first.
func (p *Platform) PackNames() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	names := make([]string, 0)
	for _, core := range []bool{true, false} {
		for _, pack := range p.options.Packs {
			if pack.Core != core {
				continue
			}
			if _, ok := p.installed[pack.Name]; ok {
				continue
			}
			names = append(names, pack.Name)
		}
	}
	return names
}

func (p *Platform) PackPath(name string) (string, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	dir, ok := p.installed[name]
	return dir, ok
}

func (p *Platform) RequestCellularPermission(onResult func(granted bool)) {
	go func() {
		allowed := p.options.CellularAllowed
		if allowed {
			p.mutex.Lock()
			if !p.granted {
				p.granted = true
				close(p.cellularWait)
			}
			p.mutex.Unlock()
		}
		p.log.Debug().Bool("granted", allowed).Msg("cellular permission answered")
		onResult(allowed)
	}()
}

func (p *Platform) Download(names []string, onStatus func(assetpack.StatusEvent)) {
	pending := make(map[string]struct{})
	for _, name := range names {
		pending[name] = struct{}{}
	}

	subscriber := p.topic.Subscribe(len(names) * 8)
	go func() {
		defer subscriber.Done()
		for len(pending) > 0 {
			select {
			case event := <-subscriber.Recv():
				if _, ok := pending[event.Pack]; !ok {
					continue
				}
				onStatus(event)
				if event.Status.Terminal() {
					delete(pending, event.Pack)
				}
			case <-p.session.Ctx().Done():
				return
			}
		}
	}()

	go func() {
		group, ctx := errgroup.WithContext(p.session.Ctx())
		if p.options.Parallelism > 0 {
			group.SetLimit(p.options.Parallelism)
		}

		for _, name := range names {
			name := name
			group.Go(func() error {
				p.install(ctx, name)
				return nil
			})
		}

		group.Wait()
	}()
}

func (p *Platform) publish(event assetpack.StatusEvent) {
	p.log.Debug().
		Str("pack", event.Pack).
		Str("status", event.Status.String()).
		Int64("bytes", event.BytesDownloaded).
		Msg("pack status")
	p.topic.Publish(event)
}

func (p *Platform) waitForCellular(ctx context.Context) bool {
	p.mutex.Lock()
	wait := p.cellularWait
	p.mutex.Unlock()

	select {
	case <-wait:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Platform) install(ctx context.Context, name string) {
	if dir, ok := p.PackPath(name); ok && dir != "" {
		p.publish(assetpack.StatusEvent{Pack: name, Status: assetpack.StatusCompleted})
		return
	}

	pack, ok := p.packs[name]
	if !ok {
		p.publish(assetpack.StatusEvent{Pack: name, Status: assetpack.StatusUnknown})
		return
	}

	p.publish(assetpack.StatusEvent{Pack: name, Status: assetpack.StatusPending})

	if pack.Cancel {
		p.publish(assetpack.StatusEvent{Pack: name, Status: assetpack.StatusCanceled})
		return
	}

	if pack.NeedsCellular {
		p.publish(assetpack.StatusEvent{Pack: name, Status: assetpack.StatusWaitingForNetwork})
		if !p.waitForCellular(ctx) {
			p.publish(assetpack.StatusEvent{Pack: name, Status: assetpack.StatusCanceled})
			return
		}
	}

	if p.options.Store == nil {
		p.publish(assetpack.StatusEvent{Pack: name, Status: assetpack.StatusUnknown})
		return
	}

	data, err := p.options.Store.Get(ctx, name+".zip")
	if err == assets.Missing {
		p.publish(assetpack.StatusEvent{Pack: name, Status: assetpack.StatusUnknown})
		return
	}
	if err != nil {
		p.publish(assetpack.StatusEvent{
			Pack:   name,
			Status: assetpack.StatusFailed,
			Err:    fmt.Errorf("could not fetch pack %s: %w", name, err),
		})
		return
	}

	total := int64(len(data))
	p.publish(assetpack.StatusEvent{
		Pack:            name,
		Status:          assetpack.StatusDownloading,
		BytesDownloaded: total / 2,
		TotalBytes:      total,
	})

	dir := filepath.Join(p.options.InstallDir, name)
	p.publish(assetpack.StatusEvent{
		Pack:            name,
		Status:          assetpack.StatusTransferring,
		BytesDownloaded: total,
		TotalBytes:      total,
	})
	if _, err := assets.ExtractArchive(data, dir); err != nil {
		p.publish(assetpack.StatusEvent{
			Pack:   name,
			Status: assetpack.StatusFailed,
			Err:    fmt.Errorf("could not extract pack %s: %w", name, err),
		})
		return
	}

	p.MarkInstalled(name, dir)
	p.publish(assetpack.StatusEvent{
		Pack:            name,
		Status:          assetpack.StatusCompleted,
		BytesDownloaded: total,
		TotalBytes:      total,
	})
}

var _ assetpack.Platform = (*Platform)(nil)
