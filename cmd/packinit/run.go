package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cfoust/assetpacks/pkg/assets"
	"github.com/cfoust/assetpacks/pkg/config"
	"github.com/cfoust/assetpacks/pkg/loader"
	"github.com/cfoust/assetpacks/pkg/manifest"
	"github.com/cfoust/assetpacks/pkg/packinit"
	"github.com/cfoust/assetpacks/pkg/platform/sim"
	"github.com/cfoust/assetpacks/pkg/resolve"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog/log"
)

func packStore() (assets.Store, error) {
	if CLI.Run.Redis != "" {
		client := redis.NewClient(&redis.Options{
			Addr: CLI.Run.Redis,
		})
		return assets.NewRedisStore(client, 0), nil
	}

	if !assets.FileExists(CLI.Run.Store) {
		return nil, fmt.Errorf("pack store %s does not exist", CLI.Run.Store)
	}
	return assets.FSStore(CLI.Run.Store), nil
}

func simulatedPacks() []sim.Pack {
	cellular := make(map[string]struct{})
	for _, name := range CLI.Run.Cellular {
		cellular[name] = struct{}{}
	}

	packs := make([]sim.Pack, 0)
	add := func(name string, core bool) {
		_, needsCellular := cellular[name]
		packs = append(packs, sim.Pack{
			Name:          name,
			Core:          core,
			NeedsCellular: needsCellular,
		})
	}

	for _, name := range CLI.Run.Core {
		add(name, true)
	}
	for _, name := range CLI.Run.Pack {
		add(name, false)
	}
	return packs
}

func printResolved(resolver func(loader.Location) string, ids []string) {
	for _, id := range ids {
		location := loader.Location{
			InternalID: id,
			Kind:       loader.KindBundle,
			ProviderID: loader.BUNDLE_PROVIDER,
		}
		fmt.Printf("%s -> %s\n", id, resolver(location))
	}
}

func runCommand(ctx context.Context) error {
	cfg, err := config.Process(CLI.Run.Configs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := packStore()
	if err != nil {
		return err
	}

	err = os.MkdirAll(CLI.Run.Install, 0755)
	if err != nil {
		return err
	}

	platform := sim.New(ctx, sim.Options{
		Target:          true,
		Packs:           simulatedPacks(),
		Store:           store,
		InstallDir:      CLI.Run.Install,
		CellularAllowed: CLI.Run.Allow,
		Log:             log.With().Str("component", "platform").Logger(),
	})
	defer platform.Close()

	l := loader.New()
	options := packinit.FromConfig(
		cfg,
		platform,
		l,
		log.With().Str("component", "packinit").Logger(),
	)

	waitCtx, cancel := context.WithTimeout(ctx, CLI.Run.Timeout)
	defer cancel()

	result, err := packinit.Start(ctx, options).Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("initialization did not finish: %w", err)
	}

	path := make([]string, 0, len(result.Path))
	for _, state := range result.Path {
		path = append(path, state.String())
	}
	fmt.Printf("states: %s\n", strings.Join(path, " -> "))

	if result.Warning != nil {
		fmt.Printf("warning (%s): %s\n", result.Warning.Kind, result.Warning.Message)
	}

	printResolved(l.InternalID, CLI.Run.Resolve)
	return nil
}

func resolveCommand() error {
	data, err := os.ReadFile(CLI.Resolve.Manifest)
	if err != nil {
		return err
	}

	parsed, err := manifest.Decode(CLI.Resolve.Manifest, data)
	if err != nil {
		return err
	}

	resolver := resolve.New(
		manifest.NewIndex(parsed),
		resolve.Probe{Root: CLI.Resolve.ContentRoot},
	)

	printResolved(resolver.Resolve, CLI.Resolve.Ids)
	return nil
}
