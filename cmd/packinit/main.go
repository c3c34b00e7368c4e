package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/cfoust/assetpacks/pkg/config"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Debug bool `help:"Whether to enable debug logging."`

	Run struct {
		Configs  []string      `arg:"" optional:"" name:"configs" help:"Configuration files for the initializer." type:"path"`
		Store    string        `help:"Directory holding one <pack>.zip archive per asset pack." type:"path" default:"packs"`
		Redis    string        `help:"Read pack archives from this Redis address instead of --store."`
		Install  string        `help:"Directory packs are installed into." type:"path" default:"installed"`
		Core     []string      `help:"Names of core asset packs."`
		Pack     []string      `help:"Names of custom asset packs."`
		Cellular []string      `help:"Packs that wait for a mobile network permission."`
		Allow    bool          `help:"Allow downloads over the mobile network when asked."`
		Resolve  []string      `help:"Bundle identifiers to resolve after initialization."`
		Timeout  time.Duration `help:"How long to wait for initialization." default:"1m"`
	} `cmd:"" help:"Initialize against simulated asset packs and resolve bundles."`

	Resolve struct {
		Manifest    string   `help:"Manifest mapping bundles to asset packs." type:"existingfile" required:""`
		ContentRoot string   `help:"Directory holding <pack>.androidpack folders." type:"existingdir" required:""`
		Ids         []string `arg:"" name:"ids" help:"Bundle identifiers to resolve."`
	} `cmd:"" help:"Resolve bundles against a development build."`

	Config struct {
	} `cmd:"" help:"Write the default configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx := kong.Parse(&CLI,
		kong.Name("packinit"),
		kong.Description("prepare a content loader to read bundles from asset packs"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	background, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch ctx.Command() {
	case "run":
		fallthrough
	case "run <configs>":
		err = runCommand(background)
	case "resolve <ids>":
		err = resolveCommand()
	case "config":
		_, err = os.Stdout.Write(config.DEFAULT)
	}

	if err != nil {
		writeError(err)
	}
}
