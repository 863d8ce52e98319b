package main

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-view/engine"
	"github.com/Carmen-Shannon/oxy-view/engine/loader"
	"github.com/Carmen-Shannon/oxy-view/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-view/engine/probe"
	"github.com/Carmen-Shannon/oxy-view/engine/profiler"
	"github.com/Carmen-Shannon/oxy-view/engine/reflow"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/selector"
	"github.com/Carmen-Shannon/oxy-view/engine/session"
	"github.com/Carmen-Shannon/oxy-view/engine/viewer"
	"github.com/Carmen-Shannon/oxy-view/internal/config"
	"github.com/Carmen-Shannon/oxy-view/internal/logging"
	"github.com/Carmen-Shannon/oxy-view/internal/statusapi"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootFlags are the persistent flags shared by every subcommand. Flags that
// were set explicitly override the config file.
type rootFlags struct {
	configPath  string
	assetBase   string
	models      string
	logLevel    string
	logPretty   bool
	skipProbe   bool
	noCacheBust bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cfg := &config.Config{}
	var log zerolog.Logger

	root := &cobra.Command{
		Use:           "oxy-view",
		Short:         "View glTF/GLB assets with probing, fallbacks and auto-framing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			*cfg = loaded
			log = logging.New(cfg.LogLevel, cfg.LogPretty)
			installLoggers(log)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&flags.assetBase, "assets", "", "Asset directory or base URL (default \"assets\")")
	pf.StringVar(&flags.models, "models", "", "Comma-separated asset names; digit keys select them in order")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug|info|warn|error|off")
	pf.BoolVar(&flags.logPretty, "pretty", false, "Human-readable log output")
	pf.BoolVar(&flags.skipProbe, "skip-probe", false, "Load without checking that the asset exists first")
	pf.BoolVar(&flags.noCacheBust, "no-cache-bust", false, "Do not append a cache-defeating query to asset URLs")

	view := newViewCmd(cfg, &log)
	root.AddCommand(view, newProbeCmd(cfg), newInspectCmd(cfg))

	// view is the default command; its flags are registered on root too so
	// "oxy-view --width 800" works without naming it.
	root.Flags().AddFlagSet(view.Flags())
	root.Args = view.Args
	root.RunE = view.RunE
	return root
}

// resolveConfig merges the config file, explicitly set flags and defaults.
func resolveConfig(cmd *cobra.Command, flags *rootFlags) (config.Config, error) {
	var cfg config.Config
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("assets") {
		cfg.AssetBase = flags.assetBase
	}
	if changed("models") {
		cfg.Models = splitCSV(flags.models)
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("pretty") {
		cfg.LogPretty = flags.logPretty
	}
	if changed("skip-probe") {
		cfg.SkipProbe = flags.skipProbe
	}
	if changed("no-cache-bust") {
		cfg.NoCacheBust = flags.noCacheBust
	}
	applyViewFlags(cmd, &cfg)

	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}

// installLoggers hands the root logger to every package that logs.
func installLoggers(l zerolog.Logger) {
	engine.SetLogger(l.With().Str("component", "engine").Logger())
	loader.SetLogger(l.With().Str("component", "loader").Logger())
	orchestrator.SetLogger(l.With().Str("component", "orchestrator").Logger())
	probe.SetLogger(l.With().Str("component", "probe").Logger())
	profiler.SetLogger(l.With().Str("component", "profiler").Logger())
	reflow.SetLogger(l.With().Str("component", "reflow").Logger())
	renderer.SetLogger(l.With().Str("component", "renderer").Logger())
	selector.SetLogger(l.With().Str("component", "selector").Logger())
	session.SetLogger(l.With().Str("component", "session").Logger())
	viewer.SetLogger(l.With().Str("component", "viewer").Logger())
	statusapi.SetLogger(l.With().Str("component", "statusapi").Logger())
}

// splitCSV splits a comma-separated list, dropping empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// refFunc builds asset references under the configured base.
func refFunc(cfg config.Config) selector.RefFunc {
	return selector.RefsUnder(cfg.AssetBase, !cfg.NoCacheBust)
}
