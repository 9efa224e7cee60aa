// Package cli is the feedcache command line: it loads configuration, opens
// the configured store and runs one cache operation per command.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/feedcache/internal/config"
)

// version is injected at build time via -ldflags.
var version = "dev"

type flags struct {
	configPath string
	backend    string
	path       string
	codec      string
	url        string
	jsonOutput bool
	verbose    bool
}

type app struct {
	flags  flags
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
}

// NewRootCmd builds the command tree. Output goes to the command's out and
// err writers, so callers can capture it with SetOut and SetErr.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "feedcache",
		Short:         "Keep a local, time-limited copy of a remote image feed",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.stdout = cmd.OutOrStdout()
			a.stderr = cmd.ErrOrStderr()
			cfg, err := config.Load(a.flags.configPath)
			if err != nil {
				return err
			}
			a.cfg = a.applyFlags(cmd, cfg)
			return a.cfg.Validate()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "config file (default "+config.ConfigFile()+")")
	pf.StringVar(&a.flags.backend, "backend", "", "store backend: file, sqlite, redis, bigcache, ristretto")
	pf.StringVar(&a.flags.path, "path", "", "cache file or database path")
	pf.StringVar(&a.flags.codec, "codec", "", "snapshot codec: json, cbor, msgpack, protobuf")
	pf.StringVar(&a.flags.url, "url", "", "remote feed URL")
	pf.BoolVarP(&a.flags.jsonOutput, "json", "j", false, "output as JSON")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.loadCmd(),
		a.refreshCmd(),
		a.validateCmd(),
		a.clearCmd(),
		a.serveCmd(),
		a.configCmd(),
	)
	return root
}

// applyFlags lets explicitly set flags win over file and environment.
func (a *app) applyFlags(cmd *cobra.Command, cfg config.Config) config.Config {
	changed := cmd.Flags().Changed
	if changed("backend") {
		if cfg.Store.Path == config.DefaultStorePath(cfg.Store.Backend) {
			cfg.Store.Path = config.DefaultStorePath(a.flags.backend)
		}
		cfg.Store.Backend = a.flags.backend
	}
	if changed("path") {
		cfg.Store.Path = a.flags.path
	}
	if changed("codec") {
		cfg.Store.Codec = a.flags.codec
	}
	if changed("url") {
		cfg.Remote.URL = a.flags.url
	}
	return cfg
}

func (a *app) open() (*env, error) {
	return newEnv(a.cfg, a.flags.verbose, a.stderr)
}

func (a *app) out(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func Execute() error {
	return NewRootCmd().Execute()
}

// ExecuteContext runs the root command with the given context.
// Commands access it via cmd.Context().
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
