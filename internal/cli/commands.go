package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/feedcache"
	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/internal/server"
	"github.com/unkn0wn-root/feedcache/remote"
	"github.com/unkn0wn-root/feedcache/store"
)

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Print the cached feed if it is still fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEnv(func(e *env) error {
				records, err := feed.Wait(cmd.Context(), e.local)
				if err != nil {
					return err
				}
				return a.printRecords(records)
			})
		},
	}
}

func (a *app) refreshCmd() *cobra.Command {
	var noFallback bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the remote feed and cache it, falling back to the cache on failure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEnv(func(e *env) error {
				l, err := e.refreshing(!noFallback)
				if err != nil {
					return err
				}
				records, err := feed.Wait(cmd.Context(), l)
				if err != nil {
					return err
				}
				return a.printRecords(records)
			})
		},
	}
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "fail instead of serving the cache when the remote fails")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Delete the cache when it is expired or unreadable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEnv(func(e *env) error {
				c, err := e.validate(cmd.Context())
				if err != nil {
					return err
				}
				if c == feedcache.CleanupNone {
					c = "none"
				}
				if a.flags.jsonOutput {
					return a.printJSON(map[string]string{"cleanup": string(c)})
				}
				a.out("cleanup: %s\n", c)
				return nil
			})
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the cached feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEnv(func(e *env) error {
				if err := store.DeleteWait(cmd.Context(), e.store); err != nil {
					return err
				}
				a.out("cache cleared\n")
				return nil
			})
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the feed over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			return a.withEnv(func(e *env) error {
				ctx := cmd.Context()
				if a.cfg.Server.ValidateOnStart {
					if _, err := e.validate(ctx); err != nil {
						e.log.Warn("feedcache startup validation failed", feedcache.Fields{"err": err})
					}
				}

				var l feed.Loader = e.local
				if e.remote != nil {
					l, _ = e.refreshing(true)
				}
				h, err := server.NewHandler(server.Options{
					Feed:      l,
					Validator: e.local,
					Logger:    e.log,
				})
				if err != nil {
					return err
				}
				return server.Run(ctx, a.cfg.Server.Addr, h, e.log)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if a.flags.jsonOutput {
				return a.printJSON(a.cfg)
			}
			return toml.NewEncoder(a.stdout).Encode(a.cfg)
		},
	}
}

// withEnv opens the store for the duration of fn.
func (a *app) withEnv(fn func(*env) error) (err error) {
	e, err := a.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()
	return fn(e)
}

// validate runs cache validation and waits for its cleanup.
func (e *env) validate(ctx context.Context) (feedcache.Cleanup, error) {
	type result struct {
		c   feedcache.Cleanup
		err error
	}
	ch := make(chan result, 1)
	e.local.Validate(ctx, func(c feedcache.Cleanup, err error) { ch <- result{c, err} })
	select {
	case r := <-ch:
		return r.c, r.err
	case <-ctx.Done():
		return feedcache.CleanupNone, ctx.Err()
	}
}

func (a *app) printRecords(records []feed.Record) error {
	if a.flags.jsonOutput {
		b, err := remote.Encode(records)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.stdout, "%s\n", b)
		return err
	}
	if len(records) == 0 {
		a.out("no cached feed\n")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tIMAGE\tDESCRIPTION\tLOCATION")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.ImageURL, dash(r.Description), dash(r.Location))
	}
	return tw.Flush()
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
