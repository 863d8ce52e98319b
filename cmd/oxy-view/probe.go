package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/engine/probe"
	"github.com/Carmen-Shannon/oxy-view/internal/config"
	"github.com/spf13/cobra"
)

func newProbeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [asset...]",
		Short: "Check that assets (or their fallbacks) are reachable without loading them",
		Example: "  oxy-view probe\n" +
			"  oxy-view --assets https://example.com/models probe headset0.glb",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = cfg.Models
			}
			p := probe.NewProber(probe.WithTimeout(cfg.ProbeTimeout()))
			refFor := refFunc(*cfg)
			out := cmd.OutOrStdout()

			missing := 0
			for _, name := range names {
				ref := refFor(name)
				ok := p.Probe(cmd.Context(), ref.ManualURL())
				fmt.Fprintf(out, "%-32s %-11s %s\n", name, reachability(ok), ref.ManualURL())
				if ok {
					continue
				}
				if fb, has := ref.Fallback(); has {
					fbOK := p.Probe(cmd.Context(), fb.ManualURL())
					fmt.Fprintf(out, "  fallback %-23s %-11s %s\n", fb.Name(), reachability(fbOK), fb.ManualURL())
					if fbOK {
						continue
					}
				}
				missing++
			}
			if missing > 0 {
				return fmt.Errorf("%d of %d assets unreachable", missing, len(names))
			}
			return nil
		},
	}
}

func reachability(ok bool) string {
	if ok {
		return "reachable"
	}
	return "unreachable"
}
