package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aixgo-dev/gremlin/pkg/features"
)

func newFeaturesCmd(opts *rootOpts) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Show the capabilities of the configured backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			providers := features.Providers()
			if !all {
				cfg, err := opts.config()
				if err != nil {
					return err
				}
				providers = []string{cfg.Provider}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PROVIDER\tTRANSACTIONS\tUSER SUPPLIED IDS")
			for _, p := range providers {
				f, err := features.For(p)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "%s\t%t\t%t\n", f.Provider, f.Transactions, f.UserSuppliedIDs)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every known provider")
	return cmd
}
