package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPingCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			graph, closeGraph, err := opts.openGraph(cmd)
			if err != nil {
				return err
			}
			defer closeGraph()

			start := time.Now()
			if err := graph.Client().Ping(cmd.Context()); err != nil {
				return fmt.Errorf("ping %s: %w", graph.Client().Config().URL, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s answered in %s\n",
				graph.Client().Config().URL, time.Since(start).Round(time.Millisecond))
			return err
		},
	}
}
