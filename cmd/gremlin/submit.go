package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aixgo-dev/gremlin/pkg/bytecode"
	"github.com/aixgo-dev/gremlin/pkg/protocol"
)

func newSubmitCmd(opts *rootOpts) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "submit [bytecode|-]",
		Short: "Submit a bytecode document and print the results as JSON",
		Long: `Submit sends a bytecode document such as {"step":[["V"],["count"]]} and prints
the decoded results. Use - to read the document from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}

			graph, closeGraph, err := opts.openGraph(cmd)
			if err != nil {
				return err
			}
			defer closeGraph()

			c := graph.Client()
			results, err := c.Write(cmd.Context(), protocol.NewBytecodeRequest(c.NewID(), doc, sessionID))
			if err != nil {
				return err
			}
			if results == nil {
				results = []any{}
			}

			out, err := protocol.Marshal(results)
			if err != nil {
				return fmt.Errorf("encode results: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "send the document to this server session")
	return cmd
}

func readDocument(cmd *cobra.Command, arg string) (bytecode.Document, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return bytecode.Document{}, fmt.Errorf("read stdin: %w", err)
		}
	} else if _, err := os.Stat(arg); err == nil {
		data, err = os.ReadFile(arg)
		if err != nil {
			return bytecode.Document{}, err
		}
	}

	var doc bytecode.Document
	if err := protocol.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse bytecode: %w", err)
	}
	if doc.Empty() {
		return doc, errors.New("bytecode document has no steps")
	}
	return doc, nil
}
