package main

import (
	"github.com/spf13/cobra"

	"github.com/Thihup/parjac2-sub001/lsp"
)

func newLSPCmd() *cobra.Command {
	var src sources

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start a Language Server Protocol server that reports syntax errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			fe, err := src.load()
			if err != nil {
				return err
			}
			return lsp.NewServer(fe, version).RunStdio()
		},
	}
	src.addFlags(cmd)

	return cmd
}
