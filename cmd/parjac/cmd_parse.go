package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thihup/parjac2-sub001/ebnflex"
	"github.com/Thihup/parjac2-sub001/frontend"
)

// sources holds the flags that locate a grammar and its lexicon.
type sources struct {
	grammarPath string
	lexiconPath string
	start       string
	skip        []string
}

func (s *sources) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.grammarPath, "grammar", "g", "", "grammar file")
	cmd.Flags().StringVarP(&s.lexiconPath, "lexicon", "l", "", "EBNF lexicon file")
	cmd.Flags().StringVarP(&s.start, "start", "s", "CompilationUnit", "start symbol")
	cmd.Flags().StringSliceVar(&s.skip, "skip", ebnflex.DefaultSkipKinds, "lexicon productions to skip between tokens")
	cmd.MarkFlagRequired("grammar")
	cmd.MarkFlagRequired("lexicon")
}

func (s *sources) load() (*frontend.Frontend, error) {
	return frontend.New(s.grammarPath, s.lexiconPath, s.start, ebnflex.WithSkip(s.skip...))
}

func newParseCmd() *cobra.Command {
	var src sources
	var outputFormat string
	var jobs int
	var quiet bool

	cmd := &cobra.Command{
		Use:          "parse <file>...",
		Short:        "Parse source files and print their parse trees",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "tree", "json":
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}

			fe, err := src.load()
			if err != nil {
				return err
			}

			results, err := fe.ParseFiles(cmd.Context(), args, jobs)
			if err != nil {
				return err
			}

			failed := 0
			out := cmd.OutOrStdout()
			for _, res := range results {
				for _, d := range res.Diagnostics {
					fmt.Fprintln(cmd.ErrOrStderr(), d)
				}
				if !res.OK() {
					failed++
					continue
				}
				if quiet {
					continue
				}
				switch outputFormat {
				case "json":
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(res.Tree); err != nil {
						return fmt.Errorf("encode json: %w", err)
					}
				case "tree":
					if len(results) > 1 {
						fmt.Fprintf(out, "== %s\n", res.Path)
					}
					fmt.Fprint(out, res.Tree)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files had errors", failed, len(results))
			}
			return nil
		},
	}

	src.addFlags(cmd)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "tree", "output format (tree, json)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "files parsed in parallel")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only report diagnostics")

	return cmd
}
