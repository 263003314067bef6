package main

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/ebnf"

	"github.com/Thihup/parjac2-sub001/ebnflex"
	"github.com/Thihup/parjac2-sub001/grammar"
)

func newLexiconCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lexicon",
		Short:         "EBNF lexicon tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newLexiconCheckCmd())

	return cmd
}

func newLexiconCheckCmd() *cobra.Command {
	var startProduction string
	var grammarPath string

	cmd := &cobra.Command{
		Use:           "check <file>",
		Short:         "Parse and verify an EBNF lexicon file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := checkLexicon(cmd.OutOrStdout(), args[0], startProduction, grammarPath)
			if err != nil {
				printErrors(cmd.ErrOrStderr(), err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&startProduction, "start", "", "start production for verification (if empty, only checks syntax)")
	cmd.Flags().StringVar(&grammarPath, "grammar", "", "grammar file to bind the lexicon to")

	return cmd
}

func checkLexicon(out io.Writer, filename, startProduction, grammarPath string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	lex, err := ebnf.Parse(filename, f)
	if err != nil {
		return err
	}

	if startProduction != "" {
		if err := ebnf.Verify(lex, startProduction); err != nil {
			return err
		}
	}

	if grammarPath == "" {
		return nil
	}
	g := grammar.New()
	if err := grammar.ReadFile(g, grammarPath); err != nil {
		return err
	}
	lx, err := ebnflex.NewLexicon(lex, g)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "classes: %s\n", strings.Join(lx.Classes(), " "))
	fmt.Fprintf(out, "literals: %s\n", strings.Join(lx.Literals(), " "))
	return nil
}

func printErrors(w io.Writer, err error) {
	v := reflect.ValueOf(err)
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintln(w, v.Index(i).Interface())
		}
	} else {
		fmt.Fprintln(w, err)
	}
}
