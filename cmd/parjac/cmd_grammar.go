package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thihup/parjac2-sub001/grammar"
)

func newGrammarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "grammar",
		Short:         "Grammar file tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newGrammarCheckCmd())
	cmd.AddCommand(newGrammarDumpCmd())

	return cmd
}

func readGrammar(path, start string) (*grammar.Grammar, error) {
	g := grammar.New()
	if err := grammar.ReadFile(g, path); err != nil {
		return nil, err
	}
	if start != "" {
		g.AddGoal(start)
	}
	return g, nil
}

func newGrammarCheckCmd() *cobra.Command {
	var start string

	cmd := &cobra.Command{
		Use:           "check <file>",
		Short:         "Read a grammar file and report undefined or empty rules",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGrammar(args[0], start)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			if errs := g.Validate(); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintln(cmd.ErrOrStderr(), e)
				}
				return fmt.Errorf("%s: %d problems", args[0], len(errs))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tokens, %d groups, %d rules\n",
				args[0], g.NumTokens(), g.NumGroups(), g.NumRules())
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start symbol to add a goal rule for")

	return cmd
}

func newGrammarDumpCmd() *cobra.Command {
	var start string

	cmd := &cobra.Command{
		Use:           "dump <file>",
		Short:         "Print the plain rules a grammar file lowers to",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGrammar(args[0], start)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			return g.Dump(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start symbol to add a goal rule for")

	return cmd
}
