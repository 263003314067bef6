// Package frontend ties a grammar, its lexicon and a shared prediction cache
// together and parses source files with them, one parser per file.
package frontend

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/Thihup/parjac2-sub001/diag"
	"github.com/Thihup/parjac2-sub001/ebnflex"
	"github.com/Thihup/parjac2-sub001/grammar"
	"github.com/Thihup/parjac2-sub001/parse"
)

var log = commonlog.GetLogger("parjac.frontend")

// Frontend is immutable after New and safe for concurrent use.
type Frontend struct {
	Grammar *grammar.Grammar
	Goal    *grammar.Rule
	Cache   *parse.PredictCache
	Lexicon *ebnflex.Lexicon

	// ParserOptions are applied to every parser.
	ParserOptions []parse.Option
}

// Result is the outcome of parsing one file. Tree is nil when the file had
// errors.
type Result struct {
	Path        string
	Tree        *parse.Tree
	Diagnostics []diag.Diagnostic
	Stats       parse.Stats
	Elapsed     time.Duration
}

func (r Result) OK() bool {
	return r.Tree != nil
}

// New loads the grammar at grammarPath with start as its start symbol and
// binds the lexicon at lexiconPath to it.
func New(grammarPath, lexiconPath, start string, opts ...ebnflex.Option) (*Frontend, error) {
	g, goal, err := grammar.Load(grammarPath, start)
	if err != nil {
		return nil, err
	}
	lx, err := ebnflex.LoadLexicon(lexiconPath, g, opts...)
	if err != nil {
		return nil, err
	}
	return NewFromParts(g, goal, lx), nil
}

// NewFromParts builds a frontend from an already loaded grammar and lexicon.
func NewFromParts(g *grammar.Grammar, goal *grammar.Rule, lx *ebnflex.Lexicon) *Frontend {
	log.Infof("grammar ready: %d tokens, %d groups, %d rules", g.NumTokens(), g.NumGroups(), g.NumRules())
	return &Frontend{
		Grammar: g,
		Goal:    goal,
		Cache:   parse.NewPredictCache(g),
		Lexicon: lx,
	}
}

// ParseSource parses src. Diagnostics are kept in the result and also
// forwarded to sink when it is not nil.
func (f *Frontend) ParseSource(path string, src []byte, sink diag.Collector) Result {
	var list diag.List
	var collector diag.Collector = &list
	if sink != nil {
		collector = diag.CollectorFunc(func(d diag.Diagnostic) {
			list.Report(d)
			sink.Report(d)
		})
	}

	start := time.Now()
	p, err := parse.New(f.Grammar, path, f.Cache, f.Lexicon.Lexer(src, path), collector, f.ParserOptions...)
	if err != nil {
		collector.Report(diag.Diagnostic{Severity: diag.Error, Path: path, Message: err.Error()})
		return Result{Path: path, Diagnostics: list.Diagnostics()}
	}
	tree, _ := p.Parse(f.Goal)
	res := Result{
		Path:        path,
		Tree:        tree,
		Diagnostics: list.Diagnostics(),
		Stats:       p.Stats(),
		Elapsed:     time.Since(start),
	}
	log.Debugf("parsed %s in %s: %d positions, %d entries", path, res.Elapsed, res.Stats.Positions, res.Stats.Entries)
	return res
}

// ParseFile reads and parses the file at path.
func (f *Frontend) ParseFile(path string) (Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("read source: %w", err)
	}
	return f.ParseSource(path, src, nil), nil
}

// ParseFiles parses paths with at most workers files in flight and returns
// the results in the order of paths. A read failure or a cancelled ctx stops
// the remaining files; a parse that is already running is not interrupted.
func (f *Frontend) ParseFiles(ctx context.Context, paths []string, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := f.ParseFile(path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	hits, misses := f.Cache.Stats()
	log.Debugf("parsed %d files; prediction cache: %d hits, %d misses", len(paths), hits, misses)
	return results, nil
}
