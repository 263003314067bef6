// Package ebnflex provides lexical scanning based on EBNF grammars.
//
// A lexicon is an EBNF file in the golang.org/x/exp/ebnf notation. Each
// production whose name starts with an uppercase letter is a token class;
// classes named like a grammar token produce that token, classes listed as
// skip kinds are discarded, and every other grammar token is matched
// verbatim as a literal (keywords and operators).
package ebnflex

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
	"golang.org/x/exp/ebnf"

	"github.com/Thihup/parjac2-sub001/grammar"
)

var log = commonlog.GetLogger("parjac.ebnflex")

// DefaultSkipKinds are discarded between tokens unless WithSkip says
// otherwise.
var DefaultSkipKinds = []string{"WhiteSpace", "Comment"}

type class struct {
	name  string
	token *grammar.Token // nil for skip kinds
}

// Lexicon binds an EBNF lexical grammar to the tokens of a parser grammar.
// It is read-only after construction and may be shared by lexers running
// concurrently.
type Lexicon struct {
	grammar  *grammar.Grammar
	ebnf     ebnf.Grammar
	classes  []class
	skips    []class
	literals []*grammar.Token
}

// Option configures a Lexicon.
type Option func(*lexiconConfig)

type lexiconConfig struct {
	skip []string
}

// WithSkip replaces the skip kinds.
func WithSkip(kinds ...string) Option {
	return func(c *lexiconConfig) {
		c.skip = kinds
	}
}

// NewLexicon binds lex to g. g is only read.
func NewLexicon(lex ebnf.Grammar, g *grammar.Grammar, opts ...Option) (*Lexicon, error) {
	cfg := lexiconConfig{skip: DefaultSkipKinds}
	for _, opt := range opts {
		opt(&cfg)
	}
	skip := make(map[string]bool, len(cfg.skip))
	for _, k := range cfg.skip {
		skip[k] = true
	}

	lx := &Lexicon{grammar: g, ebnf: lex}
	names := make([]string, 0, len(lex))
	for name := range lex {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prod := lex[name]
		if prod.Expr == nil || !isClassName(name) {
			continue
		}
		if skip[name] {
			lx.skips = append(lx.skips, class{name: name})
			continue
		}
		tok, ok := g.LookupToken(name)
		if !ok {
			log.Debugf("token class %s is not used by the grammar", name)
			continue
		}
		lx.classes = append(lx.classes, class{name: name, token: tok})
	}

	for _, tok := range g.Tokens() {
		if g.IsReserved(tok) {
			continue
		}
		if p, ok := lex[tok.Name]; ok && p.Expr != nil && isClassName(tok.Name) {
			continue
		}
		lx.literals = append(lx.literals, tok)
	}

	if len(lx.classes) == 0 && len(lx.literals) == 0 {
		return nil, fmt.Errorf("lexicon defines no tokens used by the grammar")
	}
	return lx, nil
}

// LoadLexicon parses the EBNF file at path and binds it to g.
func LoadLexicon(path string, g *grammar.Grammar, opts ...Option) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()

	lex, err := ebnf.Parse(path, f)
	if err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	return NewLexicon(lex, g, opts...)
}

func (lx *Lexicon) Grammar() *grammar.Grammar {
	return lx.grammar
}

// Classes returns the names of the token classes bound to grammar tokens.
func (lx *Lexicon) Classes() []string {
	out := make([]string, len(lx.classes))
	for i, c := range lx.classes {
		out[i] = c.name
	}
	return out
}

// Literals returns the grammar tokens matched verbatim.
func (lx *Lexicon) Literals() []string {
	out := make([]string, len(lx.literals))
	for i, t := range lx.literals {
		out[i] = t.Name
	}
	return out
}

// Lexer returns a lexer over input.
func (lx *Lexicon) Lexer(input []byte, filename string) *Lexer {
	return newLexer(lx, input, filename)
}

func isClassName(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func (lx *Lexicon) String() string {
	return fmt.Sprintf("lexicon(classes=%s; literals=%d)", strings.Join(lx.Classes(), ","), len(lx.literals))
}
