package parse

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/Thihup/parjac2-sub001/diag"
	"github.com/Thihup/parjac2-sub001/grammar"
)

// Lexer is the token source a Parser pulls from.
//
// NextToken receives the set of token ids the parser can accept at this
// point; a lexer may use it to settle its own ambiguities, such as whether
// ">>" is one token or two. On a lexical failure NextToken returns the
// grammar's ERROR token and LastError describes the problem. END_OF_INPUT is
// returned exactly once, after which HasMoreTokens reports false.
type Lexer interface {
	HasMoreTokens() bool
	NextToken(wanted *bitset.BitSet) *grammar.Token
	ParsePosition() diag.ParsePosition
	// TokenText is the source text of the token last returned.
	TokenText() string
	LastError() string
}

// Lexeme is one pre-scanned token for SliceLexer.
type Lexeme struct {
	Name string
	Text string
	Pos  diag.ParsePosition
}

// SliceLexer replays tokens that were scanned ahead of time. It ignores the
// wanted-token hint.
type SliceLexer struct {
	g       *grammar.Grammar
	lexemes []Lexeme
	pos     int
	done    bool
	current Lexeme
	err     string
}

// NewSliceLexer returns a lexer over lexemes. Names unknown to g turn into
// lexical errors when reached; g is never modified.
func NewSliceLexer(g *grammar.Grammar, lexemes ...Lexeme) *SliceLexer {
	return &SliceLexer{g: g, lexemes: lexemes}
}

// Words builds lexemes whose name and text are both the given word, placed
// on line 1 separated by single spaces.
func Words(words ...string) []Lexeme {
	out := make([]Lexeme, len(words))
	col := 1
	offset := 0
	for i, w := range words {
		out[i] = Lexeme{
			Name: w,
			Text: w,
			Pos:  diag.ParsePosition{Line: 1, Column: col, TokenStart: offset, TokenEnd: offset + len(w)},
		}
		col += len(w) + 1
		offset += len(w) + 1
	}
	return out
}

func (l *SliceLexer) HasMoreTokens() bool {
	return !l.done
}

func (l *SliceLexer) NextToken(wanted *bitset.BitSet) *grammar.Token {
	if l.pos >= len(l.lexemes) {
		l.done = true
		end := diag.ParsePosition{Line: 1, Column: 1}
		if n := len(l.lexemes); n > 0 {
			last := l.lexemes[n-1].Pos
			end = diag.ParsePosition{
				Line:       last.Line,
				Column:     last.Column + last.TokenEnd - last.TokenStart,
				TokenStart: last.TokenEnd,
				TokenEnd:   last.TokenEnd,
			}
		}
		l.current = Lexeme{Name: grammar.EndOfInputName, Pos: end}
		return l.g.EndOfInput()
	}
	l.current = l.lexemes[l.pos]
	l.pos++
	t, ok := l.g.LookupToken(l.current.Name)
	if !ok {
		l.err = fmt.Sprintf("unknown token %q", l.current.Name)
		return l.g.Error()
	}
	return t
}

func (l *SliceLexer) ParsePosition() diag.ParsePosition {
	return l.current.Pos
}

func (l *SliceLexer) TokenText() string {
	return l.current.Text
}

func (l *SliceLexer) LastError() string {
	return l.err
}
