package ebnflex

import (
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/exp/ebnf"

	"github.com/Thihup/parjac2-sub001/diag"
	"github.com/Thihup/parjac2-sub001/grammar"
)

// memoKey is used for memoization of match results.
type memoKey struct {
	name   string
	offset int
}

// Lexer scans one input with a Lexicon. It implements parse.Lexer.
type Lexer struct {
	lx       *Lexicon
	input    []byte
	filename string
	pos      int
	line     int
	column   int
	done     bool

	current diag.ParsePosition
	text    string
	err     string

	memo     map[memoKey]int // match length, -1 = no match
	visiting map[memoKey]bool
}

func newLexer(lx *Lexicon, input []byte, filename string) *Lexer {
	return &Lexer{
		lx:       lx,
		input:    input,
		filename: filename,
		line:     1,
		column:   1,
		memo:     make(map[memoKey]int),
		visiting: make(map[memoKey]bool),
	}
}

func (l *Lexer) Filename() string {
	return l.filename
}

func (l *Lexer) HasMoreTokens() bool {
	return !l.done
}

func (l *Lexer) ParsePosition() diag.ParsePosition {
	return l.current
}

func (l *Lexer) TokenText() string {
	return l.text
}

func (l *Lexer) LastError() string {
	return l.err
}

type candidate struct {
	token   *grammar.Token
	length  int
	literal bool
}

// NextToken skips ignorable input and returns the next token. Among the
// tokens that match, those in wanted are preferred, then the longest, then
// literals over classes. A nil wanted set, or one holding WILDCARD, wants
// everything. Class matches spelled like a literal are dropped, so keywords
// stay reserved.
func (l *Lexer) NextToken(wanted *bitset.BitSet) *grammar.Token {
	g := l.lx.grammar
	l.skip()

	if l.pos >= len(l.input) {
		l.done = true
		l.mark(0)
		return g.EndOfInput()
	}

	if r, size := utf8.DecodeRune(l.input[l.pos:]); r == utf8.RuneError && size == 1 {
		l.err = "invalid UTF-8 encoding"
		l.mark(1)
		l.advance(1)
		return g.Error()
	}

	cands := l.candidates()
	if len(cands) == 0 {
		r, size := utf8.DecodeRune(l.input[l.pos:])
		l.err = fmt.Sprintf("unexpected character %q", r)
		l.mark(size)
		l.advance(size)
		return g.Error()
	}

	best := choose(cands, l.wants(wanted))
	l.mark(best.length)
	l.advance(best.length)
	log.Debugf("%s:%d:%d: %s %q", l.filename, l.current.Line, l.current.Column, best.token.Name, l.text)
	return best.token
}

func (l *Lexer) wants(wanted *bitset.BitSet) func(*grammar.Token) bool {
	if wanted == nil || wanted.Test(uint(l.lx.grammar.Wildcard().ID)) {
		return func(*grammar.Token) bool { return true }
	}
	return func(t *grammar.Token) bool { return wanted.Test(uint(t.ID)) }
}

func choose(cands []candidate, wants func(*grammar.Token) bool) candidate {
	pool := cands[:0:0]
	for _, c := range cands {
		if wants(c.token) {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = cands
	}
	best := pool[0]
	for _, c := range pool[1:] {
		if c.length > best.length || (c.length == best.length && c.literal && !best.literal) {
			best = c
		}
	}
	return best
}

func (l *Lexer) candidates() []candidate {
	var out []candidate
	rest := l.input[l.pos:]
	spelled := make(map[string]bool)

	for _, t := range l.lx.literals {
		if t.Name == "" || !bytes.HasPrefix(rest, []byte(t.Name)) {
			continue
		}
		if n := len(t.Name); endsWord(t.Name) && n < len(rest) {
			if r, _ := utf8.DecodeRune(rest[n:]); isWordRune(r) {
				continue
			}
		}
		out = append(out, candidate{token: t, length: len(t.Name), literal: true})
		spelled[t.Name] = true
	}

	clear(l.memo)
	for _, c := range l.lx.classes {
		n := l.matchClass(c.name)
		if n <= 0 || spelled[string(rest[:n])] {
			continue
		}
		out = append(out, candidate{token: c.token, length: n})
	}
	return out
}

func (l *Lexer) skip() {
	for l.pos < len(l.input) {
		clear(l.memo)
		best := 0
		for _, c := range l.lx.skips {
			if n := l.matchClass(c.name); n > best {
				best = n
			}
		}
		if best == 0 {
			return
		}
		l.advance(best)
	}
}

func (l *Lexer) matchClass(name string) int {
	clear(l.visiting)
	return l.matchName(name, l.pos)
}

func (l *Lexer) mark(length int) {
	l.current = diag.ParsePosition{
		Line:       l.line,
		Column:     l.column,
		TokenStart: l.pos,
		TokenEnd:   l.pos + length,
	}
	l.text = string(l.input[l.pos : l.pos+length])
}

func (l *Lexer) advance(n int) {
	end := l.pos + n
	for l.pos < end {
		r, size := utf8.DecodeRune(l.input[l.pos:end])
		l.pos += size
		if r == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
	}
}

// match returns the length of the longest match of expr at offset, or -1.
func (l *Lexer) match(expr ebnf.Expression, offset int) int {
	switch e := expr.(type) {
	case *ebnf.Token:
		if bytes.HasPrefix(l.input[offset:], []byte(e.String)) {
			return len(e.String)
		}
		return -1

	case *ebnf.Range:
		return l.matchRange(e.Begin.String, e.End.String, offset)

	case ebnf.Sequence:
		total := 0
		for _, item := range e {
			n := l.match(item, offset+total)
			if n < 0 {
				return -1
			}
			total += n
		}
		return total

	case ebnf.Alternative:
		best := -1
		for _, alt := range e {
			if n := l.match(alt, offset); n > best {
				best = n
			}
		}
		return best

	case *ebnf.Repetition:
		total := 0
		for {
			n := l.match(e.Body, offset+total)
			if n <= 0 {
				return total
			}
			total += n
		}

	case *ebnf.Option:
		return max(l.match(e.Body, offset), 0)

	case *ebnf.Group:
		return l.match(e.Body, offset)

	case *ebnf.Name:
		return l.matchName(e.String, offset)

	default:
		return -1
	}
}

// matchName matches a production with memoization. Left recursion fails.
func (l *Lexer) matchName(name string, offset int) int {
	key := memoKey{name: name, offset: offset}
	if n, ok := l.memo[key]; ok {
		return n
	}
	if l.visiting[key] {
		return -1
	}

	prod, ok := l.lx.ebnf[name]
	if !ok || prod.Expr == nil {
		l.memo[key] = -1
		return -1
	}

	l.visiting[key] = true
	n := l.match(prod.Expr, offset)
	delete(l.visiting, key)

	l.memo[key] = n
	return n
}

func (l *Lexer) matchRange(begin, end string, offset int) int {
	if offset >= len(l.input) {
		return -1
	}
	lo, _ := utf8.DecodeRuneInString(begin)
	hi, _ := utf8.DecodeRuneInString(end)
	r, size := utf8.DecodeRune(l.input[offset:])
	if r == utf8.RuneError && size <= 1 {
		return -1
	}
	if r >= lo && r <= hi {
		return size
	}
	return -1
}

func endsWord(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
