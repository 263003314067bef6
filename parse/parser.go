// Package parse runs an Earley-style chart parser over a token stream using
// a shared Grammar and PredictCache.
package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/tliron/commonlog"

	"github.com/Thihup/parjac2-sub001/diag"
	"github.com/Thihup/parjac2-sub001/grammar"
)

var log = commonlog.GetLogger("parjac.parse")

const (
	noEntry = -1

	// DefaultAmbiguityLimit caps the number of alternative parses counted.
	DefaultAmbiguityLimit = 1 << 20
)

// item means: rule has matched its first dot symbols starting at token
// position origin.
type item struct {
	rule   grammar.RuleID
	dot    uint16
	origin uint32
}

type entry struct {
	item
	deriv int32 // head of the derivation list, noEntry for a seeded item
}

// derivation records one way an entry was reached: pred is the entry one dot
// earlier (noEntry when that was a prediction), and the matched symbol is
// either the completed entry child or the scanned leaf token.
type derivation struct {
	pred  int32
	child int32
	token int32
	next  int32
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger replaces the package logger.
func WithLogger(l commonlog.Logger) Option {
	return func(p *Parser) {
		p.log = l
	}
}

// WithAmbiguityLimit sets the count at which alternative parses stop being
// counted.
func WithAmbiguityLimit(n int) Option {
	return func(p *Parser) {
		if n > 1 {
			p.ambiguityLimit = n
		}
	}
}

// Parser parses one token stream. It is not safe for concurrent use; create
// one Parser per source.
type Parser struct {
	grammar        *grammar.Grammar
	path           string
	cache          *PredictCache
	lexer          Lexer
	sink           diag.Collector
	log            commonlog.Logger
	ambiguityLimit int

	entries  []entry
	derivs   []derivation
	starts   []int32 // first entry of each position
	predicts []*PredictGroup
	waiting  []map[grammar.GroupID][]int32
	leaves   []*Node
	index    map[item]int32 // dedup for the position being filled

	needed *bitset.BitSet
	wanted *bitset.BitSet
}

// ErrGrammarMismatch is returned by New when the prediction cache was built
// for another grammar, such as the base of a Clone.
var ErrGrammarMismatch = errors.New("predict cache belongs to a different grammar")

// New creates a parser for the source identified by path. cache must have
// been created for g.
func New(g *grammar.Grammar, path string, cache *PredictCache, lexer Lexer, sink diag.Collector, opts ...Option) (*Parser, error) {
	if cache == nil || cache.Grammar() != g {
		return nil, fmt.Errorf("parse %s: %w", path, ErrGrammarMismatch)
	}
	p := &Parser{
		grammar:        g,
		path:           path,
		cache:          cache,
		lexer:          lexer,
		sink:           sink,
		log:            log,
		ambiguityLimit: DefaultAmbiguityLimit,
		index:          make(map[item]int32),
		needed:         bitset.New(uint(g.NumGroups() + 1)),
		wanted:         bitset.New(uint(g.NumTokens() + 1)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Stats describes the chart after a parse.
type Stats struct {
	Positions   int
	Entries     int
	Derivations int
}

func (p *Parser) Stats() Stats {
	return Stats{
		Positions:   len(p.starts),
		Entries:     len(p.entries),
		Derivations: len(p.derivs),
	}
}

// Parse drives the chart until the lexer is exhausted or an error is
// reported. It returns the tree and true only when exactly one derivation
// of goal spans the whole input.
func (p *Parser) Parse(goal *grammar.Rule) (*Tree, bool) {
	p.entries = p.entries[:0]
	p.derivs = p.derivs[:0]
	p.predicts = p.predicts[:0]
	p.waiting = p.waiting[:0]
	p.leaves = p.leaves[:0]
	clear(p.index)
	p.starts = append(p.starts[:0], 0)
	p.add(item{rule: goal.ID}, derivation{})

	pos := 0
	for {
		p.complete(pos)
		if !p.lexer.HasMoreTokens() {
			break
		}
		p.predict(pos)
		if !p.scan(pos) {
			return nil, false
		}
		pos++
	}
	tree, ok := p.accept(goal, pos)
	p.log.Debugf("%s: %d positions, %d entries, %d derivations", p.path, len(p.starts), len(p.entries), len(p.derivs))
	return tree, ok
}

// add stores it at the position being filled, or records d as another
// derivation of an existing entry.
func (p *Parser) add(it item, d derivation) {
	if idx, ok := p.index[it]; ok {
		if it.dot > 0 {
			p.addDerivation(idx, d)
		}
		return
	}
	idx := int32(len(p.entries))
	e := entry{item: it, deriv: noEntry}
	if it.dot > 0 {
		d.next = noEntry
		p.derivs = append(p.derivs, d)
		e.deriv = int32(len(p.derivs) - 1)
	}
	p.entries = append(p.entries, e)
	p.index[it] = idx
}

func (p *Parser) addDerivation(idx int32, d derivation) {
	e := &p.entries[idx]
	for i := e.deriv; i != noEntry; i = p.derivs[i].next {
		old := p.derivs[i]
		if old.pred == d.pred && old.child == d.child && old.token == d.token {
			return
		}
	}
	d.next = e.deriv
	p.derivs = append(p.derivs, d)
	e.deriv = int32(len(p.derivs) - 1)
}

// pred returns the entry a step from idx should point back to. Items at dot
// 0 all stand for the same empty prefix, so they are folded into noEntry.
func (p *Parser) pred(idx int32) int32 {
	if p.entries[idx].dot == 0 {
		return noEntry
	}
	return idx
}

func (p *Parser) rule(e entry) *grammar.Rule {
	return p.grammar.Rule(e.rule)
}

// complete advances everything waiting on a finished rule, to a fixpoint.
// Entries appended during the loop are visited by the same loop.
func (p *Parser) complete(pos int) {
	for i := p.starts[pos]; i < int32(len(p.entries)); i++ {
		e := p.entries[i]
		r := p.rule(e)
		if int(e.dot) < r.Len() {
			continue
		}
		origin := int(e.origin)
		for _, w := range p.waitingAt(origin, pos, r.Group) {
			we := p.entries[w]
			p.add(item{rule: we.rule, dot: we.dot + 1, origin: we.origin},
				derivation{pred: p.pred(w), child: i, token: noEntry})
		}
		if origin < len(p.predicts) {
			for _, rid := range p.predicts[origin].Waiting(grammar.NonTerminal(r.Group)) {
				p.add(item{rule: rid, dot: 1, origin: uint32(origin)},
					derivation{pred: noEntry, child: i, token: noEntry})
			}
		}
	}
}

// waitingAt returns the entries at origin whose next symbol is group.
// Finished positions are indexed once.
func (p *Parser) waitingAt(origin, pos int, group grammar.GroupID) []int32 {
	if origin < pos && origin < len(p.waiting) && p.waiting[origin] != nil {
		return p.waiting[origin][group]
	}
	idx := make(map[grammar.GroupID][]int32)
	for i := p.starts[origin]; i < p.end(origin); i++ {
		e := p.entries[i]
		if next := p.rule(e).At(int(e.dot)); next.IsNonTerminal() {
			idx[next.Group()] = append(idx[next.Group()], i)
		}
	}
	if origin < pos {
		for len(p.waiting) <= origin {
			p.waiting = append(p.waiting, nil)
		}
		p.waiting[origin] = idx
	}
	return idx[group]
}

func (p *Parser) end(pos int) int32 {
	if pos+1 < len(p.starts) {
		return p.starts[pos+1]
	}
	return int32(len(p.entries))
}

// predict resolves the nonterminals expected at pos through the cache. The
// needed set is scratch space; the cache snapshots it.
func (p *Parser) predict(pos int) {
	p.needed.ClearAll()
	for i := p.starts[pos]; i < p.end(pos); i++ {
		e := p.entries[i]
		if next := p.rule(e).At(int(e.dot)); next.IsNonTerminal() {
			p.needed.Set(uint(next.Group()))
		}
	}
	p.predicts = append(p.predicts, p.cache.Predict(p.needed))
}

// scan reads one token and moves every item expecting it to pos+1.
func (p *Parser) scan(pos int) bool {
	pg := p.predicts[pos]
	p.wanted.ClearAll()
	p.wanted.InPlaceUnion(pg.Tokens())
	for i := p.starts[pos]; i < p.end(pos); i++ {
		e := p.entries[i]
		if next := p.rule(e).At(int(e.dot)); next.IsTerminal() {
			p.wanted.Set(uint(next.Token()))
		}
	}

	tok := p.lexer.NextToken(p.wanted)
	at := p.lexer.ParsePosition()
	if tok == nil || tok == p.grammar.Error() {
		msg := p.lexer.LastError()
		if msg == "" {
			msg = "unrecognized input"
		}
		p.report(at, "lexical error: %s", msg)
		return false
	}
	wild := p.wanted.Test(uint(p.grammar.Wildcard().ID)) && !p.grammar.IsReserved(tok)
	if !p.wanted.Test(uint(tok.ID)) && !wild {
		p.report(at, "unexpected token %s, expected one of: %s", p.describe(tok), p.expected())
		return false
	}

	leaf := int32(len(p.leaves))
	text := p.lexer.TokenText()
	p.leaves = append(p.leaves, &Node{Token: tok, Text: text, Span: Span{Start: at, End: at}})

	p.starts = append(p.starts, int32(len(p.entries)))
	clear(p.index)

	syms := []grammar.Symbol{tok.Symbol()}
	if wild {
		syms = append(syms, p.grammar.Wildcard().Symbol())
	}
	for _, sym := range syms {
		for i := p.starts[pos]; i < p.starts[pos+1]; i++ {
			e := p.entries[i]
			if p.rule(e).At(int(e.dot)) == sym {
				p.add(item{rule: e.rule, dot: e.dot + 1, origin: e.origin},
					derivation{pred: p.pred(i), child: noEntry, token: leaf})
			}
		}
		for _, rid := range pg.Waiting(sym) {
			p.add(item{rule: rid, dot: 1, origin: uint32(pos)},
				derivation{pred: noEntry, child: noEntry, token: leaf})
		}
	}
	return true
}

func (p *Parser) describe(tok *grammar.Token) string {
	text := p.lexer.TokenText()
	if text == "" || text == tok.Name {
		return tok.String()
	}
	return fmt.Sprintf("%s (%q)", tok, text)
}

// expected lists the names in the wanted set, in token id order.
func (p *Parser) expected() string {
	var names []string
	for i, ok := p.wanted.NextSet(0); ok; i, ok = p.wanted.NextSet(i + 1) {
		if t := p.grammar.TokenByID(grammar.TokenID(i)); t != nil {
			names = append(names, t.String())
		}
	}
	return strings.Join(names, ", ")
}

func (p *Parser) report(at diag.ParsePosition, format string, args ...any) {
	p.sink.Report(diag.Diagnostic{
		Severity: diag.Error,
		Path:     p.path,
		Pos:      at,
		Message:  fmt.Sprintf(format, args...),
	})
}

// accept looks for the finished goal at the last position and checks that
// it has exactly one parse.
func (p *Parser) accept(goal *grammar.Rule, pos int) (*Tree, bool) {
	idx, ok := p.index[item{rule: goal.ID, dot: uint16(goal.Len()), origin: 0}]
	if !ok {
		p.report(diag.ParsePosition{}, "did not find any finishing state")
		return nil, false
	}
	if n := p.countTrees(idx); n > 1 {
		if n >= p.ambiguityLimit {
			p.report(diag.ParsePosition{}, "ambiguous grammar: found at least %d alternative parses", n)
		} else {
			p.report(diag.ParsePosition{}, "ambiguous grammar: found %d alternative parses", n)
		}
		return nil, false
	}
	return &Tree{Grammar: p.grammar, Path: p.path, Root: p.build(idx)}, true
}

// countTrees returns how many distinct trees entry idx stands for, capped at
// the ambiguity limit. A cycle among derivations means unboundedly many.
func (p *Parser) countTrees(idx int32) int {
	memo := make([]int, len(p.entries)) // 0 unknown, -1 in progress, else count+1
	var count func(i int32) int
	count = func(i int32) int {
		switch m := memo[i]; {
		case m == -1:
			return p.ambiguityLimit
		case m > 0:
			return m - 1
		}
		memo[i] = -1
		total := 0
		if p.entries[i].deriv == noEntry {
			total = 1
		}
		for d := p.entries[i].deriv; d != noEntry; d = p.derivs[d].next {
			dv := p.derivs[d]
			n := 1
			if dv.pred != noEntry {
				n = p.saturate(n * count(dv.pred))
			}
			if dv.child != noEntry {
				n = p.saturate(n * count(dv.child))
			}
			total = p.saturate(total + n)
		}
		memo[i] = total + 1
		return total
	}
	return count(idx)
}

func (p *Parser) saturate(n int) int {
	if n > p.ambiguityLimit || n < 0 {
		return p.ambiguityLimit
	}
	return n
}

// build follows the first derivation of each entry back to dot 0.
func (p *Parser) build(idx int32) *Node {
	e := p.entries[idx]
	r := p.rule(e)
	children := make([]*Node, e.dot)
	for i, d := idx, e.deriv; d != noEntry; {
		dv := p.derivs[d]
		pos := int(p.entries[i].dot) - 1
		if dv.child != noEntry {
			children[pos] = p.build(dv.child)
		} else {
			children[pos] = p.leaves[dv.token]
		}
		if dv.pred == noEntry {
			break
		}
		i = dv.pred
		d = p.entries[i].deriv
	}
	n := &Node{Rule: r}
	for _, c := range children {
		n.AddChild(c)
	}
	return n
}
