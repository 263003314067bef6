package parse

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/singleflight"

	"github.com/Thihup/parjac2-sub001/grammar"
)

// PredictGroup is the prediction closure of one set of needed nonterminals.
// It is immutable once built and shared by every parse that needs the same
// set.
type PredictGroup struct {
	needed  *bitset.BitSet
	groups  *bitset.BitSet
	tokens  *bitset.BitSet
	rules   []grammar.RuleID
	waiting map[grammar.Symbol][]grammar.RuleID
}

// Needed returns the nonterminal set the group was computed for.
func (pg *PredictGroup) Needed() *bitset.BitSet { return pg.needed }

// Groups returns every nonterminal reachable through first symbols.
func (pg *PredictGroup) Groups() *bitset.BitSet { return pg.groups }

// Tokens returns the terminals some predicted rule starts with. Callers must
// not modify it.
func (pg *PredictGroup) Tokens() *bitset.BitSet { return pg.tokens }

// Rules returns the predicted rules in the order they were reached.
func (pg *PredictGroup) Rules() []grammar.RuleID { return pg.rules }

// Waiting returns the predicted rules whose first symbol is sym.
func (pg *PredictGroup) Waiting(sym grammar.Symbol) []grammar.RuleID {
	return pg.waiting[sym]
}

// PredictCache memoizes PredictGroups for one Grammar. It is safe for
// concurrent use by parsers working on different files.
type PredictCache struct {
	grammar *grammar.Grammar
	groups  sync.Map // setKey -> *PredictGroup
	flight  singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewPredictCache(g *grammar.Grammar) *PredictCache {
	return &PredictCache{grammar: g}
}

func (c *PredictCache) Grammar() *grammar.Grammar {
	return c.grammar
}

// Predict returns the closure for needed. needed may be a scratch set the
// caller reuses; the cache never keeps a reference to it.
func (c *PredictCache) Predict(needed *bitset.BitSet) *PredictGroup {
	key := setKey(needed)
	if v, ok := c.groups.Load(key); ok {
		c.hits.Add(1)
		return v.(*PredictGroup)
	}
	computed := false
	v, _, _ := c.flight.Do(key, func() (any, error) {
		if v, ok := c.groups.Load(key); ok {
			return v, nil
		}
		pg := c.compute(needed.Clone())
		c.groups.Store(key, pg)
		computed = true
		log.Debugf("predicted %d rules for %d needed nonterminals", len(pg.rules), pg.needed.Count())
		return pg, nil
	})
	// Callers that waited on another caller's computation count as hits.
	if computed {
		c.misses.Add(1)
	} else {
		c.hits.Add(1)
	}
	return v.(*PredictGroup)
}

// Stats returns the number of lookups answered from the cache and the number
// of closures computed.
func (c *PredictCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached groups.
func (c *PredictCache) Len() int {
	n := 0
	c.groups.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// compute walks first symbols from needed. seen only grows and work holds
// the nonterminals not yet expanded.
func (c *PredictCache) compute(needed *bitset.BitSet) *PredictGroup {
	g := c.grammar
	pg := &PredictGroup{
		needed:  needed,
		groups:  needed.Clone(),
		tokens:  bitset.New(uint(g.NumTokens() + 1)),
		waiting: make(map[grammar.Symbol][]grammar.RuleID),
	}

	work := make([]grammar.GroupID, 0, needed.Count())
	for i, ok := needed.NextSet(0); ok; i, ok = needed.NextSet(i + 1) {
		work = append(work, grammar.GroupID(i))
	}
	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		rg := g.Group(id)
		if rg == nil {
			continue
		}
		for _, r := range rg.Rules {
			pg.rules = append(pg.rules, r.ID)
			if r.Len() == 0 {
				continue
			}
			first := r.RHS[0]
			pg.waiting[first] = append(pg.waiting[first], r.ID)
			if first.IsTerminal() {
				pg.tokens.Set(uint(first.Token()))
				continue
			}
			if next := first.Group(); !pg.groups.Test(uint(next)) {
				pg.groups.Set(uint(next))
				work = append(work, next)
			}
		}
	}
	return pg
}

// setKey encodes the members of s as deltas so that equal sets give equal
// keys whatever their capacity.
func setKey(s *bitset.BitSet) string {
	buf := make([]byte, 0, 2*s.Count())
	var prev uint
	for i, ok := s.NextSet(0); ok; i, ok = s.NextSet(i + 1) {
		buf = binary.AppendUvarint(buf, uint64(i-prev))
		prev = i
	}
	return string(buf)
}
