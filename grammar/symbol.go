// Package grammar holds the BNF grammar model shared by all parses: tokens,
// rules, rule groups and the reader that lowers grammar text into them.
package grammar

import "fmt"

// TokenID identifies a terminal within one Grammar. Zero is never assigned.
type TokenID uint32

// GroupID identifies a nonterminal (a RuleGroup). Zero is never assigned.
type GroupID uint32

// RuleID identifies a single production. Zero is never assigned.
type RuleID uint32

// SymbolKind discriminates the two halves of Symbol.
type SymbolKind uint8

const (
	KindNone SymbolKind = iota
	KindTerminal
	KindNonTerminal
)

func (k SymbolKind) String() string {
	switch k {
	case KindTerminal:
		return "terminal"
	case KindNonTerminal:
		return "nonterminal"
	}
	return "none"
}

// Symbol is either a terminal (a Token) or a nonterminal (a RuleGroup).
// The zero Symbol is neither.
type Symbol struct {
	kind SymbolKind
	id   uint32
}

func Terminal(id TokenID) Symbol {
	return Symbol{kind: KindTerminal, id: uint32(id)}
}

func NonTerminal(id GroupID) Symbol {
	return Symbol{kind: KindNonTerminal, id: uint32(id)}
}

func (s Symbol) Kind() SymbolKind { return s.kind }
func (s Symbol) IsTerminal() bool { return s.kind == KindTerminal }
func (s Symbol) IsNonTerminal() bool { return s.kind == KindNonTerminal }
func (s Symbol) IsZero() bool { return s.kind == KindNone }

// Token returns the terminal id. It panics for nonterminals.
func (s Symbol) Token() TokenID {
	if s.kind != KindTerminal {
		panic(fmt.Sprintf("grammar: %v is not a terminal", s))
	}
	return TokenID(s.id)
}

// Group returns the nonterminal id. It panics for terminals.
func (s Symbol) Group() GroupID {
	if s.kind != KindNonTerminal {
		panic(fmt.Sprintf("grammar: %v is not a nonterminal", s))
	}
	return GroupID(s.id)
}

func (s Symbol) String() string {
	switch s.kind {
	case KindTerminal:
		return fmt.Sprintf("T%d", s.id)
	case KindNonTerminal:
		return fmt.Sprintf("N%d", s.id)
	}
	return "<none>"
}

// Token is a terminal symbol. Tokens are interned by name inside a Grammar.
type Token struct {
	Name string
	ID   TokenID
}

func (t *Token) Symbol() Symbol {
	return Terminal(t.ID)
}

func (t *Token) String() string {
	return "'" + t.Name + "'"
}

// Rule is one production: Name -> RHS.
type Rule struct {
	Name  string
	ID    RuleID
	Group GroupID
	RHS   []Symbol
}

// Len returns the number of right-hand side symbols.
func (r *Rule) Len() int {
	return len(r.RHS)
}

// At returns the symbol at dot position i, or the zero Symbol when the rule
// is fully matched.
func (r *Rule) At(i int) Symbol {
	if i < 0 || i >= len(r.RHS) {
		return Symbol{}
	}
	return r.RHS[i]
}

// Synthetic reports whether the rule was generated while lowering grammar
// text rather than written by hand.
func (r *Rule) Synthetic() bool {
	return len(r.Name) > 0 && r.Name[0] == '_'
}

// RuleGroup is the set of alternatives sharing one production name.
type RuleGroup struct {
	ID    GroupID
	Name  string
	Rules []*Rule
}

func (rg *RuleGroup) Symbol() Symbol {
	return NonTerminal(rg.ID)
}
