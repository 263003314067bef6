package grammar

import (
	"fmt"
	"io"
	"strings"

	"github.com/tliron/commonlog"
)

// Reserved token names. These exist in every Grammar.
const (
	EndOfInputName = "END_OF_INPUT"
	ErrorName      = "ERROR"
	WildcardName   = "WILDCARD"
	GoalName       = "GOAL"
)

var log = commonlog.GetLogger("parjac.grammar")

// Grammar owns all tokens, rules and rule groups. Ids are handed out
// monotonically and never reused. Once read and validated a Grammar is
// immutable and may be shared by concurrent parses.
type Grammar struct {
	tokens      []*Token // index == TokenID, slot 0 unused
	tokenByName map[string]*Token

	groups      []*RuleGroup // index == GroupID, slot 0 unused
	groupByName map[string]*RuleGroup

	rules []*Rule // index == RuleID, slot 0 unused

	endOfInput *Token
	errorToken *Token
	wildcard   *Token
}

// New creates a grammar containing only the reserved tokens.
func New() *Grammar {
	g := &Grammar{
		tokens:      []*Token{nil},
		tokenByName: make(map[string]*Token),
		groups:      []*RuleGroup{nil},
		groupByName: make(map[string]*RuleGroup),
		rules:       []*Rule{nil},
	}
	g.endOfInput = g.Token(EndOfInputName)
	g.errorToken = g.Token(ErrorName)
	g.wildcard = g.Token(WildcardName)
	return g
}

// Clone returns a grammar that can be extended with extra rules without
// touching g. Registries and rule groups are copied; tokens and rules are
// shared.
func (g *Grammar) Clone() *Grammar {
	c := &Grammar{
		tokens:      append([]*Token(nil), g.tokens...),
		tokenByName: make(map[string]*Token, len(g.tokenByName)),
		groups:      make([]*RuleGroup, len(g.groups)),
		groupByName: make(map[string]*RuleGroup, len(g.groupByName)),
		rules:       append([]*Rule(nil), g.rules...),
		endOfInput:  g.endOfInput,
		errorToken:  g.errorToken,
		wildcard:    g.wildcard,
	}
	for name, t := range g.tokenByName {
		c.tokenByName[name] = t
	}
	for i, rg := range g.groups {
		if rg == nil {
			continue
		}
		cp := &RuleGroup{
			ID:    rg.ID,
			Name:  rg.Name,
			Rules: append([]*Rule(nil), rg.Rules...),
		}
		c.groups[i] = cp
		c.groupByName[cp.Name] = cp
	}
	return c
}

func (g *Grammar) EndOfInput() *Token { return g.endOfInput }
func (g *Grammar) Error() *Token { return g.errorToken }
func (g *Grammar) Wildcard() *Token { return g.wildcard }

// IsReserved reports whether t is one of the tokens every grammar carries.
func (g *Grammar) IsReserved(t *Token) bool {
	return t == g.endOfInput || t == g.errorToken || t == g.wildcard
}

// Token returns the token called name, creating it if needed.
func (g *Grammar) Token(name string) *Token {
	if t, ok := g.tokenByName[name]; ok {
		return t
	}
	t := &Token{Name: name, ID: TokenID(len(g.tokens))}
	g.tokens = append(g.tokens, t)
	g.tokenByName[name] = t
	return t
}

// LookupToken returns the token called name without creating it.
func (g *Grammar) LookupToken(name string) (*Token, bool) {
	t, ok := g.tokenByName[name]
	return t, ok
}

// TokenByID returns nil for ids never assigned.
func (g *Grammar) TokenByID(id TokenID) *Token {
	if int(id) >= len(g.tokens) {
		return nil
	}
	return g.tokens[id]
}

// Tokens returns all tokens in id order.
func (g *Grammar) Tokens() []*Token {
	return g.tokens[1:]
}

// NumTokens returns the highest assigned token id.
func (g *Grammar) NumTokens() int {
	return len(g.tokens) - 1
}

// GroupID returns the nonterminal id for name, creating an empty group if
// needed so grammar text can reference names before defining them.
func (g *Grammar) GroupID(name string) GroupID {
	return g.group(name).ID
}

func (g *Grammar) group(name string) *RuleGroup {
	if rg, ok := g.groupByName[name]; ok {
		return rg
	}
	rg := &RuleGroup{ID: GroupID(len(g.groups)), Name: name}
	g.groups = append(g.groups, rg)
	g.groupByName[name] = rg
	return rg
}

// LookupGroup returns the group called name without creating it.
func (g *Grammar) LookupGroup(name string) (*RuleGroup, bool) {
	rg, ok := g.groupByName[name]
	return rg, ok
}

// Group returns nil for ids never assigned.
func (g *Grammar) Group(id GroupID) *RuleGroup {
	if int(id) >= len(g.groups) {
		return nil
	}
	return g.groups[id]
}

// Groups returns all rule groups in id order.
func (g *Grammar) Groups() []*RuleGroup {
	return g.groups[1:]
}

// NumGroups returns the highest assigned group id.
func (g *Grammar) NumGroups() int {
	return len(g.groups) - 1
}

// AddRule appends a new alternative to the group called name.
func (g *Grammar) AddRule(name string, rhs ...Symbol) *Rule {
	rg := g.group(name)
	r := &Rule{
		Name:  name,
		ID:    RuleID(len(g.rules)),
		Group: rg.ID,
		RHS:   append([]Symbol(nil), rhs...),
	}
	g.rules = append(g.rules, r)
	rg.Rules = append(rg.Rules, r)
	return r
}

// AddGoal adds the rule GOAL -> start END_OF_INPUT and returns it.
func (g *Grammar) AddGoal(start string) *Rule {
	return g.AddRule(GoalName, NonTerminal(g.GroupID(start)), g.endOfInput.Symbol())
}

// Rule returns nil for ids never assigned.
func (g *Grammar) Rule(id RuleID) *Rule {
	if int(id) >= len(g.rules) {
		return nil
	}
	return g.rules[id]
}

// Rules returns all rules in id order.
func (g *Grammar) Rules() []*Rule {
	return g.rules[1:]
}

// NumRules returns the highest assigned rule id.
func (g *Grammar) NumRules() int {
	return len(g.rules) - 1
}

// SymbolName renders s the way grammar text writes it.
func (g *Grammar) SymbolName(s Symbol) string {
	switch s.Kind() {
	case KindTerminal:
		if t := g.TokenByID(s.Token()); t != nil {
			return t.String()
		}
	case KindNonTerminal:
		if rg := g.Group(s.Group()); rg != nil {
			return rg.Name
		}
	}
	return s.String()
}

// RuleString renders r as "Name -> a 'b' c".
func (g *Grammar) RuleString(r *Rule) string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	sb.WriteString(" ->")
	for _, s := range r.RHS {
		sb.WriteByte(' ')
		sb.WriteString(g.SymbolName(s))
	}
	return sb.String()
}

// Dump writes every rule in id order.
func (g *Grammar) Dump(w io.Writer) error {
	for _, r := range g.Rules() {
		if _, err := fmt.Fprintln(w, g.RuleString(r)); err != nil {
			return err
		}
	}
	return nil
}

// ValidationError describes a malformed rule or group.
type ValidationError struct {
	Name string
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Msg)
}

// Validate reports empty rules and groups that never received a rule. The
// problems are logged as warnings and returned; they never invalidate the
// grammar since the offending parts may be unreachable.
func (g *Grammar) Validate() []error {
	var errs []error
	for _, r := range g.Rules() {
		if r.Len() == 0 {
			errs = append(errs, &ValidationError{Name: r.Name, Msg: fmt.Sprintf("rule %d has an empty right-hand side", r.ID)})
		}
	}
	for _, rg := range g.Groups() {
		if len(rg.Rules) == 0 {
			errs = append(errs, &ValidationError{Name: rg.Name, Msg: "referenced but has no rules"})
		}
	}
	for _, err := range errs {
		log.Warningf("invalid grammar: %s", err)
	}
	return errs
}
