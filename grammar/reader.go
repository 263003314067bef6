package grammar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/dgryski/go-farm"
)

// SyntaxError is a problem in grammar text that prevents reading it.
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// part is one element of a production line before lowering.
type part interface {
	canonical(sb *strings.Builder)
}

type sequence []part

// literal is a terminal named by its exact text.
type literal string

// reference is a nonterminal named by a bare word.
type reference string

// optional is [ body ].
type optional struct {
	body sequence
}

// repeated is { body }.
type repeated struct {
	body sequence
}

func (s sequence) canonical(sb *strings.Builder) {
	for i, p := range s {
		if i > 0 {
			sb.WriteByte(' ')
		}
		p.canonical(sb)
	}
}

func (s sequence) String() string {
	var sb strings.Builder
	s.canonical(&sb)
	return sb.String()
}

func (l literal) canonical(sb *strings.Builder) {
	sb.WriteByte('\'')
	for _, r := range string(l) {
		if r == '\'' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('\'')
}

func (r reference) canonical(sb *strings.Builder) {
	sb.WriteString(string(r))
}

func (o optional) canonical(sb *strings.Builder) {
	sb.WriteString("[")
	o.body.canonical(sb)
	sb.WriteString("]")
}

func (z repeated) canonical(sb *strings.Builder) {
	sb.WriteString("{")
	z.body.canonical(sb)
	sb.WriteString("}")
}

type repetitionEntry struct {
	body  string
	group GroupID
}

const repetitionPrefix = "_ZOM"

// Reader lowers grammar text into plain BNF rules of a Grammar. Optional
// groups are expanded into alternatives and repetitions become synthetic
// left-recursive nonterminals shared by structural content.
type Reader struct {
	g           *Grammar
	file        string
	line        int
	current     string
	repetitions map[uint64][]repetitionEntry
	count       int
}

// NewReader returns a reader adding rules to g. One Reader may read
// several files into the same grammar; repetitions stay shared between them.
// Repetitions already in g, from an earlier Read or a cloned base, are
// reused rather than defined again.
func NewReader(g *Grammar) *Reader {
	rd := &Reader{
		g:           g,
		repetitions: make(map[uint64][]repetitionEntry),
	}
	for _, rg := range g.Groups() {
		n, body, ok := parseRepetitionName(rg.Name)
		if !ok {
			continue
		}
		h := farm.Fingerprint64([]byte(body))
		rd.repetitions[h] = append(rd.repetitions[h], repetitionEntry{body: body, group: rg.ID})
		rd.count = max(rd.count, n)
	}
	return rd
}

// parseRepetitionName splits "_ZOM<n>{body}" into n and body.
func parseRepetitionName(name string) (int, string, bool) {
	rest, ok := strings.CutPrefix(name, repetitionPrefix)
	if !ok || !strings.HasSuffix(rest, "}") {
		return 0, "", false
	}
	open := strings.IndexByte(rest, '{')
	if open <= 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(rest[:open])
	if err != nil {
		return 0, "", false
	}
	return n, rest[open+1 : len(rest)-1], true
}

// Read reads grammar text into g.
func Read(g *Grammar, r io.Reader, name string) error {
	return NewReader(g).Read(r, name)
}

// ReadFile reads the grammar file at path into g.
func ReadFile(g *Grammar, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open grammar: %w", err)
	}
	defer f.Close()
	return Read(g, f, path)
}

// Load reads a grammar file, adds the goal rule for start and validates the
// result. Validation problems are logged, not returned.
func Load(path, start string) (*Grammar, *Rule, error) {
	g := New()
	if err := ReadFile(g, path); err != nil {
		return nil, nil, err
	}
	if _, ok := g.LookupGroup(start); !ok {
		return nil, nil, fmt.Errorf("start rule %q not defined in %s", start, path)
	}
	goal := g.AddGoal(start)
	g.Validate()
	return g, goal, nil
}

func (rd *Reader) Read(r io.Reader, name string) error {
	rd.file = name
	rd.line = 0
	rd.current = ""

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		rd.line++
		if err := rd.readLine(sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read grammar %s: %w", name, err)
	}
	return nil
}

func (rd *Reader) errorf(format string, args ...any) error {
	return &SyntaxError{File: rd.file, Line: rd.line, Msg: fmt.Sprintf(format, args...)}
}

func (rd *Reader) readLine(text string) error {
	items, err := rd.scanLine(text)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	if items[0].kind == itemHeader {
		rd.current = items[0].text
		rd.g.GroupID(rd.current)
		items = items[1:]
		if len(items) == 0 {
			return nil
		}
	}
	if rd.current == "" {
		return rd.errorf("production before any rule name")
	}

	lp := lineParser{items: items}
	seq, err := lp.parseSequence(0)
	if err != nil {
		return rd.errorf("%v", err)
	}
	rd.addAlternatives(rd.current, seq)
	return nil
}

// addAlternatives registers every distinct, non-empty lowering of seq.
func (rd *Reader) addAlternatives(name string, seq sequence) {
	alts := rd.lower(seq, [][]Symbol{nil})
	seen := make(map[string]bool, len(alts))
	for _, alt := range alts {
		if len(alt) == 0 {
			continue
		}
		key := fmt.Sprint(alt)
		if seen[key] {
			continue
		}
		seen[key] = true
		rd.g.AddRule(name, alt...)
	}
}

// lower appends the expansion of seq to every alternative in alts. Each
// optional group doubles the alternative set.
func (rd *Reader) lower(seq sequence, alts [][]Symbol) [][]Symbol {
	for _, p := range seq {
		switch p := p.(type) {
		case literal:
			alts = appendEach(alts, rd.g.Token(string(p)).Symbol())
		case reference:
			alts = appendEach(alts, NonTerminal(rd.g.GroupID(string(p))))
		case optional:
			with := rd.lower(p.body, cloneAll(alts))
			alts = append(alts, with...)
		case repeated:
			z := NonTerminal(rd.repetition(p.body))
			with := appendEach(cloneAll(alts), z)
			alts = append(alts, with...)
		}
	}
	return alts
}

// repetition returns the nonterminal standing for one or more body, defined
// as Z -> [Z] body. Equal bodies share one nonterminal.
func (rd *Reader) repetition(body sequence) GroupID {
	canon := body.String()
	h := farm.Fingerprint64([]byte(canon))
	for _, e := range rd.repetitions[h] {
		if e.body == canon {
			return e.group
		}
	}

	rd.count++
	name := fmt.Sprintf("%s%d{%s}", repetitionPrefix, rd.count, canon)
	id := rd.g.GroupID(name)
	rd.repetitions[h] = append(rd.repetitions[h], repetitionEntry{body: canon, group: id})

	def := sequence{optional{body: sequence{reference(name)}}}
	def = append(def, body...)
	rd.addAlternatives(name, def)
	return id
}

func appendEach(alts [][]Symbol, s Symbol) [][]Symbol {
	for i, a := range alts {
		alts[i] = append(a[:len(a):len(a)], s)
	}
	return alts
}

func cloneAll(alts [][]Symbol) [][]Symbol {
	out := make([][]Symbol, len(alts))
	for i, a := range alts {
		out[i] = append([]Symbol(nil), a...)
	}
	return out
}

type itemKind int

const (
	itemHeader itemKind = iota
	itemName
	itemLiteral
	itemOpen
	itemClose
)

type lineItem struct {
	kind itemKind
	text string
}

// scanLine splits a line into header, names, literals and brackets. A #
// outside a literal ends the line.
func (rd *Reader) scanLine(text string) ([]lineItem, error) {
	var items []lineItem
	rs := []rune(text)
	for i := 0; i < len(rs); {
		ch := rs[i]
		switch {
		case unicode.IsSpace(ch):
			i++
		case ch == '#':
			return items, nil
		case ch == '[' || ch == '{':
			items = append(items, lineItem{kind: itemOpen, text: string(ch)})
			i++
		case ch == ']' || ch == '}':
			items = append(items, lineItem{kind: itemClose, text: string(ch)})
			i++
		case ch == '\'':
			var sb strings.Builder
			j := i + 1
			closed := false
			for j < len(rs) {
				c := rs[j]
				if c == '\\' && j+1 < len(rs) {
					sb.WriteRune(rs[j+1])
					j += 2
					continue
				}
				if c == '\'' {
					closed = true
					break
				}
				sb.WriteRune(c)
				j++
			}
			if !closed {
				return nil, rd.errorf("unterminated literal")
			}
			if sb.Len() == 0 {
				return nil, rd.errorf("empty literal")
			}
			items = append(items, lineItem{kind: itemLiteral, text: sb.String()})
			i = j + 1
		case isNameRune(ch):
			j := i
			for j < len(rs) && isNameRune(rs[j]) {
				j++
			}
			word := string(rs[i:j])
			if j < len(rs) && rs[j] == ':' {
				if len(items) > 0 {
					return nil, rd.errorf("rule name %q must start the line", word)
				}
				items = append(items, lineItem{kind: itemHeader, text: word})
				i = j + 1
				continue
			}
			items = append(items, lineItem{kind: itemName, text: word})
			i = j
		default:
			return nil, rd.errorf("unexpected character %q", ch)
		}
	}
	return items, nil
}

func isNameRune(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

type lineParser struct {
	items []lineItem
	pos   int
}

// parseSequence reads items until the matching close bracket, or the end of
// the line when closer is 0.
func (lp *lineParser) parseSequence(closer byte) (sequence, error) {
	var seq sequence
	for lp.pos < len(lp.items) {
		it := lp.items[lp.pos]
		lp.pos++
		switch it.kind {
		case itemName:
			seq = append(seq, reference(it.text))
		case itemLiteral:
			seq = append(seq, literal(it.text))
		case itemOpen:
			want := byte(']')
			if it.text == "{" {
				want = '}'
			}
			body, err := lp.parseSequence(want)
			if err != nil {
				return nil, err
			}
			if len(body) == 0 {
				return nil, fmt.Errorf("empty %s%c group", it.text, want)
			}
			if want == ']' {
				seq = append(seq, optional{body: body})
			} else {
				seq = append(seq, repeated{body: body})
			}
		case itemClose:
			if closer == 0 || it.text[0] != closer {
				return nil, fmt.Errorf("unexpected %q", it.text)
			}
			return seq, nil
		case itemHeader:
			return nil, fmt.Errorf("unexpected rule name %q", it.text)
		}
	}
	if closer != 0 {
		return nil, fmt.Errorf("missing %q", string(closer))
	}
	return seq, nil
}
