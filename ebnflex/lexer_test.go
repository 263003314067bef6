package ebnflex

import (
	"strings"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/exp/ebnf"

	"github.com/Thihup/parjac2-sub001/diag"
	"github.com/Thihup/parjac2-sub001/grammar"
	"github.com/Thihup/parjac2-sub001/parse"
)

const testLexicon = `
Identifier = letter { letter | digit } .
IntegerLiteral = digit { digit } .
WhiteSpace = " " | "\t" | "\n" .
Comment = "/*" { letter | digit | " " } "*/" .
letter = "a" … "z" | "A" … "Z" | "_" .
digit = "0" … "9" .
`

const testGrammar = `
S: { Stmt }
Stmt:
	'if' Expr Stmt
	'Identifier' '=' Expr ';'
Expr:
	'Identifier'
	'IntegerLiteral'
	Expr '>>' Expr
	Expr '>' Expr
`

func newTestLexicon(t *testing.T, opts ...Option) *Lexicon {
	t.Helper()
	g := grammar.New()
	if err := grammar.Read(g, strings.NewReader(testGrammar), "test.txt"); err != nil {
		t.Fatalf("read grammar: %v", err)
	}
	lex, err := ebnf.Parse("test.ebnf", strings.NewReader(testLexicon))
	if err != nil {
		t.Fatalf("parse lexicon: %v", err)
	}
	lx, err := NewLexicon(lex, g, opts...)
	if err != nil {
		t.Fatalf("NewLexicon: %v", err)
	}
	return lx
}

type scanned struct {
	name string
	text string
}

func scanAll(l *Lexer) []scanned {
	var out []scanned
	for l.HasMoreTokens() {
		tok := l.NextToken(nil)
		out = append(out, scanned{tok.Name, l.TokenText()})
	}
	return out
}

func TestLexiconBinding(t *testing.T) {
	lx := newTestLexicon(t)
	if got := strings.Join(lx.Classes(), " "); got != "Identifier IntegerLiteral" {
		t.Errorf("Classes = %q", got)
	}
	got := lx.Literals()
	want := []string{"if", "=", ";", ">>", ">"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Literals = %v, want %v", got, want)
	}
}

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		input string
		want  []scanned
	}{
		{
			input: "if iffy x1 = 42;",
			want: []scanned{
				{"if", "if"},
				{"Identifier", "iffy"},
				{"Identifier", "x1"},
				{"=", "="},
				{"IntegerLiteral", "42"},
				{";", ";"},
				{"END_OF_INPUT", ""},
			},
		},
		{
			input: "  /* note 1 */ a>>b ",
			want: []scanned{
				{"Identifier", "a"},
				{">>", ">>"},
				{"Identifier", "b"},
				{"END_OF_INPUT", ""},
			},
		},
		{
			input: "",
			want:  []scanned{{"END_OF_INPUT", ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lx := newTestLexicon(t)
			got := scanAll(lx.Lexer([]byte(tt.input), "t.java"))
			if len(got) != len(tt.want) {
				t.Fatalf("tokens = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLexerPrefersWantedTokens(t *testing.T) {
	lx := newTestLexicon(t)
	g := lx.Grammar()
	gt := g.Token(">")

	wanted := bitset.New(uint(g.NumTokens()) + 1)
	wanted.Set(uint(gt.ID))

	l := lx.Lexer([]byte(">>"), "t.java")
	for i := 0; i < 2; i++ {
		if tok := l.NextToken(wanted); tok != gt || l.TokenText() != ">" {
			t.Fatalf("token %d = %v %q, want '>'", i, tok, l.TokenText())
		}
	}
	if tok := l.NextToken(wanted); tok != g.EndOfInput() {
		t.Errorf("last token = %v, want END_OF_INPUT", tok)
	}

	wanted.Set(uint(g.Wildcard().ID))
	l = lx.Lexer([]byte(">>"), "t.java")
	if tok := l.NextToken(wanted); tok.Name != ">>" {
		t.Errorf("with WILDCARD wanted got %v, want '>>'", tok)
	}
}

func TestLexerPositions(t *testing.T) {
	lx := newTestLexicon(t)
	l := lx.Lexer([]byte("a\n  bb"), "t.java")

	l.NextToken(nil)
	if got, want := l.ParsePosition(), (diag.ParsePosition{Line: 1, Column: 1, TokenStart: 0, TokenEnd: 1}); got != want {
		t.Errorf("a at %+v, want %+v", got, want)
	}
	l.NextToken(nil)
	if got, want := l.ParsePosition(), (diag.ParsePosition{Line: 2, Column: 3, TokenStart: 4, TokenEnd: 6}); got != want {
		t.Errorf("bb at %+v, want %+v", got, want)
	}
	l.NextToken(nil)
	if got := l.ParsePosition(); got.Line != 2 || got.Column != 5 || got.TokenStart != 6 {
		t.Errorf("END_OF_INPUT at %+v", got)
	}
	if l.HasMoreTokens() {
		t.Errorf("HasMoreTokens after END_OF_INPUT")
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
		text    string
	}{
		{"a # b", "unexpected character '#'", "#"},
		{"a \xff b", "invalid UTF-8 encoding", "\xff"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			lx := newTestLexicon(t)
			g := lx.Grammar()
			l := lx.Lexer([]byte(tt.input), "t.java")

			l.NextToken(nil)
			if tok := l.NextToken(nil); tok != g.Error() {
				t.Fatalf("token = %v, want ERROR", tok)
			}
			if l.LastError() != tt.message {
				t.Errorf("LastError = %q, want %q", l.LastError(), tt.message)
			}
			if l.TokenText() != tt.text || l.ParsePosition().Column != 3 {
				t.Errorf("error token %q at %v", l.TokenText(), l.ParsePosition())
			}
			if tok := l.NextToken(nil); tok.Name != "Identifier" || l.TokenText() != "b" {
				t.Errorf("scanning did not resume after the error: %v %q", tok, l.TokenText())
			}
		})
	}
}

func TestLexerWithSkip(t *testing.T) {
	lx := newTestLexicon(t, WithSkip())
	l := lx.Lexer([]byte("a b"), "t.java")
	l.NextToken(nil)
	if tok := l.NextToken(nil); tok != lx.Grammar().Error() {
		t.Errorf("unskipped space scanned as %v", tok)
	}
}

func TestLexerDrivesParser(t *testing.T) {
	lx := newTestLexicon(t)
	g := lx.Grammar().Clone()
	goal := g.AddGoal("S")
	lx, err := NewLexicon(lx.ebnf, g)
	if err != nil {
		t.Fatal(err)
	}
	cache := parse.NewPredictCache(g)

	var list diag.List
	src := "x = a >> 2;\nif y z = 3;"
	p, err := parse.New(g, "t.java", cache, lx.Lexer([]byte(src), "t.java"), &list)
	if err != nil {
		t.Fatal(err)
	}
	tree, ok := p.Parse(goal)
	if !ok {
		t.Fatalf("parse failed: %v", list.Diagnostics())
	}
	leaves := tree.Start().Tokens()
	if len(leaves) != 12 {
		t.Fatalf("tree has %d leaves, want 12", len(leaves))
	}
	if last := leaves[len(leaves)-1]; last.Span.Start.Line != 2 || last.Text != ";" {
		t.Errorf("last leaf %q at %v", last.Text, last.Span.Start)
	}

	var errs diag.List
	p, err = parse.New(g, "t.java", cache, lx.Lexer([]byte("x = ;"), "t.java"), &errs)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Parse(goal); ok {
		t.Fatal("parse of x = ; succeeded")
	}
	diags := errs.Diagnostics()
	if len(diags) != 1 || !strings.HasPrefix(diags[0].Message, "unexpected token ';'") || diags[0].Pos.Column != 5 {
		t.Errorf("diagnostics = %v", diags)
	}
}
