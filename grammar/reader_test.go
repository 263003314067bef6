package grammar

import (
	"errors"
	"strings"
	"testing"
)

func readString(t *testing.T, text string) *Grammar {
	t.Helper()
	g := New()
	if err := Read(g, strings.NewReader(text), "test.txt"); err != nil {
		t.Fatalf("read grammar: %v", err)
	}
	return g
}

func dump(t *testing.T, g *Grammar) []string {
	t.Helper()
	var sb strings.Builder
	if err := g.Dump(&sb); err != nil {
		t.Fatalf("dump: %v", err)
	}
	return strings.Split(strings.TrimSpace(sb.String()), "\n")
}

func TestReaderPlainRules(t *testing.T) {
	g := readString(t, `
# a comment
S:
	'a' B   # trailing comment
	B

B:
	'b'
`)
	got := dump(t, g)
	want := []string{
		"S -> 'a' B",
		"S -> B",
		"B -> 'b'",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("rules =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestReaderInlineProduction(t *testing.T) {
	g := readString(t, "R: 'a' 'b'\n")
	got := dump(t, g)
	if len(got) != 1 || got[0] != "R -> 'a' 'b'" {
		t.Errorf("rules = %v", got)
	}
}

func TestReaderOptionalCrossProduct(t *testing.T) {
	g := readString(t, "R: 'a' ['b'] ['c']\n")
	got := dump(t, g)
	want := []string{
		"R -> 'a'",
		"R -> 'a' 'b'",
		"R -> 'a' 'c'",
		"R -> 'a' 'b' 'c'",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("rules =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestReaderDropsEmptyAndDuplicateAlternatives(t *testing.T) {
	g := readString(t, "R: ['a'] ['a']\n")
	got := dump(t, g)
	want := []string{
		"R -> 'a'",
		"R -> 'a' 'a'",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("rules =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestReaderRepetition(t *testing.T) {
	g := readString(t, "R: 'a' {'b'} 'c'\n")
	got := dump(t, g)
	want := []string{
		"_ZOM1{'b'} -> 'b'",
		"_ZOM1{'b'} -> _ZOM1{'b'} 'b'",
		"R -> 'a' 'c'",
		"R -> 'a' _ZOM1{'b'} 'c'",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("rules =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	for _, r := range g.Rules() {
		if r.Synthetic() != strings.HasPrefix(r.Name, "_ZOM") {
			t.Errorf("Synthetic(%s) = %v", r.Name, r.Synthetic())
		}
	}
}

func countSynthetic(g *Grammar) (groups, rules int) {
	for _, rg := range g.Groups() {
		if strings.HasPrefix(rg.Name, "_ZOM") {
			groups++
			rules += len(rg.Rules)
		}
	}
	return groups, rules
}

func TestReaderRepetitionIsShared(t *testing.T) {
	once := readString(t, "A: 'x' {'b' C}\nC: 'c'\n")
	twice := readString(t, "A: 'x' {'b' C}\nB: 'y' { 'b'   C }\nC: 'c'\n")

	g1, r1 := countSynthetic(once)
	g2, r2 := countSynthetic(twice)
	if g1 != 1 || g2 != 1 {
		t.Errorf("synthetic groups = %d, %d, want 1, 1", g1, g2)
	}
	if r1 != r2 {
		t.Errorf("synthetic rules = %d, %d, want equal", r1, r2)
	}
}

func TestReaderRepetitionSharedAcrossReads(t *testing.T) {
	tests := []struct {
		name   string
		second string
	}{
		{"same body first", "Part: 'x' {'b'}\n"},
		{"other body first", "Part: 'x' {'d'} {'b'}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := readString(t, "S: 'a' {'b'} 'c'\n")
			_, baseRules := countSynthetic(base)

			for _, g := range []*Grammar{base.Clone(), base} {
				if err := Read(g, strings.NewReader(tt.second), "part.txt"); err != nil {
					t.Fatalf("read second text: %v", err)
				}
				rg, ok := g.LookupGroup("_ZOM1{'b'}")
				if !ok {
					t.Fatal("_ZOM1{'b'} not defined")
				}
				if len(rg.Rules) != 2 {
					t.Errorf("_ZOM1{'b'} has %d rules, want 2", len(rg.Rules))
				}
				for _, other := range g.Groups() {
					if other != rg && strings.HasSuffix(other.Name, "{'b'}") {
						t.Errorf("second synthetic group %s for {'b'}", other.Name)
					}
				}
				groups, rules := countSynthetic(g)
				wantGroups := 1 + strings.Count(tt.second, "{'d'}")
				if groups != wantGroups || rules != baseRules+2*(wantGroups-1) {
					t.Errorf("synthetic groups, rules = %d, %d, want %d, %d", groups, rules, wantGroups, baseRules+2*(wantGroups-1))
				}
			}
		})
	}
}

func TestReaderNestedGroups(t *testing.T) {
	g := readString(t, "R: 'a' [ 'b' { 'c' [ 'd' ] } ]\n")
	rg, ok := g.LookupGroup("R")
	if !ok {
		t.Fatal("R not defined")
	}
	if len(rg.Rules) != 3 {
		t.Errorf("R has %d rules, want 3: %v", len(rg.Rules), dump(t, g))
	}
	groups, _ := countSynthetic(g)
	if groups != 1 {
		t.Errorf("synthetic groups = %d, want 1", groups)
	}
}

func TestReaderLiteralEscapes(t *testing.T) {
	g := readString(t, `R: '\'' '\\' '#' '['`+"\n")
	for _, name := range []string{"'", `\`, "#", "["} {
		if _, ok := g.LookupToken(name); !ok {
			t.Errorf("token %q missing", name)
		}
	}
}

func TestReaderSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"no header", "'a'\n", 1},
		{"unterminated literal", "R:\n  'a\n", 2},
		{"unbalanced open", "R: 'a' ['b'\n", 1},
		{"unbalanced close", "R: 'a' 'b']\n", 1},
		{"mismatched close", "R: ['a'}\n", 1},
		{"empty group", "R: 'a' []\n", 1},
		{"stray character", "R:\n\n  'a' | 'b'\n", 3},
		{"header mid line", "R: 'a' S:\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Read(New(), strings.NewReader(tt.text), "bad.txt")
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *SyntaxError", err)
			}
			if se.Line != tt.line {
				t.Errorf("Line = %d, want %d (%v)", se.Line, tt.line, err)
			}
			if se.File != "bad.txt" {
				t.Errorf("File = %q", se.File)
			}
		})
	}
}

func TestReaderForwardReferenceValidation(t *testing.T) {
	g := readString(t, "S: 'a' Undefined\n")
	errs := g.Validate()
	if len(errs) != 1 {
		t.Fatalf("Validate = %v, want one problem", errs)
	}
	if !strings.Contains(errs[0].Error(), "Undefined") {
		t.Errorf("problem = %v", errs[0])
	}
}
