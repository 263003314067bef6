package lsp

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Thihup/parjac2-sub001/diag"
)

func TestToProtocol(t *testing.T) {
	src := []byte("class A {\n  int x;\n    int y\n}\n")
	diags := []diag.Diagnostic{
		{
			Severity: diag.Error,
			Path:     "A.java",
			Pos:      diag.ParsePosition{Line: 3, Column: 5, TokenStart: 23, TokenEnd: 26},
			Message:  "unexpected token 'int'",
		},
		{
			Severity: diag.Error,
			Path:     "A.java",
			Message:  "ambiguous grammar: found 2 alternative parses",
		},
		{
			Severity: diag.Warning,
			Pos:      diag.ParsePosition{Line: 1, Column: 1, TokenStart: 0, TokenEnd: 5},
			Message:  "note this",
		},
	}

	got := toProtocol(src, diags)
	if len(got) != 3 {
		t.Fatalf("got %d diagnostics, want 3", len(got))
	}

	want := protocol.Range{
		Start: protocol.Position{Line: 2, Character: 4},
		End:   protocol.Position{Line: 2, Character: 7},
	}
	if got[0].Range != want {
		t.Errorf("Range = %+v, want %+v", got[0].Range, want)
	}
	if *got[0].Severity != protocol.DiagnosticSeverityError || got[0].Message != diags[0].Message {
		t.Errorf("diagnostic = %+v", got[0])
	}
	if got[1].Range != (protocol.Range{}) {
		t.Errorf("positionless Range = %+v, want document start", got[1].Range)
	}
	if *got[2].Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("Severity = %v, want warning", *got[2].Severity)
	}
	if *got[0].Source != "parjac" {
		t.Errorf("Source = %q", *got[0].Source)
	}
}

func TestToRangeCountsUTF16(t *testing.T) {
	// "é" is two bytes and one UTF-16 unit; "𝒳" is four bytes and two units.
	src := []byte("s = \"é\";\nt = \"𝒳\" ;")
	tests := []struct {
		name  string
		pos   diag.ParsePosition
		start protocol.Position
		end   protocol.Position
	}{
		{
			name:  "after two-byte rune",
			pos:   diag.ParsePosition{Line: 1, Column: 8, TokenStart: 8, TokenEnd: 9},
			start: protocol.Position{Line: 0, Character: 7},
			end:   protocol.Position{Line: 0, Character: 8},
		},
		{
			name:  "token holding a surrogate pair",
			pos:   diag.ParsePosition{Line: 2, Column: 5, TokenStart: 14, TokenEnd: 20},
			start: protocol.Position{Line: 1, Character: 4},
			end:   protocol.Position{Line: 1, Character: 8},
		},
		{
			name:  "after surrogate pair",
			pos:   diag.ParsePosition{Line: 2, Column: 9, TokenStart: 21, TokenEnd: 22},
			start: protocol.Position{Line: 1, Character: 9},
			end:   protocol.Position{Line: 1, Character: 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toRange(src, tt.pos)
			if got.Start != tt.start || got.End != tt.end {
				t.Errorf("toRange = %+v, want %+v - %+v", got, tt.start, tt.end)
			}
		})
	}
}

func TestToRangeOutsideSource(t *testing.T) {
	got := toRange(nil, diag.ParsePosition{Line: 4, Column: 3, TokenStart: 50, TokenEnd: 52})
	want := protocol.Position{Line: 3, Character: 2}
	if got.Start != want || got.End != want {
		t.Errorf("toRange = %+v, want empty range at %+v", got, want)
	}
}

func TestToProtocolEmpty(t *testing.T) {
	got := toProtocol(nil, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("toProtocol(nil) = %#v, want an empty slice", got)
	}
}

func TestURIToPath(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"file:///home/u/src/A.java", "/home/u/src/A.java"},
		{"file:///tmp/with%20space/B.java", "/tmp/with space/B.java"},
		{"untitled:Scratch", "untitled:Scratch"},
	}
	for _, tt := range tests {
		got, err := uriToPath(tt.uri)
		if err != nil {
			t.Errorf("uriToPath(%q): %v", tt.uri, err)
			continue
		}
		if got != tt.want {
			t.Errorf("uriToPath(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
