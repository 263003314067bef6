// Package lsp serves parse diagnostics over the Language Server Protocol.
package lsp

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/Thihup/parjac2-sub001/diag"
	"github.com/Thihup/parjac2-sub001/frontend"
)

const lsName = "parjac"

var log = commonlog.GetLogger("parjac.lsp")

type Server struct {
	frontend *frontend.Frontend
	handler  protocol.Handler
	server   *server.Server
	version  string
}

// NewServer returns a server that checks every opened or changed document
// with fe.
func NewServer(fe *frontend.Frontend, version string) *Server {
	ls := &Server{
		frontend: fe,
		version:  version,
	}

	ls.handler = protocol.Handler{
		Initialize:            ls.initialize,
		Initialized:           ls.initialized,
		Shutdown:              ls.shutdown,
		SetTrace:              ls.setTrace,
		TextDocumentDidOpen:   ls.textDocumentDidOpen,
		TextDocumentDidChange: ls.textDocumentDidChange,
		TextDocumentDidClose:  ls.textDocumentDidClose,
		TextDocumentDidSave:   ls.textDocumentDidSave,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	ls.check(ctx, params.TextDocument.URI, []byte(params.TextDocument.Text))
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.check(ctx, params.TextDocument.URI, []byte(textChange.Text))
		}
	}
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		ls.check(ctx, params.TextDocument.URI, []byte(*params.Text))
		return nil
	}
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		log.Warningf("read %s: %s", path, err)
		return nil
	}
	ls.check(ctx, params.TextDocument.URI, src)
	return nil
}

func (ls *Server) check(ctx *glsp.Context, uri protocol.DocumentUri, src []byte) {
	path, err := uriToPath(uri)
	if err != nil {
		path = uri
	}
	res := ls.frontend.ParseSource(path, src, nil)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toProtocol(src, res.Diagnostics),
	})
}

// toProtocol converts diagnostics on src to 0-based LSP ranges whose
// characters count UTF-16 code units. Diagnostics without a position are
// placed at the start of the document.
func toProtocol(src []byte, diags []diag.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	source := lsName
	for _, d := range diags {
		severity := toSeverity(d.Severity)
		out = append(out, protocol.Diagnostic{
			Range:    toRange(src, d.Pos),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out
}

func toRange(src []byte, pos diag.ParsePosition) protocol.Range {
	if !pos.IsValid() {
		return protocol.Range{}
	}
	if pos.TokenStart < 0 || pos.TokenStart > pos.TokenEnd || pos.TokenEnd > len(src) {
		start := protocol.Position{
			Line:      protocol.UInteger(pos.Line - 1),
			Character: protocol.UInteger(max(pos.Column-1, 0)),
		}
		return protocol.Range{Start: start, End: start}
	}
	return protocol.Range{
		Start: offsetPosition(src, pos.TokenStart),
		End:   offsetPosition(src, pos.TokenEnd),
	}
}

// offsetPosition locates a byte offset of src as an LSP line and UTF-16
// character.
func offsetPosition(src []byte, offset int) protocol.Position {
	before := src[:offset]
	lineStart := bytes.LastIndexByte(before, '\n') + 1
	return protocol.Position{
		Line:      protocol.UInteger(bytes.Count(before, []byte{'\n'})),
		Character: protocol.UInteger(utf16Len(before[lineStart:])),
	}
}

func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

func toSeverity(s diag.Severity) protocol.DiagnosticSeverity {
	switch s {
	case diag.Warning:
		return protocol.DiagnosticSeverityWarning
	case diag.Note:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
