package parse

import "encoding/json"

type jsonNode struct {
	Kind      string      `json:"kind"`
	Synthetic bool        `json:"synthetic,omitempty"`
	Span      *jsonSpan   `json:"span,omitempty"`
	Token     string      `json:"token,omitempty"`
	Children  []*jsonNode `json:"children,omitempty"`
}

type jsonSpan struct {
	Start jsonPosition `json:"start"`
	End   jsonPosition `json:"end"`
}

type jsonPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toJSON())
}

func (n *Node) toJSON() *jsonNode {
	jn := &jsonNode{
		Kind: n.Name(),
	}
	if n.Rule != nil {
		jn.Synthetic = n.Rule.Synthetic()
	}

	if n.Span.Start.IsValid() || n.Span.End.IsValid() {
		jn.Span = &jsonSpan{
			Start: jsonPosition{Line: n.Span.Start.Line, Column: n.Span.Start.Column, Offset: n.Span.Start.TokenStart},
			End:   jsonPosition{Line: n.Span.End.Line, Column: n.Span.End.Column, Offset: n.Span.End.TokenEnd},
		}
	}

	if n.Token != nil {
		jn.Token = n.Text
	}

	if len(n.Children) > 0 {
		jn.Children = make([]*jsonNode, len(n.Children))
		for i, child := range n.Children {
			jn.Children[i] = child.toJSON()
		}
	}

	return jn
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path string `json:"path,omitempty"`
		Root *Node  `json:"root"`
	}{t.Path, t.Start()})
}
