// Package canvas holds the raw node-and-edge graph produced by the visual
// editor, before it is compiled into an executable plan.
package canvas

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// Sentinel ids marking the graph boundaries. They never carry a node of their
// own in the compiled plan and are never namespaced.
const (
	StartID = "__start__"
	EndID   = "__end__"
)

const linkSuffix = "_link"

// IsSentinel reports whether id is one of the boundary sentinels.
func IsSentinel(id string) bool {
	return id == StartID || id == EndID
}

// IsStartKind reports whether kind names a start node.
func IsStartKind(kind string) bool {
	switch strings.ToLower(kind) {
	case "start", StartID:
		return true
	}
	return false
}

// IsEndKind reports whether kind names an end node.
func IsEndKind(kind string) bool {
	switch strings.ToLower(kind) {
	case "end", EndID:
		return true
	}
	return false
}

// RawNode is an opaque node description. The compiler only reads it through
// the accessors below; the underlying JSON is kept verbatim.
type RawNode struct {
	raw json.RawMessage
}

// NewRawNode wraps a JSON object describing a node or resource.
func NewRawNode(raw []byte) (RawNode, error) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return RawNode{}, fmt.Errorf("invalid node json: want an object")
	}
	return RawNode{raw: append(json.RawMessage(nil), raw...)}, nil
}

// ID returns the node id.
func (n RawNode) ID() string {
	return gjson.GetBytes(n.raw, "id").String()
}

// Kind returns the declared node type name as written by the editor.
func (n RawNode) Kind() string {
	for _, path := range []string{"kind", "type", "data.kind"} {
		if r := gjson.GetBytes(n.raw, path); r.Exists() && r.String() != "" {
			return r.String()
		}
	}
	return ""
}

// Name returns the display name, if any.
func (n RawNode) Name() string {
	return gjson.GetBytes(n.raw, "name").String()
}

// Data returns the kind-specific payload ("data", or "args" for nodes that
// were already serialized once).
func (n RawNode) Data() gjson.Result {
	if r := gjson.GetBytes(n.raw, "data"); r.Exists() {
		return r
	}
	return gjson.GetBytes(n.raw, "args")
}

// Get looks up a gjson path inside the payload.
func (n RawNode) Get(path string) gjson.Result {
	return n.Data().Get(path)
}

// Raw returns the underlying JSON.
func (n RawNode) Raw() json.RawMessage { return n.raw }

func (n RawNode) MarshalJSON() ([]byte, error) {
	if len(n.raw) == 0 {
		return []byte("null"), nil
	}
	return n.raw, nil
}

func (n *RawNode) UnmarshalJSON(b []byte) error {
	if !gjson.ValidBytes(b) {
		return fmt.Errorf("invalid node json")
	}
	n.raw = append(n.raw[:0], b...)
	return nil
}

// RawEdge is a directed connection drawn in the editor. Label becomes the
// formatter applied in transit.
type RawEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty"`
}

// IsSelfLink reports whether the edge is one of the editor's synthetic
// "<id>_link" markers, which carry no data flow.
func (e RawEdge) IsSelfLink() bool {
	return e.Target == e.Source+linkSuffix
}

// RawGraph is the editor's graph: flow nodes, resources and edges.
type RawGraph struct {
	Nodes     []RawNode `json:"nodes"`
	Resources []RawNode `json:"resources"`
	Edges     []RawEdge `json:"edges"`
}

// OutgoingEdges returns all edges leaving id, in definition order.
func (g *RawGraph) OutgoingEdges(id string) []RawEdge {
	var out []RawEdge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// IncomingEdges returns all edges arriving at id.
func (g *RawGraph) IncomingEdges(id string) []RawEdge {
	var out []RawEdge
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// dropSelfLinks removes the editor's synthetic self-link edges in place.
func (g *RawGraph) dropSelfLinks() {
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if !e.IsSelfLink() {
			kept = append(kept, e)
		}
	}
	g.Edges = kept
}

// Parse decodes a canvas given either directly as {nodes, resources, edges}
// or wrapped as {graph: {...}}.
func Parse(data []byte) (*RawGraph, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("canvas: invalid json")
	}
	body := data
	if inner := gjson.GetBytes(data, "graph"); inner.IsObject() {
		body = []byte(inner.Raw)
	}
	var g RawGraph
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, fmt.Errorf("canvas: decode: %w", err)
	}
	g.dropSelfLinks()
	return &g, nil
}

// Load reads a canvas file. Files with a .dot or .gv extension are parsed as
// Graphviz digraphs, everything else as JSON.
func Load(path string) (*RawGraph, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read canvas: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dot", ".gv":
		return ParseDOT(string(src))
	default:
		return Parse(src)
	}
}
