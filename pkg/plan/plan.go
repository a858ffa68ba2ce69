// Package plan defines the executable plan handed to the workflow engine:
// a linear edge list over nodes whose branch bodies are nested in place.
package plan

import (
	"bytes"
	"encoding/json"

	"github.com/spf13/cast"
)

// Plan is the compiled form of a canvas.
type Plan struct {
	Nodes     []*Node `json:"nodes"`
	Edges     []*Edge `json:"edges"`
	Resources []*Node `json:"resources"`
}

// Edge is either a flow edge (IID → OID) or a constant edge feeding a literal
// value into OID.
type Edge struct {
	IID       string
	OID       string
	Formatter string

	Constant   any
	IsConstant bool
}

// FlowEdge returns an edge carrying the output of iid into oid.
func FlowEdge(iid, oid, formatter string) *Edge {
	return &Edge{IID: iid, OID: oid, Formatter: formatter}
}

// ConstantEdge returns an edge carrying a literal value into oid.
func ConstantEdge(value any, oid string) *Edge {
	return &Edge{OID: oid, Constant: value, IsConstant: true}
}

func (e *Edge) MarshalJSON() ([]byte, error) {
	if e.IsConstant {
		return json.Marshal(struct {
			Constant any    `json:"constant"`
			OID      string `json:"oid"`
		}{e.Constant, e.OID})
	}
	return json.Marshal(struct {
		IID       string `json:"iid"`
		OID       string `json:"oid"`
		Formatter string `json:"formatter,omitempty"`
	}{e.IID, e.OID, e.Formatter})
}

// BranchStyle selects how a fork's bodies are laid out.
type BranchStyle int

const (
	// BranchIfs lays bodies out as args.true / args.false.
	BranchIfs BranchStyle = iota
	// BranchCases lays bodies out as args.nodes keyed by case value.
	BranchCases
)

// Case is one keyed body of a switch or intention fork.
type Case struct {
	Key   any
	Nodes []*Node
}

// Branch holds the bodies of a collapsed fork.
type Branch struct {
	Style BranchStyle
	True  []*Node
	False []*Node
	Cases []Case
}

// Node is a plan node or resource. Args is the kind-specific payload; Branch
// and Graph carry the structured variants for forks and subgraphs and take
// precedence over same-named keys in Args when encoded.
type Node struct {
	ID     string
	Kind   string
	Name   string
	Args   map[string]any
	Branch *Branch
	Graph  *Plan

	// OriginalID is the canvas id before namespacing.
	OriginalID string
}

// Children returns the nodes nested in the branch bodies, in layout order.
func (n *Node) Children() []*Node {
	if n.Branch == nil {
		return nil
	}
	var out []*Node
	out = append(out, n.Branch.True...)
	out = append(out, n.Branch.False...)
	for _, c := range n.Branch.Cases {
		out = append(out, c.Nodes...)
	}
	return out
}

func (n *Node) MarshalJSON() ([]byte, error) {
	args := make(map[string]any, len(n.Args)+3)
	for k, v := range n.Args {
		args[k] = v
	}
	if b := n.Branch; b != nil {
		switch b.Style {
		case BranchIfs:
			args["true"] = nonNil(b.True)
			args["false"] = nonNil(b.False)
		case BranchCases:
			args["nodes"] = caseMap(b.Cases)
		}
	}
	if g := n.Graph; g != nil {
		args["nodes"] = nonNil(g.Nodes)
		args["edges"] = nonNilEdges(g.Edges)
		args["resources"] = nonNil(g.Resources)
	}
	return json.Marshal(struct {
		ID   string         `json:"id"`
		Kind string         `json:"kind"`
		Name string         `json:"name,omitempty"`
		Args map[string]any `json:"args"`
	}{n.ID, n.Kind, n.Name, args})
}

func (p *Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Nodes     []*Node `json:"nodes"`
		Edges     []*Edge `json:"edges"`
		Resources []*Node `json:"resources"`
	}{nonNil(p.Nodes), nonNilEdges(p.Edges), nonNil(p.Resources)})
}

// caseMap encodes cases as a JSON object, keeping declaration order.
type caseMap []Case

func (m caseMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cast.ToString(c.Key))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		body, err := json.Marshal(nonNil(c.Nodes))
		if err != nil {
			return nil, err
		}
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func nonNil(nodes []*Node) []*Node {
	if nodes == nil {
		return []*Node{}
	}
	return nodes
}

func nonNilEdges(edges []*Edge) []*Edge {
	if edges == nil {
		return []*Edge{}
	}
	return edges
}

// Walk visits nodes depth-first in layout order, descending into branch
// bodies. When deep is true it also descends into compiled subgraphs.
func Walk(nodes []*Node, deep bool, fn func(*Node)) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		fn(n)
		Walk(n.Children(), deep, fn)
		if deep && n.Graph != nil {
			Walk(n.Graph.Nodes, deep, fn)
		}
	}
}
