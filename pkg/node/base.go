package node

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

// Payload keys consumed by the compiler and not forwarded to the engine.
const (
	keyInputs    = "inputs"
	keyConstants = "constants"
	keyResources = "resources"
	keyCases     = "cases"
	keyKeyType   = "key_type"
	keyGraph     = "graph"
)

// Base implements Node over a raw canvas description. Other kinds embed it.
type Base struct {
	raw      canvas.RawNode
	category Category

	resourceFields []string
	reserved       []string
	ports          map[string]string // input handle → source id
}

// NewBase wraps raw as a node of the given category. resourceFields name
// payload fields holding resource ids (a string or a list of strings).
func NewBase(raw canvas.RawNode, category Category, resourceFields ...string) *Base {
	return &Base{
		raw:            raw,
		category:       category,
		resourceFields: resourceFields,
		reserved:       []string{keyInputs, keyConstants},
		ports:          make(map[string]string),
	}
}

// NewLeaf is the constructor used for kinds with no structural role.
func NewLeaf(raw canvas.RawNode) (Node, error) {
	return NewBase(raw, CategoryLeaf), nil
}

// LeafWithResources returns a leaf constructor for a kind that references
// resources through the named payload fields.
func LeafWithResources(fields ...string) Constructor {
	return func(raw canvas.RawNode) (Node, error) {
		return NewBase(raw, CategoryLeaf, fields...), nil
	}
}

func (b *Base) ID() string         { return b.raw.ID() }
func (b *Base) Kind() string       { return b.raw.Kind() }
func (b *Base) LowerType() string  { return strings.ToLower(b.raw.Kind()) }
func (b *Base) Name() string       { return b.raw.Name() }
func (b *Base) Category() Category { return b.category }

// Raw returns the underlying canvas description.
func (b *Base) Raw() canvas.RawNode { return b.raw }

func (b *Base) SetInputPort(handle, source string) {
	if handle == "" {
		return
	}
	b.ports[handle] = source
}

func (b *Base) InputPorts() []InputPort {
	var out []InputPort
	for _, h := range b.raw.Get(keyInputs).Array() {
		handle := h.String()
		if h.IsObject() {
			handle = h.Get("id").String()
		}
		if src, ok := b.ports[handle]; ok {
			out = append(out, InputPort{Handle: handle, Source: src})
		}
	}
	return out
}

func (b *Base) ConstantEdges() []ConstantEdge {
	var out []ConstantEdge
	for _, c := range b.raw.Get(keyConstants).Array() {
		out = append(out, ConstantEdge{
			Constant: c.Get("constant").Value(),
			Index:    int(c.Get("index").Int()),
		})
	}
	return out
}

func (b *Base) UsedResources() []string {
	var out []string
	collect := func(r gjson.Result) {
		if r.IsArray() {
			for _, v := range r.Array() {
				if s := v.String(); s != "" {
					out = append(out, s)
				}
			}
			return
		}
		if s := r.String(); r.Type == gjson.String && s != "" {
			out = append(out, s)
		}
	}
	collect(b.raw.Get(keyResources))
	for _, f := range b.resourceFields {
		collect(b.raw.Get(f))
	}
	return out
}

func (b *Base) SubGraph() (*canvas.RawGraph, error) { return nil, nil }

func (b *Base) ToPlan() *plan.Node {
	args := map[string]any{}
	if data := b.raw.Data(); data.IsObject() {
		// RawNode only holds valid JSON objects, so an object payload decodes.
		_ = json.Unmarshal([]byte(data.Raw), &args)
	}
	for _, k := range b.reserved {
		delete(args, k)
	}
	return &plan.Node{
		ID:         b.ID(),
		Kind:       b.Kind(),
		Name:       b.Name(),
		Args:       args,
		OriginalID: b.ID(),
	}
}

// Subgraph is a node embedding another canvas, compiled in place.
type Subgraph struct {
	*Base
}

// NewSubgraph builds a subgraph node; its canvas lives under data.graph.
func NewSubgraph(raw canvas.RawNode) (Node, error) {
	b := NewBase(raw, CategorySubgraph)
	b.reserved = append(b.reserved, keyGraph)
	return &Subgraph{Base: b}, nil
}

func (s *Subgraph) SubGraph() (*canvas.RawGraph, error) {
	g := s.raw.Get(keyGraph)
	if !g.IsObject() {
		return nil, fmt.Errorf("subgraph %q: missing graph payload", s.ID())
	}
	return canvas.Parse([]byte(g.Raw))
}
