package node

import (
	"fmt"
	"strings"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
)

// Constructor builds a node of one kind.
type Constructor func(raw canvas.RawNode) (Node, error)

// Registry maps kinds to constructors.
// It implements the Factory interface.
type Registry struct {
	ctors    map[string]Constructor
	fallback Constructor
}

// NewRegistry creates an empty Registry. Unregistered kinds become leaves.
func NewRegistry() *Registry {
	return &Registry{
		ctors:    make(map[string]Constructor),
		fallback: NewLeaf,
	}
}

// Register associates a constructor with a kind. Kinds are case-insensitive.
func (r *Registry) Register(kind string, c Constructor) {
	r.ctors[strings.ToLower(kind)] = c
}

// Create builds the node described by raw.
func (r *Registry) Create(raw canvas.RawNode) (Node, error) {
	if raw.ID() == "" {
		return nil, fmt.Errorf("node without id (kind %q)", raw.Kind())
	}
	c, ok := r.ctors[strings.ToLower(raw.Kind())]
	if !ok {
		c = r.fallback
	}
	n, err := c(raw)
	if err != nil {
		return nil, fmt.Errorf("node %q (kind=%q): %w", raw.ID(), raw.Kind(), err)
	}
	return n, nil
}

// DefaultRegistry returns a registry with the built-in kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	boundary := func(c Category) Constructor {
		return func(raw canvas.RawNode) (Node, error) { return NewBase(raw, c), nil }
	}
	r.Register("start", boundary(CategoryStart))
	r.Register(canvas.StartID, boundary(CategoryStart))
	r.Register("end", boundary(CategoryEnd))
	r.Register(canvas.EndID, boundary(CategoryEnd))
	r.Register("aggregator", boundary(CategoryAggregator))

	r.Register("ifs", NewIfs)
	r.Register("switch", NewSwitch)
	r.Register("intention", NewSwitch)

	r.Register("subgraph", NewSubgraph)
	r.Register("app", NewSubgraph)

	r.Register("sharedllm", LeafWithResources("base_model"))
	r.Register("retriever", LeafWithResources("doc"))
	r.Register("functioncall", LeafWithResources("base_model", "tools"))
	return r
}
