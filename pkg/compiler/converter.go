// Package compiler lowers a visual canvas into an executable plan: edges are
// ordered from start to end, fork/aggregator regions are collapsed into
// nested branch bodies, constant inputs are spliced in, unused resources are
// pruned and every id is namespaced with the application instance id.
package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/node"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

// DefaultMaxDepth bounds subgraph nesting.
const DefaultMaxDepth = 16

// Option configures a Converter.
type Option func(*Converter)

// WithAppID sets the application instance id used to namespace plan ids.
// Without it a random id is generated on first compile.
func WithAppID(id string) Option {
	return func(c *Converter) { c.appID = id }
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.log = l
		}
	}
}

// WithKeepResourceKinds replaces the resource kinds kept regardless of use.
func WithKeepResourceKinds(kinds ...string) Option {
	return func(c *Converter) { c.setKeepKinds(kinds) }
}

// WithMaxDepth bounds subgraph nesting.
func WithMaxDepth(n int) Option {
	return func(c *Converter) { c.maxDepth = n }
}

// Converter compiles canvases into plans. It holds no state shared with
// other converters; use one per compilation when running concurrently.
type Converter struct {
	factory   node.Factory
	appID     string
	keepKinds map[string]bool
	maxDepth  int
	log       *slog.Logger

	collapses int
}

// New creates a Converter building nodes with f. A nil f selects
// node.DefaultRegistry().
func New(f node.Factory, opts ...Option) *Converter {
	if f == nil {
		f = node.DefaultRegistry()
	}
	c := &Converter{
		factory:  f,
		maxDepth: DefaultMaxDepth,
		log:      slog.Default(),
	}
	c.setKeepKinds(DefaultKeepKinds)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Converter) setKeepKinds(kinds []string) {
	c.keepKinds = make(map[string]bool, len(kinds))
	for _, k := range kinds {
		c.keepKinds[strings.ToLower(k)] = true
	}
}

// AppID returns the application instance id, empty until the first compile
// when none was configured.
func (c *Converter) AppID() string { return c.appID }

// Collapses returns how many fork/aggregator regions were collapsed so far,
// subgraphs included.
func (c *Converter) Collapses() int { return c.collapses }

// Compile lowers g into an executable plan.
func (c *Converter) Compile(g *canvas.RawGraph) (*plan.Plan, error) {
	if g == nil {
		return nil, fmt.Errorf("canvas must not be nil")
	}
	if c.appID == "" {
		c.appID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	p, err := c.compile(g, c.appID, 0)
	if err != nil {
		return nil, err
	}
	applyTransparentOverrides(p.Nodes, c.log)

	c.log.Info("canvas compiled", "app", c.appID,
		"nodes", len(p.Nodes), "edges", len(p.Edges), "resources", len(p.Resources))
	return p, nil
}

// session is the state of compiling one canvas.
type session struct {
	conv  *Converter
	ix    *graphIndex
	appID string
	depth int
	log   *slog.Logger

	usedForks map[string]bool
	finalized map[string]*plan.Node
	collapses int
}

func (c *Converter) compile(g *canvas.RawGraph, appID string, depth int) (*plan.Plan, error) {
	if depth > c.maxDepth {
		return nil, fmt.Errorf("%w: depth %d exceeds %d", ErrDepthExceeded, depth, c.maxDepth)
	}
	ix, err := buildIndex(g, c.factory)
	if err != nil {
		return nil, err
	}
	s := &session{
		conv:      c,
		ix:        ix,
		appID:     appID,
		depth:     depth,
		log:       c.log.With("app", appID),
		usedForks: make(map[string]bool),
		finalized: make(map[string]*plan.Node),
	}

	sorted, err := s.resolve()
	if err != nil {
		return nil, err
	}
	c.collapses += s.collapses

	p := &plan.Plan{}
	placed := make(map[string]bool)
	for _, e := range sorted {
		for _, id := range [2]string{e.source, e.target} {
			if placed[id] || canvas.IsSentinel(id) || ix.isResource(id) {
				continue
			}
			placed[id] = true
			pn, err := s.serialize(id)
			if err != nil {
				return nil, err
			}
			p.Nodes = append(p.Nodes, pn)
		}
		p.Edges = append(p.Edges, plan.FlowEdge(e.source, e.target, e.formatter))
	}

	for _, id := range ix.order {
		consts := ix.constants[id]
		if len(consts) == 0 {
			continue
		}
		if !placed[id] {
			s.log.Debug("constant input skipped for node outside the edge list", "node", id)
			continue
		}
		p.Edges = insertConstantEdges(p.Edges, id, consts)
	}

	for _, id := range ix.resources {
		pn, err := s.serialize(id)
		if err != nil {
			return nil, err
		}
		p.Resources = append(p.Resources, pn)
	}
	p.Resources = pruneResources(p, func(id string) []string {
		if n, ok := ix.nodes[id]; ok {
			return n.UsedResources()
		}
		return nil
	}, c.keepKinds)

	newIDRewriter(appID, ix.isRes).rewrite(p)
	return p, nil
}

// serialize returns the plan form of a node, compiling subgraphs. Each node
// is serialized once per session; forks come back with their bodies.
func (s *session) serialize(id string) (*plan.Node, error) {
	if pn, ok := s.finalized[id]; ok {
		return pn, nil
	}
	n, err := s.ix.lookup(id)
	if err != nil {
		return nil, err
	}
	pn := n.ToPlan()
	pn.OriginalID = id

	if n.Category() == node.CategorySubgraph {
		sub, err := n.SubGraph()
		if err != nil {
			return nil, err
		}
		if sub != nil {
			child, err := s.conv.compile(sub, s.appID+"-"+id, s.depth+1)
			if err != nil {
				return nil, fmt.Errorf("subgraph %q: %w", id, err)
			}
			pn.Graph = child
		}
	}
	s.finalized[id] = pn
	return pn, nil
}
