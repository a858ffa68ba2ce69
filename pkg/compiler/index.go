package compiler

import (
	"fmt"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/node"
)

// edge is a directed data-flow connection between two node ids. port is the
// target input handle; one source may feed several ports of a target.
type edge struct {
	source    string
	target    string
	port      string
	formatter string
}

type edgeKey struct {
	source, target, port string
}

func (e edge) key() edgeKey { return edgeKey{e.source, e.target, e.port} }

// graphIndex is the id-indexed, classified view of one canvas.
type graphIndex struct {
	nodes     map[string]node.Node
	order     []string // flow node ids in canvas order
	resources []string // resource ids in canvas order
	isRes     map[string]bool

	forks       map[string]bool
	aggregators map[string]bool

	// start and end node ids as drawn; edges are rewritten to the sentinels.
	startNode, endNode string

	constants map[string][]node.ConstantEdge
	// sortingInputs holds, for nodes with more than one declared input, the
	// incoming edge keys in declared port order.
	sortingInputs map[string][]edgeKey

	edges []edge
	succ  map[string][]string
}

func buildIndex(g *canvas.RawGraph, f node.Factory) (*graphIndex, error) {
	ix := &graphIndex{
		nodes:         make(map[string]node.Node, len(g.Nodes)+len(g.Resources)),
		isRes:         make(map[string]bool, len(g.Resources)),
		forks:         make(map[string]bool),
		aggregators:   make(map[string]bool),
		constants:     make(map[string][]node.ConstantEdge),
		sortingInputs: make(map[string][]edgeKey),
		succ:          make(map[string][]string),
	}

	add := func(raw canvas.RawNode, resource bool) error {
		n, err := f.Create(raw)
		if err != nil {
			return err
		}
		id := n.ID()
		if _, dup := ix.nodes[id]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateNode, id)
		}
		ix.nodes[id] = n
		if resource {
			ix.resources = append(ix.resources, id)
			ix.isRes[id] = true
			return nil
		}
		ix.order = append(ix.order, id)
		switch n.Category() {
		case node.CategoryFork:
			ix.forks[id] = true
		case node.CategoryAggregator:
			ix.aggregators[id] = true
		case node.CategoryStart:
			if ix.startNode != "" {
				return fmt.Errorf("%w: start nodes %q and %q", ErrAmbiguousBoundary, ix.startNode, id)
			}
			ix.startNode = id
		case node.CategoryEnd:
			if ix.endNode != "" {
				return fmt.Errorf("%w: end nodes %q and %q", ErrAmbiguousBoundary, ix.endNode, id)
			}
			ix.endNode = id
		}
		return nil
	}
	for _, raw := range g.Nodes {
		if err := add(raw, false); err != nil {
			return nil, err
		}
	}
	for _, raw := range g.Resources {
		if err := add(raw, true); err != nil {
			return nil, err
		}
	}

	seen := make(map[edgeKey]bool, len(g.Edges))
	linked := make(map[[2]string]bool, len(g.Edges))
	for _, re := range g.Edges {
		if re.IsSelfLink() {
			continue
		}
		e := edge{
			source:    ix.boundary(re.Source),
			target:    ix.boundary(re.Target),
			port:      re.TargetHandle,
			formatter: re.Label,
		}
		if _, err := ix.lookupOrSentinel(e.source); err != nil {
			return nil, err
		}
		if _, err := ix.lookupOrSentinel(e.target); err != nil {
			return nil, err
		}
		if seen[e.key()] {
			continue
		}
		seen[e.key()] = true
		ix.edges = append(ix.edges, e)
		if pair := [2]string{e.source, e.target}; !linked[pair] {
			linked[pair] = true
			ix.succ[e.source] = append(ix.succ[e.source], e.target)
		}

		if src, ok := ix.nodes[e.source].(node.BranchNode); ok && ix.forks[e.source] {
			src.SetCaseEdge(re.SourceHandle, e.target)
		}
		if dst, ok := ix.nodes[e.target]; ok {
			dst.SetInputPort(re.TargetHandle, e.source)
		}
	}

	for _, id := range ix.order {
		n := ix.nodes[id]
		if cs := n.ConstantEdges(); len(cs) > 0 {
			ix.constants[id] = cs
		}
		if ports := n.InputPorts(); len(ports) > 1 {
			pairs := make([]edgeKey, len(ports))
			for i, port := range ports {
				pairs[i] = edgeKey{port.Source, id, port.Handle}
			}
			ix.sortingInputs[id] = pairs
		}
	}
	return ix, nil
}

// boundary maps the drawn start and end nodes onto the sentinel ids.
func (ix *graphIndex) boundary(id string) string {
	switch {
	case id != "" && id == ix.startNode:
		return canvas.StartID
	case id != "" && id == ix.endNode:
		return canvas.EndID
	}
	return id
}

func (ix *graphIndex) lookup(id string) (node.Node, error) {
	n, ok := ix.nodes[id]
	if !ok {
		return nil, &LookupError{ID: id}
	}
	return n, nil
}

// lookupOrSentinel accepts the sentinels, which have no node.
func (ix *graphIndex) lookupOrSentinel(id string) (node.Node, error) {
	if canvas.IsSentinel(id) {
		return nil, nil
	}
	return ix.lookup(id)
}

func (ix *graphIndex) isFork(id string) bool       { return ix.forks[id] }
func (ix *graphIndex) isAggregator(id string) bool { return ix.aggregators[id] }
func (ix *graphIndex) isResource(id string) bool   { return ix.isRes[id] }
