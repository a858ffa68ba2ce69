package compiler

import (
	"github.com/wangbochao789/LazyCraft-sub002/pkg/node"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

// insertConstantEdges splices the constant inputs of id into edges in
// declaration order. Index 0 goes before the first edge into id, index 1
// after it, and larger indices skip further edges into id. Constants placed
// earlier count as edges into id. When the edges into id run out the
// constant follows the last of them; when there are none it is appended.
func insertConstantEdges(edges []*plan.Edge, id string, consts []node.ConstantEdge) []*plan.Edge {
	for _, c := range consts {
		pos := constantPosition(edges, id, c.Index)
		if pos < 0 {
			pos = len(edges)
		}
		edges = append(edges, nil)
		copy(edges[pos+1:], edges[pos:])
		edges[pos] = plan.ConstantEdge(c.Constant, id)
	}
	return edges
}

func constantPosition(edges []*plan.Edge, id string, index int) int {
	remaining := index
	last := -1
	for i, e := range edges {
		if e.OID != id {
			continue
		}
		last = i
		switch remaining {
		case 0:
			return i
		case 1:
			return i + 1
		}
		remaining--
	}
	if last < 0 {
		return -1
	}
	return last + 1
}
