package compiler

import (
	"strings"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

// DefaultKeepKinds are resource kinds kept whether or not a node uses them.
var DefaultKeepKinds = []string{"server", "web"}

// pruneResources keeps the resources referenced by the node tree, by an edge,
// or whose kind is always kept. usedBy returns the resource ids a node
// references, by canvas id.
func pruneResources(p *plan.Plan, usedBy func(id string) []string, keepKinds map[string]bool) []*plan.Node {
	used := make(map[string]bool)
	plan.Walk(p.Nodes, false, func(n *plan.Node) {
		id := n.OriginalID
		if id == "" {
			id = n.ID
		}
		for _, r := range usedBy(id) {
			used[r] = true
		}
	})
	for _, e := range p.Edges {
		if !e.IsConstant {
			used[e.IID] = true
		}
		used[e.OID] = true
	}

	kept := make([]*plan.Node, 0, len(p.Resources))
	for _, r := range p.Resources {
		if used[r.ID] || keepKinds[strings.ToLower(r.Kind)] {
			kept = append(kept, r)
		}
	}
	return kept
}
