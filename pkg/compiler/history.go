package compiler

import (
	"github.com/spf13/cast"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

const keyUseHistory = "extras-use_history"

// FindHistory returns the ids of the nodes, anywhere in p including branch
// bodies and compiled subgraphs, that ask for conversation history to be
// injected at run time. Ids are listed once, in layout order.
func FindHistory(p *plan.Plan) []string {
	var out []string
	seen := make(map[string]bool)
	plan.Walk(p.Nodes, true, func(n *plan.Node) {
		if seen[n.ID] || !cast.ToBool(n.Args[keyUseHistory]) {
			return
		}
		seen[n.ID] = true
		out = append(out, n.ID)
	})
	return out
}
