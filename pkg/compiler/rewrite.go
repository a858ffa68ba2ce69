package compiler

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

const (
	keyHistory      = "history"
	keyProviderName = "extras-provider_name"
)

// idRewriter namespaces plan ids with an application instance id so several
// instances of one canvas can run side by side. Sentinels and resource ids
// are left untouched.
type idRewriter struct {
	appID     string
	resources map[string]bool
}

func newIDRewriter(appID string, resources map[string]bool) *idRewriter {
	return &idRewriter{appID: appID, resources: resources}
}

func (r *idRewriter) id(id string) string {
	if r.resources[id] {
		return id
	}
	return r.nodeID(id)
}

// nodeID prefixes id whether or not it collides with a resource id.
func (r *idRewriter) nodeID(id string) string {
	if canvas.IsSentinel(id) {
		return id
	}
	return r.appID + "-" + id
}

// rewrite namespaces p in place, deriving every node id from its canvas id
// so OriginalID keeps the mapping. Compiled subgraphs were namespaced by
// their own compilation and are not descended into.
func (r *idRewriter) rewrite(p *plan.Plan) {
	plan.Walk(p.Nodes, false, func(n *plan.Node) {
		orig := n.OriginalID
		if orig == "" {
			orig = n.ID
		}
		n.ID = r.id(orig)
	})

	for _, e := range p.Edges {
		if !e.IsConstant {
			e.IID = r.id(e.IID)
		}
		e.OID = r.id(e.OID)
	}

	for _, res := range p.Resources {
		switch strings.ToLower(res.Kind) {
		case "web":
			if hist, ok := res.Args[keyHistory].([]any); ok {
				out := make([]any, len(hist))
				for i, h := range hist {
					out[i] = r.nodeID(cast.ToString(h))
				}
				res.Args[keyHistory] = out
			}
		case "httptool":
			if name, ok := res.Args[keyProviderName]; ok {
				res.Name = cast.ToString(name)
			}
		}
	}
}
