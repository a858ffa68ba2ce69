package compiler

import (
	"log/slog"
	"sort"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

const keyPatentData = "extras-config__patent_data"

// applyTransparentOverrides lets every subgraph node override the args of
// nodes inside its compiled canvas without touching the canvas itself.
func applyTransparentOverrides(nodes []*plan.Node, log *slog.Logger) {
	plan.Walk(nodes, true, func(n *plan.Node) {
		overrideTransparent(n, log)
	})
}

// overrideTransparent merges the entries of parent's
// extras-config__patent_data into the matching children. Entries are keyed by
// the child's canvas id; unmatched entries are logged and skipped.
func overrideTransparent(parent *plan.Node, log *slog.Logger) {
	if parent.Graph == nil {
		return
	}
	overrides, ok := parent.Args[keyPatentData].(map[string]any)
	if !ok || len(overrides) == 0 {
		return
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		target := findOverrideTarget(parent.Graph.Nodes, key)
		if target == nil {
			log.Warn("transparent override target not found", "node", parent.ID, "target", key)
			continue
		}
		entry, _ := overrides[key].(map[string]any)
		args, _ := entry["args"].(map[string]any)
		if target.Args == nil {
			target.Args = make(map[string]any, len(args))
		}
		for k, v := range args {
			switch k {
			case "nodes", "true", "false":
				continue
			}
			target.Args[k] = v
		}
		overrideTransparent(target, log)
	}
}

// findOverrideTarget searches nodes, and the branch bodies of forks among
// them, for the node originally named key.
func findOverrideTarget(nodes []*plan.Node, key string) *plan.Node {
	for _, n := range nodes {
		if n.OriginalID == key || (n.OriginalID == "" && n.Name == key) {
			return n
		}
		if n.Branch != nil {
			if t := findOverrideTarget(n.Children(), key); t != nil {
				return t
			}
		}
	}
	return nil
}
