package canvas

import (
	"fmt"
	"strings"
)

// LintError describes a structural problem in a canvas.
type LintError struct {
	NodeID  string
	Message string
}

func (e LintError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("node %q: %s", e.NodeID, e.Message)
	}
	return e.Message
}

// Validate checks a canvas for structural correctness.
// Returns all discovered errors (not just the first).
func Validate(g *RawGraph) []LintError {
	var errs []LintError

	known := make(map[string]bool, len(g.Nodes)+len(g.Resources))
	resources := make(map[string]bool, len(g.Resources))
	var startNodes, endNodes []string

	check := func(n RawNode, isResource bool) {
		id := n.ID()
		if id == "" {
			errs = append(errs, LintError{Message: "node without id"})
			return
		}
		if known[id] {
			errs = append(errs, LintError{NodeID: id, Message: "duplicate node id"})
			return
		}
		known[id] = true
		if isResource {
			resources[id] = true
			return
		}
		switch {
		case IsStartKind(n.Kind()):
			startNodes = append(startNodes, id)
		case IsEndKind(n.Kind()):
			endNodes = append(endNodes, id)
		}
	}
	for _, n := range g.Nodes {
		check(n, false)
	}
	for _, n := range g.Resources {
		check(n, true)
	}

	if len(startNodes) > 1 {
		errs = append(errs, LintError{Message: fmt.Sprintf("canvas has %d start nodes (%s); at most one allowed",
			len(startNodes), strings.Join(startNodes, ", "))})
	}
	if len(endNodes) > 1 {
		errs = append(errs, LintError{Message: fmt.Sprintf("canvas has %d end nodes (%s); at most one allowed",
			len(endNodes), strings.Join(endNodes, ", "))})
	}

	// All edge endpoints must reference existing nodes or a sentinel.
	for _, e := range g.Edges {
		if !known[e.Source] && !IsSentinel(e.Source) {
			errs = append(errs, LintError{Message: fmt.Sprintf("edge references unknown source node %q", e.Source)})
		}
		if !known[e.Target] && !IsSentinel(e.Target) {
			errs = append(errs, LintError{Message: fmt.Sprintf("edge references unknown target node %q", e.Target)})
		}
	}

	// All flow nodes must be reachable from start.
	start := StartID
	if len(startNodes) == 1 {
		start = startNodes[0]
	}
	reachable := reachableFrom(g, start)
	for _, n := range g.Nodes {
		id := n.ID()
		if id == "" || id == start || resources[id] {
			continue
		}
		if !reachable[id] {
			errs = append(errs, LintError{NodeID: id, Message: "node is not reachable from start"})
		}
	}

	return errs
}

// ValidateErr calls Validate and returns nil if there are no errors, or a
// combined error message listing all lint errors.
func ValidateErr(g *RawGraph) error {
	errs := Validate(g)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("canvas validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

// reachableFrom returns the set of node IDs reachable from start via directed edges.
func reachableFrom(g *RawGraph, start string) map[string]bool {
	visited := map[string]bool{}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, e := range g.OutgoingEdges(cur) {
			queue = append(queue, e.Target)
		}
	}
	return visited
}
