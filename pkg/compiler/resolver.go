package compiler

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/node"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

// maxSimplePaths bounds path enumeration inside one region. Any region over
// the bound necessarily has several paths in some case.
const maxSimplePaths = 256

// resolve orders the canvas edges and collapses fork/aggregator regions one
// at a time until the sequence is linear.
func (s *session) resolve() ([]edge, error) {
	edges := s.ix.edges
	var pair *forkAggrPair
	for {
		sorted, err := sortEdges(s.ix, edges, pair)
		if err != nil {
			return nil, err
		}
		forkIdx, aggrIdx := s.findRegion(sorted)
		if forkIdx < 0 {
			return sorted, nil
		}

		forkID, aggrID := sorted[forkIdx].source, sorted[aggrIdx].source
		if err := s.collapse(forkID, aggrID); err != nil {
			return nil, err
		}
		s.usedForks[forkID] = true
		s.collapses++

		through := sorted[aggrIdx]
		next := make([]edge, 0, forkIdx+1+len(sorted)-aggrIdx-1)
		next = append(next, sorted[:forkIdx]...)
		next = append(next, edge{source: forkID, target: through.target, port: through.port, formatter: through.formatter})
		next = append(next, sorted[aggrIdx+1:]...)

		edges = next
		pair = &forkAggrPair{fork: forkID, aggregator: aggrID}
	}
}

// findRegion returns the indices of the edges leaving the first fork and its
// matching aggregator, or -1, -1 when no balanced region remains.
func (s *session) findRegion(sorted []edge) (int, int) {
	level := 0
	forkIdx := -1
	checked := make(map[string]bool)
	for i, e := range sorted {
		id := e.source
		if s.usedForks[id] || checked[id] {
			continue
		}
		checked[id] = true
		switch {
		case s.ix.isFork(id):
			if level == 0 {
				forkIdx = i
			}
			level++
		case s.ix.isAggregator(id):
			if forkIdx < 0 {
				s.log.Warn("aggregator without a preceding fork", "node", id)
				continue
			}
			level--
			if level == 0 {
				return forkIdx, i
			}
		}
	}
	if forkIdx >= 0 {
		s.log.Warn("fork without a matching aggregator", "node", sorted[forkIdx].source)
	}
	return -1, -1
}

// collapse serializes the fork with its case bodies filled in.
func (s *session) collapse(forkID, aggrID string) error {
	n, err := s.ix.lookup(forkID)
	if err != nil {
		return err
	}
	br, ok := n.(node.BranchNode)
	if !ok {
		return &UnsupportedTypeError{ID: forkID, Type: n.LowerType()}
	}
	var style plan.BranchStyle
	switch n.LowerType() {
	case "ifs":
		style = plan.BranchIfs
	case "switch", "intention":
		style = plan.BranchCases
	default:
		return &UnsupportedTypeError{ID: forkID, Type: n.LowerType()}
	}

	bodies, err := s.caseBodies(br, aggrID)
	if err != nil {
		return err
	}
	pn, err := s.serialize(forkID)
	if err != nil {
		return err
	}

	b := &plan.Branch{Style: style}
	for _, c := range br.Cases() {
		if style == plan.BranchIfs {
			switch c {
			case "true":
				b.True = bodies[c]
			case "false":
				b.False = bodies[c]
			default:
				return &StructuralError{ForkID: forkID, AggregatorID: aggrID, Case: c, Err: ErrUnknownCase}
			}
			continue
		}
		key, err := caseKey(br, c)
		if err != nil {
			return fmt.Errorf("fork %q: %w", forkID, err)
		}
		b.Cases = append(b.Cases, plan.Case{Key: key, Nodes: bodies[c]})
	}
	pn.Branch = b

	s.log.Debug("collapsed branch region", "fork", forkID, "aggregator", aggrID, "cases", len(br.Cases()))
	return nil
}

// caseKey returns the plan key of a case, coerced to the fork's declared key
// type. The "default" case is never coerced.
func caseKey(br node.BranchNode, caseID string) (any, error) {
	raw := br.CaseKey(caseID)
	if raw == "default" {
		return raw, nil
	}
	switch br.KeyType() {
	case "int", "integer":
		v, err := cast.ToInt64E(raw)
		if err != nil {
			return nil, fmt.Errorf("case %q: key %q is not an int: %w", caseID, raw, err)
		}
		return v, nil
	case "float", "number":
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, fmt.Errorf("case %q: key %q is not a float: %w", caseID, raw, err)
		}
		return v, nil
	}
	return raw, nil
}

// caseBodies extracts the body of every wired case: the single simple path
// from the fork to the aggregator that starts in that case.
func (s *session) caseBodies(br node.BranchNode, aggrID string) (map[string][]*plan.Node, error) {
	forkID := br.ID()
	paths, err := s.simplePaths(forkID, aggrID)
	if err != nil {
		return nil, err
	}

	byCase := make(map[string][][]string)
	for _, p := range paths {
		interior := p[1 : len(p)-1]
		if len(interior) == 0 {
			c, _ := br.CaseOf(aggrID)
			return nil, &StructuralError{ForkID: forkID, AggregatorID: aggrID, Case: c, Err: ErrDirectConnection}
		}
		c, ok := br.CaseOf(interior[0])
		if !ok {
			return nil, &StructuralError{ForkID: forkID, AggregatorID: aggrID, Case: interior[0], Err: ErrUnknownCase}
		}
		byCase[c] = append(byCase[c], interior)
	}

	bodies := make(map[string][]*plan.Node, len(byCase))
	for _, c := range br.Cases() {
		ps := byCase[c]
		switch len(ps) {
		case 0:
			return nil, &StructuralError{ForkID: forkID, AggregatorID: aggrID, Case: c, Err: ErrDirectConnection}
		case 1:
		default:
			return nil, &StructuralError{ForkID: forkID, AggregatorID: aggrID, Case: c, Err: ErrNestedBranch}
		}
		body := make([]*plan.Node, 0, len(ps[0]))
		for _, id := range ps[0] {
			pn, err := s.serialize(id)
			if err != nil {
				return nil, err
			}
			body = append(body, pn)
		}
		bodies[c] = body
	}
	return bodies, nil
}

// simplePaths enumerates the simple paths from one node to another over the
// full canvas graph.
func (s *session) simplePaths(from, to string) ([][]string, error) {
	var paths [][]string
	path := []string{from}
	onPath := map[string]bool{from: true}

	var dfs func(id string) error
	dfs = func(id string) error {
		for _, next := range s.ix.succ[id] {
			if next == to {
				p := make([]string, len(path)+1)
				copy(p, path)
				p[len(path)] = to
				paths = append(paths, p)
				if len(paths) > maxSimplePaths {
					return &StructuralError{ForkID: from, AggregatorID: to, Err: ErrNestedBranch}
				}
				continue
			}
			if onPath[next] || canvas.IsSentinel(next) {
				continue
			}
			onPath[next] = true
			path = append(path, next)
			if err := dfs(next); err != nil {
				return err
			}
			path = path[:len(path)-1]
			delete(onPath, next)
		}
		return nil
	}
	if err := dfs(from); err != nil {
		return nil, err
	}
	return paths, nil
}
