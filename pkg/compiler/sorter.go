package compiler

import (
	"fmt"
	"sort"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
)

// forkAggrPair names a region that was just collapsed into a (fork, target)
// edge, so ordering entries recorded against the aggregator follow the fork.
type forkAggrPair struct {
	fork, aggregator string
}

// pathSorter orders edges from start to end. It walks backward from the end
// node, visiting the incoming edges of every node in declared port order,
// and reverses the result.
type pathSorter struct {
	ix      *graphIndex
	mapping map[string][]edge

	seen    map[edgeKey]bool
	done    map[string]bool
	onStack map[string]bool
	result  []edge
}

// sortEdges returns edges ordered from start to end. Edges that do not lead
// to the end node are dropped.
func sortEdges(ix *graphIndex, edges []edge, pair *forkAggrPair) (sorted []edge, err error) {
	if pair != nil {
		ix.correctOrdering(*pair)
	}

	s := &pathSorter{
		ix:      ix,
		mapping: make(map[string][]edge),
		seen:    make(map[edgeKey]bool),
		done:    make(map[string]bool),
		onStack: make(map[string]bool),
	}
	for _, e := range edges {
		s.mapping[e.target] = append(s.mapping[e.target], e)
	}
	for target, order := range ix.sortingInputs {
		incoming, ok := s.mapping[target]
		if !ok {
			continue
		}
		pos := make(map[edgeKey]int, len(order))
		for i, k := range order {
			pos[k] = i
		}
		rank := func(e edge) int {
			if p, ok := pos[e.key()]; ok {
				return p
			}
			return -1
		}
		// Descending: the walk runs backward, so the reversal makes it ascending.
		sort.SliceStable(incoming, func(i, j int) bool {
			return rank(incoming[i]) > rank(incoming[j])
		})
	}

	if err := s.walk(canvas.EndID); err != nil {
		return nil, &EdgeProcessingError{Err: err}
	}

	sorted = make([]edge, len(s.result))
	for i, e := range s.result {
		sorted[len(s.result)-1-i] = e
	}
	return sorted, nil
}

func (s *pathSorter) walk(id string) error {
	if id == canvas.StartID || s.done[id] {
		return nil
	}
	if s.onStack[id] {
		return fmt.Errorf("%w: node %q reaches itself", ErrCyclicGraph, id)
	}
	s.onStack[id] = true
	defer delete(s.onStack, id)

	incoming := s.mapping[id]
	if s.ix.isAggregator(id) && len(incoming) > 1 {
		// One continuation is enough; the region body is extracted separately.
		incoming = incoming[:1]
	}
	for _, e := range incoming {
		if !s.seen[e.key()] {
			s.seen[e.key()] = true
			s.result = append(s.result, e)
		}
		if err := s.walk(e.source); err != nil {
			return err
		}
	}
	s.done[id] = true
	return nil
}

// correctOrdering rewrites ordering entries whose source is the collapsed
// aggregator to reference the fork, keeping their relative order.
func (ix *graphIndex) correctOrdering(pair forkAggrPair) {
	for target, order := range ix.sortingInputs {
		for i, k := range order {
			if k.source == pair.aggregator {
				order[i] = edgeKey{pair.fork, target, k.port}
			}
		}
	}
}
