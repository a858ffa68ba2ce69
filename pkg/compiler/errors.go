package compiler

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound      = errors.New("node not found")
	ErrDirectConnection  = errors.New("fork is connected directly to its aggregator")
	ErrNestedBranch      = errors.New("nested branching inside a case is not supported")
	ErrUnknownCase       = errors.New("edge does not belong to a known case")
	ErrUnsupportedType   = errors.New("unsupported control type")
	ErrCyclicGraph       = errors.New("cyclic graph")
	ErrAmbiguousBoundary = errors.New("more than one start or end node")
	ErrDuplicateNode     = errors.New("duplicate node id")
	ErrDepthExceeded     = errors.New("subgraph nesting too deep")
)

// LookupError is returned when an edge or pass references an id that is
// neither a node, a resource nor a sentinel.
type LookupError struct {
	ID string
}

func (e *LookupError) Error() string { return "node not found: " + e.ID }

func (e *LookupError) Is(target error) bool { return target == ErrNodeNotFound }

// StructuralError reports a malformed fork/aggregator region.
type StructuralError struct {
	ForkID       string
	AggregatorID string
	Case         string
	Err          error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("branch %q -> %q, case %q: %v", e.ForkID, e.AggregatorID, e.Case, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// UnsupportedTypeError is returned for a fork whose kind has no branch layout.
type UnsupportedTypeError struct {
	ID   string
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("控件%s 未实现格式转换 (node %q)", e.Type, e.ID)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// EdgeProcessingError wraps failures raised while ordering edges.
type EdgeProcessingError struct {
	Err error
}

func (e *EdgeProcessingError) Error() string { return "处理连线时出错: " + e.Err.Error() }

func (e *EdgeProcessingError) Unwrap() error { return e.Err }
