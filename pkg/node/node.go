// Package node defines the node construction contract the compiler depends
// on, a kind registry implementing it, and the built-in kinds.
package node

import (
	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

// Category is the structural role of a node, resolved once at construction.
type Category int

const (
	CategoryLeaf Category = iota
	CategoryStart
	CategoryEnd
	CategoryFork
	CategoryAggregator
	CategorySubgraph
)

func (c Category) String() string {
	switch c {
	case CategoryLeaf:
		return "leaf"
	case CategoryStart:
		return "start"
	case CategoryEnd:
		return "end"
	case CategoryFork:
		return "fork"
	case CategoryAggregator:
		return "aggregator"
	case CategorySubgraph:
		return "subgraph"
	}
	return "unknown"
}

// ConstantEdge declares a literal value fed into a node input. Index is the
// ordinal input position the constant takes among the node's inputs.
type ConstantEdge struct {
	Constant any `json:"constant"`
	Index    int `json:"index"`
}

// InputPort is a connected input handle and the node feeding it.
type InputPort struct {
	Handle string
	Source string
}

// Node is a canvas node as seen by the compiler.
type Node interface {
	ID() string
	// Kind is the declared type name; LowerType is its lower-cased form.
	Kind() string
	LowerType() string
	Name() string
	Category() Category

	// SetInputPort records that source is connected to the input handle.
	SetInputPort(handle, source string)
	// InputPorts returns the connected input handles in declared port order.
	InputPorts() []InputPort
	ConstantEdges() []ConstantEdge
	// UsedResources lists the resource ids the node references.
	UsedResources() []string
	// SubGraph returns the nested canvas of a subgraph node, nil otherwise.
	SubGraph() (*canvas.RawGraph, error)

	// ToPlan serializes the node without branch bodies or subgraph content.
	ToPlan() *plan.Node
}

// BranchNode is a fork: each outgoing edge starts one labelled case.
type BranchNode interface {
	Node
	// SetCaseEdge records that the edge leaving handle goes to target.
	SetCaseEdge(handle, target string)
	// Cases returns the wired case ids in declaration order.
	Cases() []string
	// CaseOf returns the case whose first node is childID.
	CaseOf(childID string) (string, bool)
	// CaseKey returns the value a case is keyed by in the plan.
	CaseKey(caseID string) string
	// KeyType is the declared type of the case values ("int", "float", "str").
	KeyType() string
}

// Factory builds nodes from raw canvas descriptions.
type Factory interface {
	Create(raw canvas.RawNode) (Node, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(raw canvas.RawNode) (Node, error)

func (f FactoryFunc) Create(raw canvas.RawNode) (Node, error) { return f(raw) }
