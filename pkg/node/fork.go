package node

import (
	"strings"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
)

// Fork is a branching node. Every outgoing edge is labelled by its source
// handle, which names the case the edge starts.
type Fork struct {
	*Base

	declared []string          // case ids in declaration order
	keys     map[string]string // case id → case value
	targets  map[string]string // first node of a case → case id
	wired    []string
}

// NewFork builds a fork with the given declared case ids.
func NewFork(raw canvas.RawNode, declared ...string) *Fork {
	b := NewBase(raw, CategoryFork)
	b.reserved = append(b.reserved, keyCases, keyKeyType)
	return &Fork{
		Base:     b,
		declared: declared,
		keys:     make(map[string]string),
		targets:  make(map[string]string),
	}
}

// NewIfs builds a two-way "ifs" fork with cases "true" and "false".
func NewIfs(raw canvas.RawNode) (Node, error) {
	return NewFork(raw, "true", "false"), nil
}

// NewSwitch builds a "switch" or "intention" fork. Cases are read from
// data.cases, either as plain ids or as {id, value} objects.
func NewSwitch(raw canvas.RawNode) (Node, error) {
	f := NewFork(raw)
	for _, c := range raw.Get(keyCases).Array() {
		id, value := c.String(), c.String()
		if c.IsObject() {
			id = c.Get("id").String()
			value = id
			if v := c.Get("value"); v.Exists() {
				value = v.String()
			}
		}
		if id == "" {
			continue
		}
		f.declared = append(f.declared, id)
		f.keys[id] = value
	}
	return f, nil
}

func (f *Fork) SetCaseEdge(handle, target string) {
	caseID := handle
	if f.LowerType() == "ifs" {
		caseID = strings.ToLower(handle)
	}
	f.targets[target] = caseID
	for _, w := range f.wired {
		if w == caseID {
			return
		}
	}
	f.wired = append(f.wired, caseID)
}

func (f *Fork) Cases() []string {
	wired := make(map[string]bool, len(f.wired))
	for _, w := range f.wired {
		wired[w] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, d := range f.declared {
		if wired[d] && !seen[d] {
			out = append(out, d)
			seen[d] = true
		}
	}
	for _, w := range f.wired {
		if !seen[w] {
			out = append(out, w)
			seen[w] = true
		}
	}
	return out
}

func (f *Fork) CaseOf(childID string) (string, bool) {
	c, ok := f.targets[childID]
	return c, ok
}

func (f *Fork) CaseKey(caseID string) string {
	if v, ok := f.keys[caseID]; ok {
		return v
	}
	return caseID
}

func (f *Fork) KeyType() string {
	return strings.ToLower(f.raw.Get(keyKeyType).String())
}
