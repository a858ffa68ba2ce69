package canvas

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
	"github.com/tidwall/sjson"
)

// ParseDOT parses a canvas authored as a Graphviz digraph.
//
//	digraph app {
//	    llm  [kind=SharedLLM, base_model=m1]
//	    m1   [kind=OnlineLLM, resource=true]
//	    __start__ -> llm -> __end__
//	}
//
// The kind attribute selects the node kind, resource=true files the node under
// resources, and every other attribute becomes a payload field (JSON literals
// are decoded, anything else is kept as a string). Edge labels become
// formatters and ports become source/target handles.
func ParseDOT(src string) (*RawGraph, error) {
	graphAst, err := gographviz.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("dot parse error: %w", err)
	}

	collector := newDOTCollector()
	if err := gographviz.Analyse(graphAst, collector); err != nil {
		return nil, fmt.Errorf("dot analyse error: %w", err)
	}

	g := &RawGraph{}
	for _, id := range collector.order {
		attrs := collector.nodes[id]
		// Sentinels only appear implicitly through edges.
		if IsSentinel(id) && attrs["kind"] == "" {
			continue
		}
		raw, err := buildRawNode(id, attrs)
		if err != nil {
			return nil, fmt.Errorf("dot node %q: %w", id, err)
		}
		if isTrue(attrs["resource"]) {
			g.Resources = append(g.Resources, raw)
		} else {
			g.Nodes = append(g.Nodes, raw)
		}
	}
	g.Edges = collector.edges
	g.dropSelfLinks()
	return g, nil
}

// buildRawNode turns DOT attributes into the editor's node JSON shape.
func buildRawNode(id string, attrs map[string]string) (RawNode, error) {
	raw := []byte(`{"data":{}}`)
	var err error
	if raw, err = sjson.SetBytes(raw, "id", id); err != nil {
		return RawNode{}, err
	}
	if raw, err = sjson.SetBytes(raw, "kind", attrs["kind"]); err != nil {
		return RawNode{}, err
	}
	if name := attrs["name"]; name != "" {
		if raw, err = sjson.SetBytes(raw, "name", name); err != nil {
			return RawNode{}, err
		}
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		switch k {
		case "kind", "name", "resource":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw, err = sjson.SetRawBytes(raw, "data."+escapePath(k), jsonLiteral(attrs[k]))
		if err != nil {
			return RawNode{}, fmt.Errorf("attribute %q: %w", k, err)
		}
	}
	return NewRawNode(raw)
}

// jsonLiteral keeps values that already are JSON (numbers, booleans, arrays,
// objects) and quotes everything else.
func jsonLiteral(v string) []byte {
	trimmed := strings.TrimSpace(v)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return []byte(trimmed)
	}
	quoted, _ := json.Marshal(v)
	return quoted
}

func escapePath(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// ─── permissive DOT collector ─────────────────────────────────────────────────

// dotCollector implements gographviz.Interface without attribute validation.
type dotCollector struct {
	name  string
	order []string
	nodes map[string]map[string]string // id → attrs
	edges []RawEdge
	// defaultNodeAttrs holds attrs set at the graph level (node [...]).
	defaultNodeAttrs map[string]string
}

func newDOTCollector() *dotCollector {
	return &dotCollector{
		nodes:            make(map[string]map[string]string),
		defaultNodeAttrs: make(map[string]string),
	}
}

func (c *dotCollector) SetStrict(_ bool) error { return nil }
func (c *dotCollector) SetDir(_ bool) error    { return nil }
func (c *dotCollector) SetName(n string) error { c.name = unquote(n); return nil }
func (c *dotCollector) String() string         { return c.name }

func (c *dotCollector) AddNode(_ string, name string, attrs map[string]string) error {
	id := unquote(name)
	if _, ok := c.nodes[id]; !ok {
		c.order = append(c.order, id)
		c.nodes[id] = make(map[string]string, len(c.defaultNodeAttrs))
		for k, v := range c.defaultNodeAttrs {
			c.nodes[id][k] = v
		}
	}
	for k, v := range attrs {
		c.nodes[id][k] = unquote(v)
	}
	return nil
}

func (c *dotCollector) AddEdge(src, dst string, directed bool, attrs map[string]string) error {
	return c.AddPortEdge(src, "", dst, "", directed, attrs)
}

func (c *dotCollector) AddPortEdge(src, srcPort, dst, dstPort string, _ bool, attrs map[string]string) error {
	e := RawEdge{
		Source:       unquote(src),
		Target:       unquote(dst),
		SourceHandle: portName(srcPort),
		TargetHandle: portName(dstPort),
	}
	if lbl, ok := attrs["label"]; ok {
		e.Label = unquote(lbl)
	}
	c.edges = append(c.edges, e)
	return nil
}

func (c *dotCollector) AddAttr(_ string, _, _ string) error { return nil }

func (c *dotCollector) AddSubGraph(_, _ string, _ map[string]string) error { return nil }

// ─── helpers ─────────────────────────────────────────────────────────────────

// unquote strips surrounding double-quotes from a DOT attribute value and
// resolves escaped quotes inside it.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}

// portName reduces a DOT port (":id" or ":id:compass") to its id.
func portName(port string) string {
	port = strings.TrimPrefix(strings.TrimSpace(port), ":")
	if i := strings.Index(port, ":"); i >= 0 {
		port = port[:i]
	}
	return unquote(port)
}
