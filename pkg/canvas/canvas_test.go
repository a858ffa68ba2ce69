package canvas_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
)

// ─── Parse tests ──────────────────────────────────────────────────────────────

func TestParse_Direct(t *testing.T) {
	src := `{
		"nodes": [
			{"id": "A", "kind": "Code", "name": "step", "data": {"code": "x"}}
		],
		"resources": [{"id": "m1", "kind": "OnlineLLM"}],
		"edges": [{"source": "__start__", "target": "A", "label": "*[0]"}]
	}`
	g, err := canvas.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Nodes) != 1 || len(g.Resources) != 1 || len(g.Edges) != 1 {
		t.Fatalf("got %d nodes, %d resources, %d edges", len(g.Nodes), len(g.Resources), len(g.Edges))
	}
	n := g.Nodes[0]
	if n.ID() != "A" || n.Kind() != "Code" || n.Name() != "step" {
		t.Errorf("node = (%q, %q, %q)", n.ID(), n.Kind(), n.Name())
	}
	if got := n.Get("code").String(); got != "x" {
		t.Errorf("data.code = %q, want x", got)
	}
	if g.Edges[0].Label != "*[0]" {
		t.Errorf("label = %q", g.Edges[0].Label)
	}
}

func TestParse_GraphEnvelope(t *testing.T) {
	src := `{"graph": {"nodes": [{"id": "A", "kind": "code"}], "edges": []}}`
	g, err := canvas.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].ID() != "A" {
		t.Errorf("envelope not unwrapped: %+v", g.Nodes)
	}
}

func TestParse_DropsSelfLinks(t *testing.T) {
	src := `{
		"nodes": [{"id": "A", "kind": "code"}],
		"edges": [
			{"source": "A", "target": "A_link"},
			{"source": "A", "target": "__end__"}
		]
	}`
	g, err := canvas.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Edges) != 1 || g.Edges[0].Target != "__end__" {
		t.Errorf("edges = %+v, want only A -> __end__", g.Edges)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := canvas.Parse([]byte(`{"nodes": [`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestRawNode_KindFallbacks(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`{"id":"a","kind":"ifs","type":"other"}`, "ifs"},
		{`{"id":"a","type":"switch"}`, "switch"},
		{`{"id":"a","data":{"kind":"intention"}}`, "intention"},
		{`{"id":"a"}`, ""},
	}
	for _, c := range cases {
		n, err := canvas.NewRawNode([]byte(c.src))
		if err != nil {
			t.Fatalf("NewRawNode(%s): %v", c.src, err)
		}
		if got := n.Kind(); got != c.want {
			t.Errorf("Kind(%s) = %q, want %q", c.src, got, c.want)
		}
	}
}

func TestRawNode_ArgsPayload(t *testing.T) {
	n, err := canvas.NewRawNode([]byte(`{"id":"a","kind":"code","args":{"code":"y"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := n.Get("code").String(); got != "y" {
		t.Errorf("args.code = %q, want y", got)
	}
}

func TestNewRawNode_RejectsInvalidInput(t *testing.T) {
	for _, src := range []string{`{"id":"a",`, `[1,2]`, `"a"`, ``} {
		if _, err := canvas.NewRawNode([]byte(src)); err == nil {
			t.Errorf("NewRawNode(%q): expected error", src)
		}
	}
}

func TestRawNode_RoundTripJSON(t *testing.T) {
	src := `{"id":"a","kind":"code","data":{"n":1}}`
	var n canvas.RawNode
	if err := json.Unmarshal([]byte(src), &n); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	out, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != src {
		t.Errorf("round trip = %s, want %s", out, src)
	}
}

func TestRawGraph_EdgeQueries(t *testing.T) {
	g := &canvas.RawGraph{Edges: []canvas.RawEdge{
		{Source: "A", Target: "B"},
		{Source: "A", Target: "C"},
		{Source: "C", Target: "B"},
	}}
	if got := len(g.OutgoingEdges("A")); got != 2 {
		t.Errorf("OutgoingEdges(A) = %d, want 2", got)
	}
	if got := len(g.IncomingEdges("B")); got != 2 {
		t.Errorf("IncomingEdges(B) = %d, want 2", got)
	}
}

func TestLoad_JSONAndDOT(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	dotPath := filepath.Join(dir, "app.dot")
	if err := os.WriteFile(jsonPath, []byte(`{"nodes":[{"id":"A","kind":"code"}],"edges":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dotPath, []byte(`digraph app { A [kind=code] }`), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{jsonPath, dotPath} {
		g, err := canvas.Load(p)
		if err != nil {
			t.Fatalf("Load(%s): %v", p, err)
		}
		if len(g.Nodes) != 1 || g.Nodes[0].Kind() != "code" {
			t.Errorf("Load(%s): nodes = %d", p, len(g.Nodes))
		}
	}
	if _, err := canvas.Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// ─── DOT tests ────────────────────────────────────────────────────────────────

func TestParseDOT_NodesAndResources(t *testing.T) {
	src := `digraph app {
		llm [kind=SharedLLM, name="Ask", base_model=m1, temperature=0.5]
		m1  [kind=OnlineLLM, resource=true, source="openai"]
		__start__ -> llm
		llm -> __end__ [label="*[0]"]
	}`
	g, err := canvas.ParseDOT(src)
	if err != nil {
		t.Fatalf("ParseDOT: %v", err)
	}
	if len(g.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1 (sentinels are implicit)", len(g.Nodes))
	}
	if len(g.Resources) != 1 || g.Resources[0].ID() != "m1" {
		t.Fatalf("resources = %+v, want m1", g.Resources)
	}
	llm := g.Nodes[0]
	if llm.Kind() != "SharedLLM" || llm.Name() != "Ask" {
		t.Errorf("llm = (%q, %q)", llm.Kind(), llm.Name())
	}
	if got := llm.Get("base_model").String(); got != "m1" {
		t.Errorf("base_model = %q", got)
	}
	if got := llm.Get("temperature").Float(); got != 0.5 {
		t.Errorf("temperature = %v, want 0.5 as a number", got)
	}
	if llm.Get("resource").Exists() || llm.Get("kind").Exists() {
		t.Error("reserved attributes leaked into payload")
	}
	if len(g.Edges) != 2 || g.Edges[1].Label != "*[0]" {
		t.Errorf("edges = %+v", g.Edges)
	}
}

func TestParseDOT_Ports(t *testing.T) {
	src := `digraph app {
		f [kind=ifs]
		a [kind=code]
		f:true -> a:in0
	}`
	g, err := canvas.ParseDOT(src)
	if err != nil {
		t.Fatalf("ParseDOT: %v", err)
	}
	if len(g.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(g.Edges))
	}
	e := g.Edges[0]
	if e.SourceHandle != "true" || e.TargetHandle != "in0" {
		t.Errorf("handles = (%q, %q), want (true, in0)", e.SourceHandle, e.TargetHandle)
	}
}

func TestParseDOT_QuotedValues(t *testing.T) {
	src := `digraph app {
		a [kind=code, code="print(\"hi\")", cases="[\"x\", \"y\"]"]
	}`
	g, err := canvas.ParseDOT(src)
	if err != nil {
		t.Fatalf("ParseDOT: %v", err)
	}
	a := g.Nodes[0]
	if got := a.Get("code").String(); got != `print("hi")` {
		t.Errorf("code = %q", got)
	}
	if got := len(a.Get("cases").Array()); got != 2 {
		t.Errorf("cases = %d entries, want 2 (JSON literal decoded)", got)
	}
}

func TestParseDOT_Invalid(t *testing.T) {
	if _, err := canvas.ParseDOT(`not a digraph`); err == nil {
		t.Fatal("expected parse error")
	}
}

// ─── Validator tests ──────────────────────────────────────────────────────────

func mustParse(t *testing.T, src string) *canvas.RawGraph {
	t.Helper()
	g, err := canvas.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return g
}

func TestValidate_Valid(t *testing.T) {
	g := mustParse(t, `{
		"nodes": [
			{"id": "s", "kind": "start"},
			{"id": "A", "kind": "code"},
			{"id": "e", "kind": "end"}
		],
		"resources": [{"id": "m1", "kind": "OnlineLLM"}],
		"edges": [{"source": "s", "target": "A"}, {"source": "A", "target": "e"}]
	}`)
	if errs := canvas.Validate(g); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
	if err := canvas.ValidateErr(g); err != nil {
		t.Errorf("ValidateErr: %v", err)
	}
}

func TestValidate_SentinelEdges(t *testing.T) {
	g := mustParse(t, `{
		"nodes": [{"id": "A", "kind": "code"}],
		"edges": [{"source": "__start__", "target": "A"}, {"source": "A", "target": "__end__"}]
	}`)
	if errs := canvas.Validate(g); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidate_Problems(t *testing.T) {
	g := mustParse(t, `{
		"nodes": [
			{"id": "s1", "kind": "start"},
			{"id": "s2", "kind": "start"},
			{"id": "A", "kind": "code"},
			{"id": "A", "kind": "code"},
			{"id": "orphan", "kind": "code"},
			{"kind": "code"}
		],
		"edges": [{"source": "s1", "target": "A"}, {"source": "A", "target": "ghost"}]
	}`)
	errs := canvas.Validate(g)
	joined := canvas.ValidateErr(g).Error()
	for _, want := range []string{
		"duplicate node id",
		"2 start nodes",
		`unknown target node "ghost"`,
		`node "orphan": node is not reachable from start`,
		"node without id",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
	if len(errs) < 5 {
		t.Errorf("expected at least 5 errors, got %d", len(errs))
	}
}
