package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

func graphCmd(o *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph <canvas>",
		Short: "Print a human-readable summary of a compiled plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := compileCanvas(o, args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "dot":
				fmt.Fprint(cmd.OutOrStdout(), renderDOT(p))
			case "text", "":
				fmt.Fprint(cmd.OutOrStdout(), renderText(p))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	return cmd
}

// truncate shortens s to maxLen chars, appending "…" if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

// argString renders a node's args as sorted key=value pairs.
func argString(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+truncate(valueString(args[k]), 40))
	}
	return strings.Join(parts, " ")
}

func valueString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// renderText produces the human-readable text summary.
func renderText(p *plan.Plan) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Plan: %d nodes, %d edges, %d resources\n", len(p.Nodes), len(p.Edges), len(p.Resources))

	fmt.Fprintf(&sb, "\nNodes:\n")
	writeNodes(&sb, p.Nodes, 1)

	fmt.Fprintf(&sb, "\nEdges:\n")
	maxFromLen := 4
	for _, e := range p.Edges {
		if len(e.IID) > maxFromLen {
			maxFromLen = len(e.IID)
		}
	}
	for _, e := range p.Edges {
		switch {
		case e.IsConstant:
			fmt.Fprintf(&sb, "  %-*s  ⇒  %s\n", maxFromLen, truncate(valueString(e.Constant), maxFromLen), e.OID)
		case e.Formatter != "":
			fmt.Fprintf(&sb, "  %-*s  →  %s  [%s]\n", maxFromLen, e.IID, e.OID, e.Formatter)
		default:
			fmt.Fprintf(&sb, "  %-*s  →  %s\n", maxFromLen, e.IID, e.OID)
		}
	}

	if len(p.Resources) > 0 {
		fmt.Fprintf(&sb, "\nResources:\n")
		writeNodes(&sb, p.Resources, 1)
	}
	return sb.String()
}

func writeNodes(sb *strings.Builder, nodes []*plan.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		fmt.Fprintf(sb, "%s%s  %-12s  %s\n", indent, n.ID, n.Kind, argString(n.Args))
		if b := n.Branch; b != nil {
			switch b.Style {
			case plan.BranchIfs:
				fmt.Fprintf(sb, "%s  [true]\n", indent)
				writeNodes(sb, b.True, depth+2)
				fmt.Fprintf(sb, "%s  [false]\n", indent)
				writeNodes(sb, b.False, depth+2)
			case plan.BranchCases:
				for _, c := range b.Cases {
					fmt.Fprintf(sb, "%s  [%s]\n", indent, cast.ToString(c.Key))
					writeNodes(sb, c.Nodes, depth+2)
				}
			}
		}
		if n.Graph != nil {
			fmt.Fprintf(sb, "%s  [graph: %d nodes, %d edges]\n", indent, len(n.Graph.Nodes), len(n.Graph.Edges))
			writeNodes(sb, n.Graph.Nodes, depth+2)
		}
	}
}

// dotQuote returns the value as a DOT-safe string, quoting if necessary.
func dotQuote(s string) string {
	needsQuote := s == "" ||
		strings.ContainsAny(s, " \t\n\\\"{}[]<>=;,-.")
	if needsQuote {
		escaped := strings.ReplaceAll(s, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		return `"` + escaped + `"`
	}
	return s
}

// renderDOT produces a DOT digraph of the top-level plan. Branch bodies are
// drawn as dashed edges from the fork labelled with their case.
func renderDOT(p *plan.Plan) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "digraph plan {\n")

	var declare func(nodes []*plan.Node)
	declare = func(nodes []*plan.Node) {
		for _, n := range nodes {
			fmt.Fprintf(&sb, "    %s [kind=%s]\n", dotQuote(n.ID), dotQuote(n.Kind))
			if b := n.Branch; b != nil {
				body := func(label string, children []*plan.Node) {
					declare(children)
					for _, c := range children {
						fmt.Fprintf(&sb, "    %s -> %s [label=%s style=dashed]\n",
							dotQuote(n.ID), dotQuote(c.ID), dotQuote(label))
					}
				}
				body("true", b.True)
				body("false", b.False)
				for _, c := range b.Cases {
					body(cast.ToString(c.Key), c.Nodes)
				}
			}
		}
	}
	declare(p.Nodes)
	for _, r := range p.Resources {
		fmt.Fprintf(&sb, "    %s [kind=%s shape=box]\n", dotQuote(r.ID), dotQuote(r.Kind))
	}

	consts := 0
	for _, e := range p.Edges {
		switch {
		case e.IsConstant:
			id := fmt.Sprintf("const_%d", consts)
			consts++
			fmt.Fprintf(&sb, "    %s [shape=plaintext label=%s]\n", id, dotQuote(valueString(e.Constant)))
			fmt.Fprintf(&sb, "    %s -> %s\n", id, dotQuote(e.OID))
		case e.Formatter != "":
			fmt.Fprintf(&sb, "    %s -> %s [label=%s]\n",
				dotQuote(e.IID), dotQuote(e.OID), dotQuote(e.Formatter))
		default:
			fmt.Fprintf(&sb, "    %s -> %s\n", dotQuote(e.IID), dotQuote(e.OID))
		}
	}

	fmt.Fprintf(&sb, "}\n")
	return sb.String()
}
