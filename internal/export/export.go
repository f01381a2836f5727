// Package export renders a network, or an ego view of it, as Graphviz DOT,
// Mermaid or JSON. Edges are labelled with the interests both ends share.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/efebarandurmaz/socialgraph/internal/social"
)

// Format names accepted by Write.
const (
	FormatDOT     = "dot"
	FormatMermaid = "mermaid"
	FormatJSON    = "json"
)

// Formats lists the formats Write understands.
var Formats = []string{FormatDOT, FormatMermaid, FormatJSON}

// Edge is a friendship with the interests its two persons share.
type Edge struct {
	A               int      `json:"a"`
	B               int      `json:"b"`
	CommonInterests []string `json:"common_interests"`
}

// Document is the JSON export shape.
type Document struct {
	Nodes       []social.Person `json:"nodes"`
	Edges       []Edge          `json:"edges"`
	Communities [][]int         `json:"communities,omitempty"`
}

type options struct {
	communities [][]int
	name        string
}

// Option configures an export.
type Option func(*options)

// WithCommunities groups nodes into one cluster per community.
func WithCommunities(partition [][]int) Option {
	return func(o *options) { o.communities = partition }
}

// WithName sets the graph name in DOT output.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{name: "social"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// labelledEdges annotates each edge of g with its shared interests.
func labelledEdges(g *social.Graph) []Edge {
	byID := make(map[int]social.Person, len(g.Nodes))
	for _, p := range g.Nodes {
		byID[p.ID] = p
	}
	out := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		common := byID[e.A].CommonInterests(byID[e.B])
		out = append(out, Edge{A: e.A, B: e.B, CommonInterests: common})
	}
	return out
}

// ExportDOT generates an undirected Graphviz graph.
func ExportDOT(g *social.Graph, opts ...Option) string {
	o := buildOptions(opts)
	var b strings.Builder
	fmt.Fprintf(&b, "graph %s {\n", sanitizeID(o.name))

	clustered := make(map[int]bool)
	for i, members := range o.communities {
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i+1)
		fmt.Fprintf(&b, "    label=\"community %d\";\n", i+1)
		for _, id := range members {
			clustered[id] = true
		}
		for _, p := range g.Nodes {
			if contains(members, p.ID) {
				fmt.Fprintf(&b, "    \"%d\" [label=\"%s\"];\n", p.ID, escapeDOT(p.Name))
			}
		}
		b.WriteString("  }\n")
	}
	for _, p := range g.Nodes {
		if !clustered[p.ID] {
			fmt.Fprintf(&b, "  \"%d\" [label=\"%s\"];\n", p.ID, escapeDOT(p.Name))
		}
	}

	for _, e := range labelledEdges(g) {
		label := ""
		if len(e.CommonInterests) > 0 {
			label = fmt.Sprintf(" [label=\"%s\"]", escapeDOT(strings.Join(e.CommonInterests, ", ")))
		}
		fmt.Fprintf(&b, "  \"%d\" -- \"%d\"%s;\n", e.A, e.B, label)
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid flowchart.
func ExportMermaid(g *social.Graph, opts ...Option) string {
	o := buildOptions(opts)
	var b strings.Builder
	b.WriteString("graph LR\n")

	clustered := make(map[int]bool)
	for i, members := range o.communities {
		fmt.Fprintf(&b, "  subgraph community_%d\n", i+1)
		for _, p := range g.Nodes {
			if contains(members, p.ID) {
				clustered[p.ID] = true
				fmt.Fprintf(&b, "    %s[\"%s\"]\n", mermaidID(p.ID), escapeMermaid(p.Name))
			}
		}
		b.WriteString("  end\n")
	}
	for _, p := range g.Nodes {
		if !clustered[p.ID] {
			fmt.Fprintf(&b, "  %s[\"%s\"]\n", mermaidID(p.ID), escapeMermaid(p.Name))
		}
	}

	for _, e := range labelledEdges(g) {
		label := ""
		if len(e.CommonInterests) > 0 {
			label = "|" + escapeMermaid(strings.Join(e.CommonInterests, ", ")) + "|"
		}
		fmt.Fprintf(&b, "  %s ---%s %s\n", mermaidID(e.A), label, mermaidID(e.B))
	}
	return b.String()
}

// ExportJSON serializes the graph with labelled edges.
func ExportJSON(g *social.Graph, opts ...Option) ([]byte, error) {
	o := buildOptions(opts)
	nodes := g.Nodes
	if nodes == nil {
		nodes = []social.Person{}
	}
	return json.MarshalIndent(Document{
		Nodes:       nodes,
		Edges:       labelledEdges(g),
		Communities: o.communities,
	}, "", "  ")
}

// Write renders g to w in the named format.
func Write(w io.Writer, format string, g *social.Graph, opts ...Option) error {
	var out []byte
	switch strings.ToLower(format) {
	case FormatDOT:
		out = []byte(ExportDOT(g, opts...))
	case FormatMermaid:
		out = []byte(ExportMermaid(g, opts...))
	case FormatJSON:
		data, err := ExportJSON(g, opts...)
		if err != nil {
			return fmt.Errorf("marshal graph: %w", err)
		}
		out = append(data, '\n')
	default:
		return fmt.Errorf("unknown export format %q, expected one of %s", format, strings.Join(Formats, ", "))
	}
	_, err := w.Write(out)
	return err
}

func contains(ids []int, id int) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func mermaidID(id int) string {
	return fmt.Sprintf("p%d", id)
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func escapeDOT(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func escapeMermaid(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "|", "#124;").Replace(s)
}
