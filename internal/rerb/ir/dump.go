package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders n as an indented s-expression. The output is deterministic
// and is meant for debugging and tests, not for execution.
func Dump(n Node) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case nil:
		fmt.Fprintf(b, "%snil\n", indent)
	case *Ignore:
		fmt.Fprintf(b, "%s(ignore)\n", indent)
	case *Content:
		fmt.Fprintf(b, "%s(content %s)\n", indent, strconv.Quote(n.Text))
	case *Expression:
		fmt.Fprintf(b, "%s(expr %s)\n", indent, strconv.Quote(n.Code))
	case *Statement:
		fmt.Fprintf(b, "%s(stmt %s)\n", indent, strconv.Quote(n.Code))
	case *Create:
		fmt.Fprintf(b, "%s(create %s\n", indent, n.Ref)
		dumpContainer(b, n.Tag, depth+1)
		dumpContainer(b, n.Setup, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	case *Container:
		dumpContainer(b, n, depth)
	case *Attribute:
		fmt.Fprintf(b, "%s(attr %s %s\n", indent, n.Kind, n.Target)
		dumpContainer(b, n.Name, depth+1)
		dumpContainer(b, n.Value, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	default:
		panic(fmt.Sprintf("ir: unexpected node %T", n))
	}
}

func dumpContainer(b *strings.Builder, c *Container, depth int) {
	indent := strings.Repeat("  ", depth)
	if c == nil {
		fmt.Fprintf(b, "%snil\n", indent)
		return
	}
	if len(c.Nodes) == 0 {
		fmt.Fprintf(b, "%s(container %s)\n", indent, c.Target)
		return
	}
	fmt.Fprintf(b, "%s(container %s\n", indent, c.Target)
	for _, child := range c.Nodes {
		dump(b, child, depth+1)
	}
	fmt.Fprintf(b, "%s)\n", indent)
}
