// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"fmt"
	"strings"
)

// Mermaid renders the tree as a Mermaid graph: selectors as "[?]" blocks,
// sequences as "[->]" blocks, leaves as named blocks.
func Mermaid(root *Node) string {
	lines := []string{"graph TD"}

	ids := map[*Node]int{}
	next := 0
	nodeID := func(n *Node) int {
		if id, ok := ids[n]; ok {
			return id
		}
		ids[n] = next
		next++
		return ids[n]
	}

	var traverse func(n *Node)
	traverse = func(n *Node) {
		for _, child := range n.children {
			lines = append(lines, fmt.Sprintf("    n%d%s --> n%d%s",
				nodeID(n), mermaidLabel(n), nodeID(child), mermaidLabel(child)))
			traverse(child)
		}
	}
	traverse(root)

	return strings.Join(lines, "\n")
}

func mermaidLabel(n *Node) string {
	switch n.kind {
	case KindSelector:
		return `["?"]`
	case KindSequence:
		return `["->"]`
	default:
		return fmt.Sprintf("[%s]", n.name)
	}
}
