package output

import (
	"fmt"
	"strings"

	"github.com/w31r4/gowhy/internal/why"
)

// Tree renders the process tree rooted at the attribution root, pstree
// style. The investigated pid is highlighted; nodes whose facts could
// not be fetched are marked gone.
func (r *Renderer) Tree(tree *why.ProcessTree, targetPID int) string {
	var b strings.Builder
	r.treeNode(&b, tree, "", true, true, targetPID)
	return b.String()
}

func (r *Renderer) treeNode(b *strings.Builder, node *why.ProcessTree, prefix string, isRoot, isLast bool, targetPID int) {
	connector := ""
	if !isRoot {
		connector = "├─ "
		if isLast {
			connector = "└─ "
		}
	}

	label := fmt.Sprintf("%s (pid %d)", node.Command, node.PID)
	switch {
	case node.PID == targetPID:
		label = r.styles.Command.Render(label) + " " + r.styles.Source.Render("◀")
	case node.Stub:
		label = r.styles.Faint.Render(label + " [gone]")
	}
	b.WriteString(prefix + connector + label + "\n")

	childPrefix := prefix
	if !isRoot {
		if isLast {
			childPrefix += "   "
		} else {
			childPrefix += "│  "
		}
	}
	for i, child := range node.Children {
		r.treeNode(b, child, childPrefix, false, i == len(node.Children)-1, targetPID)
	}
}
