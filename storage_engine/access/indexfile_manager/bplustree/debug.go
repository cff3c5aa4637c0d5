package bplus

import (
	"fmt"
	"os"
	"strings"

	"EmberDB/types"

	"github.com/pkg/errors"
)

/*
Debug helpers. Neither function latches the whole tree; they read page by
page and are meant for tests and the inspect tool, not for concurrent use
with writers.
*/

// Draw writes a graphviz dot description of the tree to path.
func (t *BPlusTree) Draw(path string) error {
	var b strings.Builder
	b.WriteString("digraph bplustree {\n")
	b.WriteString("  node [shape=record];\n")

	root, err := t.GetRootPageId()
	if err != nil {
		return err
	}
	if root != types.InvalidPageID {
		if err := t.drawPage(&b, root); err != nil {
			return err
		}
	}

	b.WriteString("}\n")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errors.Wrapf(err, "failed to write dot file %s", path)
	}
	return nil
}

func (t *BPlusTree) drawPage(b *strings.Builder, pageID types.PageID) error {
	g, err := t.bpm.FetchPageRead(pageID)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch page %d", pageID)
	}
	defer g.Drop()

	if isLeaf(g.Data()) {
		lp := asLeaf(g.Data())
		keys := make([]string, 0, lp.size())
		for i := 0; i < lp.size(); i++ {
			keys = append(keys, fmt.Sprintf("%d", lp.keyAt(i)))
		}
		fmt.Fprintf(b, "  p%d [label=\"leaf %d|{%s}\"];\n", pageID, pageID, strings.Join(keys, "|"))
		if next := lp.nextPageID(); next != types.InvalidPageID {
			fmt.Fprintf(b, "  p%d -> p%d [style=dashed];\n", pageID, next)
		}
		return nil
	}

	ip := asInternal(g.Data())
	keys := make([]string, 0, ip.size())
	for i := 0; i < ip.size(); i++ {
		if i == 0 {
			keys = append(keys, "*")
		} else {
			keys = append(keys, fmt.Sprintf("%d", ip.keyAt(i)))
		}
	}
	fmt.Fprintf(b, "  p%d [label=\"internal %d|{%s}\"];\n", pageID, pageID, strings.Join(keys, "|"))
	for i := 0; i < ip.size(); i++ {
		child := ip.childAt(i)
		fmt.Fprintf(b, "  p%d -> p%d;\n", pageID, child)
		if err := t.drawPage(b, child); err != nil {
			return err
		}
	}
	return nil
}

// DrawBPlusTree renders the tree as an indented multi-line string.
func (t *BPlusTree) DrawBPlusTree() (string, error) {
	root, err := t.GetRootPageId()
	if err != nil {
		return "", err
	}
	if root == types.InvalidPageID {
		return "(empty tree)\n", nil
	}
	var b strings.Builder
	if err := t.printPage(&b, root, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (t *BPlusTree) printPage(b *strings.Builder, pageID types.PageID, depth int) error {
	g, err := t.bpm.FetchPageRead(pageID)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch page %d", pageID)
	}
	defer g.Drop()

	indent := strings.Repeat("  ", depth)
	if isLeaf(g.Data()) {
		lp := asLeaf(g.Data())
		keys := make([]string, 0, lp.size())
		for i := 0; i < lp.size(); i++ {
			keys = append(keys, fmt.Sprintf("%d", lp.keyAt(i)))
		}
		fmt.Fprintf(b, "%sleaf[%d] keys=(%s) next=%d\n", indent, pageID, strings.Join(keys, " "), lp.nextPageID())
		return nil
	}

	ip := asInternal(g.Data())
	seps := make([]string, 0, ip.size())
	for i := 1; i < ip.size(); i++ {
		seps = append(seps, fmt.Sprintf("%d", ip.keyAt(i)))
	}
	fmt.Fprintf(b, "%sinternal[%d] seps=(%s)\n", indent, pageID, strings.Join(seps, " "))
	for i := 0; i < ip.size(); i++ {
		if err := t.printPage(b, ip.childAt(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}
