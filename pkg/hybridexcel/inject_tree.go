package hybridexcel

import (
	"bufio"
	"io"
)

const partBufferSize = 64 << 10

// injectedKinds is the set of worksheet children replaced by frags.
func injectedKinds(frags []fragment) map[string]bool {
	kinds := make(map[string]bool, len(frags))
	for _, f := range frags {
		kinds[f.name] = true
	}
	return kinds
}

// injectTree loads the worksheet part into memory, replaces the blocks of
// the injected kinds and writes the result to w.
func injectTree(r io.Reader, w io.Writer, frags []fragment) error {
	doc, err := parseTree(r)
	if err != nil {
		return err
	}
	root := doc.root()
	prefix := namePrefix(root.Name)
	kinds := injectedKinds(frags)

	kept := root.Children[:0]
	for _, c := range root.Children {
		if c.Kind == elementNode {
			if local, ok := localName(c.Name, prefix); ok && kinds[local] {
				continue
			}
		}
		kept = append(kept, c)
	}
	root.Children = kept

	for _, f := range frags {
		at := len(root.Children)
		for i, c := range root.Children {
			if c.Kind == elementNode && childRank(c.Name, prefix) > f.rank {
				at = i
				break
			}
		}
		root.Children = append(root.Children, nil)
		copy(root.Children[at+1:], root.Children[at:])
		root.Children[at] = withPrefix(f.node, prefix)
	}

	bw := bufio.NewWriterSize(w, partBufferSize)
	writeTree(bw, doc)
	// release the tree before the final flush
	doc, root = nil, nil
	return bw.Flush()
}
