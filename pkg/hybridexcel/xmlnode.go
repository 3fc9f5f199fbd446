package hybridexcel

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

type nodeKind int

const (
	documentNode nodeKind = iota
	elementNode
	textNode
	procInstNode
	commentNode
	directiveNode
)

type xmlAttr struct {
	Name  string
	Value string
}

// Node is a minimal XML tree node. Names keep their source prefix so a
// round trip does not rewrite namespace declarations.
type Node struct {
	Kind     nodeKind
	Name     string // element name or processing instruction target
	Attrs    []xmlAttr
	Children []*Node
	Data     string // text, comment, directive or instruction content
}

// elem builds an element node from name and alternating attribute
// name/value pairs.
func elem(name string, attrs ...string) *Node {
	n := &Node{Kind: elementNode, Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attrs = append(n.Attrs, xmlAttr{Name: attrs[i], Value: attrs[i+1]})
	}
	return n
}

func (n *Node) add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

func textOf(s string) *Node {
	return &Node{Kind: textNode, Data: s}
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// root returns the document element.
func (n *Node) root() *Node {
	for _, c := range n.Children {
		if c.Kind == elementNode {
			return c
		}
	}
	return nil
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func convertAttrs(attrs []xml.Attr) []xmlAttr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]xmlAttr, len(attrs))
	for i, a := range attrs {
		out[i] = xmlAttr{Name: qualifiedName(a.Name), Value: a.Value}
	}
	return out
}

// parseTree reads a whole XML document into memory.
func parseTree(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	doc := &Node{Kind: documentNode}
	stack := []*Node{doc}

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPart, err)
		}
		parent := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Kind: elementNode, Name: qualifiedName(t.Name), Attrs: convertAttrs(t.Attr)}
			parent.Children = append(parent.Children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 1 || parent.Name != qualifiedName(t.Name) {
				return nil, fmt.Errorf("%w: unexpected </%s>", ErrMalformedPart, qualifiedName(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			parent.Children = append(parent.Children, &Node{Kind: textNode, Data: string(t)})
		case xml.Comment:
			parent.Children = append(parent.Children, &Node{Kind: commentNode, Data: string(t)})
		case xml.ProcInst:
			parent.Children = append(parent.Children, &Node{Kind: procInstNode, Name: t.Target, Data: string(t.Inst)})
		case xml.Directive:
			parent.Children = append(parent.Children, &Node{Kind: directiveNode, Data: string(t)})
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("%w: unclosed <%s>", ErrMalformedPart, stack[len(stack)-1].Name)
	}
	if doc.root() == nil {
		return nil, fmt.Errorf("%w: no document element", ErrMalformedPart)
	}
	return doc, nil
}

// writeTree serializes n and its descendants. Elements without children
// are written in their self-closing form.
func writeTree(w *bufio.Writer, n *Node) {
	switch n.Kind {
	case documentNode:
		for _, c := range n.Children {
			writeTree(w, c)
		}
	case elementNode:
		writeStartTag(w, n.Name, n.Attrs)
		if len(n.Children) == 0 {
			w.WriteString("/>")
			return
		}
		w.WriteByte('>')
		for _, c := range n.Children {
			writeTree(w, c)
		}
		writeEndTag(w, n.Name)
	case textNode:
		writeText(w, n.Data)
	case commentNode:
		writeComment(w, n.Data)
	case procInstNode:
		writeProcInst(w, n.Name, n.Data)
	case directiveNode:
		writeDirective(w, n.Data)
	}
}

// writeStartTag writes "<name attrs" without closing the tag.
func writeStartTag(w *bufio.Writer, name string, attrs []xmlAttr) {
	w.WriteByte('<')
	w.WriteString(name)
	for _, a := range attrs {
		w.WriteByte(' ')
		w.WriteString(a.Name)
		w.WriteString(`="`)
		w.WriteString(escapeAttr(a.Value))
		w.WriteByte('"')
	}
}

func writeEndTag(w *bufio.Writer, name string) {
	w.WriteString("</")
	w.WriteString(name)
	w.WriteByte('>')
}

func writeText(w *bufio.Writer, s string) {
	w.WriteString(escapeText(s))
}

func writeComment(w *bufio.Writer, s string) {
	w.WriteString("<!--")
	w.WriteString(s)
	w.WriteString("-->")
}

func writeProcInst(w *bufio.Writer, target, inst string) {
	w.WriteString("<?")
	w.WriteString(target)
	if inst != "" {
		w.WriteByte(' ')
		w.WriteString(inst)
	}
	w.WriteString("?>")
}

func writeDirective(w *bufio.Writer, s string) {
	w.WriteString("<!")
	w.WriteString(s)
	w.WriteByte('>')
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#13;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;", "\t", "&#9;", "\n", "&#10;", "\r", "&#13;")
)

func escapeText(s string) string {
	if !strings.ContainsAny(s, "&<>\r") {
		return s
	}
	return textEscaper.Replace(s)
}

func escapeAttr(s string) string {
	if !strings.ContainsAny(s, "&<\"\t\n\r") {
		return s
	}
	return attrEscaper.Replace(s)
}
