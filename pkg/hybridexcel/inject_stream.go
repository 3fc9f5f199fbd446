package hybridexcel

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
)

type rewriteState int

const (
	// stateCopying passes tokens through outside the worksheet's direct children.
	stateCopying rewriteState = iota
	// stateAwaitingAnchor watches direct children for the next splice point.
	stateAwaitingAnchor
	// stateEliding drops a pre-existing block being replaced.
	stateEliding
	// stateSplicing writes queued fragments ahead of an anchor.
	stateSplicing
)

// streamRewriter edits the worksheet part in one forward pass. Memory is
// bounded by the largest token and the queued fragments.
type streamRewriter struct {
	dec   *xml.Decoder
	w     *bufio.Writer
	queue []fragment
	kinds map[string]bool

	state    rewriteState
	prefix   string
	names    []string // open element names
	elide    int      // nesting depth inside an elided block
	pending  bool     // a start tag is written without its closing '>'
	seenRoot bool
}

func injectStream(r io.Reader, w io.Writer, frags []fragment) error {
	rw := &streamRewriter{
		dec:   xml.NewDecoder(r),
		w:     bufio.NewWriterSize(w, partBufferSize),
		queue: frags,
		kinds: injectedKinds(frags),
	}
	if err := rw.run(); err != nil {
		return err
	}
	return rw.w.Flush()
}

func (rw *streamRewriter) run() error {
	for {
		tok, err := rw.dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPart, err)
		}
		if rw.state == stateEliding {
			rw.skip(tok)
			continue
		}
		switch t := tok.(type) {
		case xml.StartElement:
			rw.start(t)
		case xml.EndElement:
			if err := rw.end(t); err != nil {
				return err
			}
		case xml.CharData:
			rw.closePending()
			writeText(rw.w, string(t))
		case xml.Comment:
			rw.closePending()
			writeComment(rw.w, string(t))
		case xml.ProcInst:
			rw.closePending()
			writeProcInst(rw.w, t.Target, string(t.Inst))
		case xml.Directive:
			rw.closePending()
			writeDirective(rw.w, string(t))
		}
	}
	if len(rw.names) > 0 {
		return fmt.Errorf("%w: unclosed <%s>", ErrMalformedPart, rw.names[len(rw.names)-1])
	}
	if !rw.seenRoot {
		return fmt.Errorf("%w: no document element", ErrMalformedPart)
	}
	return nil
}

func (rw *streamRewriter) start(t xml.StartElement) {
	name := qualifiedName(t.Name)
	switch len(rw.names) {
	case 0:
		rw.seenRoot = true
		rw.prefix = t.Name.Space
		rw.state = stateAwaitingAnchor
	case 1:
		if local, ok := localName(name, rw.prefix); ok && rw.kinds[local] {
			rw.state = stateEliding
			rw.elide = 1
			return
		}
		if rank := childRank(name, rw.prefix); rank >= 0 {
			rw.splice(rank)
		}
	}
	rw.closePending()
	writeStartTag(rw.w, name, convertAttrs(t.Attr))
	rw.pending = true
	rw.names = append(rw.names, name)
	if len(rw.names) > 1 {
		rw.state = stateCopying
	}
}

func (rw *streamRewriter) end(t xml.EndElement) error {
	name := qualifiedName(t.Name)
	if len(rw.names) == 0 || rw.names[len(rw.names)-1] != name {
		return fmt.Errorf("%w: unexpected </%s>", ErrMalformedPart, name)
	}
	if len(rw.names) == 1 {
		rw.splice(math.MaxInt)
	}
	if rw.pending {
		rw.w.WriteString("/>")
		rw.pending = false
	} else {
		writeEndTag(rw.w, name)
	}
	rw.names = rw.names[:len(rw.names)-1]
	switch len(rw.names) {
	case 1:
		rw.state = stateAwaitingAnchor
	case 0:
		rw.state = stateCopying
	}
	return nil
}

// skip consumes tokens of an elided block.
func (rw *streamRewriter) skip(tok xml.Token) {
	switch tok.(type) {
	case xml.StartElement:
		rw.elide++
	case xml.EndElement:
		rw.elide--
		if rw.elide == 0 {
			rw.state = stateAwaitingAnchor
		}
	}
}

// splice writes every queued fragment ranked before rank.
func (rw *streamRewriter) splice(rank int) {
	if len(rw.queue) == 0 || rw.queue[0].rank >= rank {
		return
	}
	prev := rw.state
	rw.state = stateSplicing
	rw.closePending()
	for len(rw.queue) > 0 && rw.queue[0].rank < rank {
		writeTree(rw.w, withPrefix(rw.queue[0].node, rw.prefix))
		rw.queue[0] = fragment{}
		rw.queue = rw.queue[1:]
	}
	rw.state = prev
}

func (rw *streamRewriter) closePending() {
	if rw.pending {
		rw.w.WriteByte('>')
		rw.pending = false
	}
}
