package cte

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rpattn/ctedash/internal/domain"

	"golang.org/x/text/encoding/ianaindex"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// element is the minimal tree kept for lookups: name, leading text and children.
type element struct {
	space    string
	local    string
	text     strings.Builder
	children []*element
}

func (e *element) is(local string) bool {
	return e.space == Namespace && e.local == local
}

// Parse reads one CT-e document. Missing nodes are reported as nil fields; the
// call fails only when the input is not well-formed XML or its declared
// encoding cannot be decoded.
func Parse(r io.Reader) (ExtractedFields, error) {
	root, err := buildTree(r)
	if err != nil {
		return ExtractedFields{}, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}

	var fields ExtractedFields
	for _, lookup := range fieldPaths {
		*lookup.dest(&fields) = root.findText(lookup.path)
	}
	return fields, nil
}

func buildTree(r io.Reader) (*element, error) {
	reader := bufio.NewReader(r)
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	dec := xml.NewDecoder(reader)
	dec.CharsetReader = charsetReader

	var (
		root  *element
		stack []*element
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, errors.New("junk after document element")
			}
			el := &element{space: t.Name.Space, local: t.Name.Local}
			if len(stack) == 0 {
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, errors.New("text outside the document element")
				}
				continue
			}
			current := stack[len(stack)-1]
			if len(current.children) == 0 {
				current.text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("no document element")
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("element <%s> not closed", stack[len(stack)-1].local)
	}
	return root, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// findText returns the text of the first match of path, where path[0] is any
// descendant of e and every later step is a direct child.
func (e *element) findText(path []string) *string {
	if len(path) == 0 {
		return nil
	}
	var found *string
	e.walkDescendants(func(candidate *element) bool {
		if !candidate.is(path[0]) {
			return true
		}
		if leaf := candidate.child(path[1:]); leaf != nil {
			text := leaf.text.String()
			found = &text
			return false
		}
		return true
	})
	return found
}

func (e *element) child(path []string) *element {
	if len(path) == 0 {
		return e
	}
	for _, c := range e.children {
		if !c.is(path[0]) {
			continue
		}
		if leaf := c.child(path[1:]); leaf != nil {
			return leaf
		}
	}
	return nil
}

// walkDescendants visits descendants in document order until visit returns false.
func (e *element) walkDescendants(visit func(*element) bool) bool {
	for _, c := range e.children {
		if !visit(c) {
			return false
		}
		if !c.walkDescendants(visit) {
			return false
		}
	}
	return true
}
