package protocol

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is one element of an embedded document such as the <USER> or <VM> blob
// returned by info calls. Text is the trimmed character data of the element.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// ParseDocument parses a single-rooted XML document into a Node tree. A fresh
// decoder is used on every call.
func ParseDocument(data []byte) (*Node, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	var (
		root  *Node
		stack []*Node
		text  []*strings.Builder
	)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("unexpected second root element <%s>", t.Name.Local)
			}
			n := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		}
	}

	if root == nil {
		return nil, errors.New("empty document")
	}
	return root, nil
}

// Get returns the descendants reached by following path from n, one child
// name per step. Every match at each step is expanded.
func (n *Node) Get(path ...string) []*Node {
	if n == nil {
		return nil
	}
	current := []*Node{n}
	for _, name := range path {
		var next []*Node
		for _, c := range current {
			for _, child := range c.Children {
				if child.Name == name {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// First returns the first node reached by path, or nil.
func (n *Node) First(path ...string) *Node {
	if nodes := n.Get(path...); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// Value returns the text of the first node reached by path, or "".
func (n *Node) Value(path ...string) string {
	if f := n.First(path...); f != nil {
		return f.Text
	}
	return ""
}

// Has reports whether path leads anywhere.
func (n *Node) Has(path ...string) bool {
	return n.First(path...) != nil
}
