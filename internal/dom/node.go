package dom

import (
	"sort"
	"strings"
)

// Node is an overlay element created by mediatrack.
// Nodes are plain data; a Document renders them. After changing a
// mounted node, call Document.Refresh on its root.
type Node struct {
	ID       string            `json:"id"`
	Tag      string            `json:"tag"`
	Class    string            `json:"class,omitempty"`
	Title    string            `json:"title,omitempty"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Style    map[string]string `json:"style,omitempty"`
	Children []*Node           `json:"children,omitempty"`

	// OnClick is invoked by the session when the node is clicked.
	OnClick func() `json:"-"`
}

// NewNode creates a node with the given tag and id.
func NewNode(tag, id string) *Node {
	return &Node{
		ID:    id,
		Tag:   tag,
		Attrs: make(map[string]string),
		Style: make(map[string]string),
	}
}

// SetStyle sets one style property and returns n for chaining.
func (n *Node) SetStyle(property, value string) *Node {
	if n.Style == nil {
		n.Style = make(map[string]string)
	}
	n.Style[property] = value
	return n
}

// StyleValue returns a style property, or "" when unset.
func (n *Node) StyleValue(property string) string {
	return n.Style[property]
}

// SetAttr sets one attribute and returns n for chaining.
func (n *Node) SetAttr(name, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
	return n
}

// Append adds children in order and returns n.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the node with the given id in n's tree, or nil.
func (n *Node) Find(id string) *Node {
	var found *Node
	n.Walk(func(c *Node) {
		if found == nil && c.ID == id {
			found = c
		}
	})
	return found
}

// Clickable reports whether the node has a click handler.
func (n *Node) Clickable() bool {
	return n.OnClick != nil
}

// CSSText renders the style map as a CSS declaration list with
// properties in sorted order.
func (n *Node) CSSText() string {
	keys := make([]string, 0, len(n.Style))
	for k := range n.Style {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(n.Style[k])
		b.WriteString(";")
	}
	return b.String()
}
