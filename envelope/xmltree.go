package envelope

import "encoding/xml"

// node is a generic XML element: just enough structure to replicate
// the handful of ElementTree traversal patterns loader.py relies on
// (find-by-tag-name anywhere in the subtree, find-by-attribute),
// without pulling in an XPath engine the corpus never uses.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []node     `xml:",any"`
}

// attr returns the named attribute's value, local-name matched (the
// HPS envelope carries no namespaces).
func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}

	return "", false
}

// findFirst returns the first descendant (depth-first, self excluded
// unless includeSelf) whose local tag name matches, or nil.
func (n *node) findFirst(tag string) *node {
	return n.findFirstWithSelf(tag, false)
}

func (n *node) findFirstWithSelf(tag string, includeSelf bool) *node {
	if includeSelf && n.XMLName.Local == tag {
		return n
	}

	for i := range n.Children {
		child := &n.Children[i]
		if child.XMLName.Local == tag {
			return child
		}

		if found := child.findFirst(tag); found != nil {
			return found
		}
	}

	return nil
}

// findAll returns every descendant matching tag, depth-first, self excluded.
func (n *node) findAll(tag string) []*node {
	var out []*node

	for i := range n.Children {
		child := &n.Children[i]
		if child.XMLName.Local == tag {
			out = append(out, child)
		}

		out = append(out, child.findAll(tag)...)
	}

	return out
}

// directChildren returns immediate children matching tag.
func (n *node) directChildren(tag string) []*node {
	var out []*node

	for i := range n.Children {
		if n.Children[i].XMLName.Local == tag {
			out = append(out, &n.Children[i])
		}
	}

	return out
}

// findByAttr returns every descendant matching tag whose named
// attribute equals value (used for Property[@name=...] and
// Object[@name='Spline']).
func (n *node) findByAttr(tag, attrName, value string) []*node {
	var out []*node

	for _, candidate := range n.findAll(tag) {
		if v, ok := candidate.attr(attrName); ok && v == value {
			out = append(out, candidate)
		}
	}

	return out
}
