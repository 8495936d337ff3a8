package worktime

// Kind distinguishes text-bearing leaves from containers.
type Kind int

const (
	KindText Kind = iota
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindContainer:
		return "container"
	default:
		return "unknown"
	}
}

// Node is one unit of a content tree. Containers carry a Tag and own their
// Children; text nodes carry Content. Parent is a back reference used only to
// look up the enclosing tag.
//
// Original holds the text a node had before its first substitution and is nil
// whenever Content is the authored text. Only Engine.Apply and Engine.Revert
// change it.
type Node struct {
	Kind     Kind
	Tag      string
	Content  string
	Original *string
	Children []*Node
	Parent   *Node
}

// NewText returns a text node holding content.
func NewText(content string) *Node {
	return &Node{Kind: KindText, Content: content}
}

// NewContainer returns a container node with the given tag and children. The
// children are re-parented to the new node.
func NewContainer(tag string, children ...*Node) *Node {
	n := &Node{Kind: KindContainer, Tag: tag}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

// AppendChild adds c as the last child of n and returns c.
func (n *Node) AppendChild(c *Node) *Node {
	c.Parent = n
	n.Children = append(n.Children, c)
	return c
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n != nil && n.Kind == KindText }

// Substituted reports whether n currently shows rewritten text.
func (n *Node) Substituted() bool { return n.Original != nil }

// Text returns the authored text of n: the remembered original when a
// substitution is in effect, otherwise Content.
func (n *Node) Text() string {
	if n.Original != nil {
		return *n.Original
	}
	return n.Content
}

// Clone returns a deep copy of the subtree rooted at n. The copy's root has no
// parent.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Tag: n.Tag, Content: n.Content}
	if n.Original != nil {
		orig := *n.Original
		c.Original = &orig
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, 0, len(n.Children))
		for _, child := range n.Children {
			c.AppendChild(child.Clone())
		}
	}
	return c
}
