package worktime

import (
	"fmt"
	"strings"
)

// Strategy selects how Walk visits a tree.
type Strategy string

const (
	StrategyRecursive Strategy = "recursive"
	StrategyIterative Strategy = "iterative"
)

// ParseStrategy maps a configuration value onto a Strategy. The empty string
// selects StrategyIterative.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyIterative:
		return StrategyIterative, nil
	case StrategyRecursive:
		return StrategyRecursive, nil
	default:
		return "", fmt.Errorf("unknown traversal strategy %q (want %q or %q)", s, StrategyRecursive, StrategyIterative)
	}
}

// ignoredTags lists containers whose contents are never rewritten: form
// fields, scripts, styles and fallback content.
var ignoredTags = map[string]struct{}{
	"textarea": {},
	"input":    {},
	"script":   {},
	"style":    {},
	"noscript": {},
}

// IsIgnoredTag reports whether containers with this tag are opaque to Walk.
// The comparison is case-insensitive.
func IsIgnoredTag(tag string) bool {
	_, ok := ignoredTags[strings.ToLower(tag)]
	return ok
}

func isIgnoredContainer(n *Node) bool {
	return n.Kind == KindContainer && IsIgnoredTag(n.Tag)
}

func hasIgnoredParent(n *Node) bool {
	return n.Parent != nil && IsIgnoredTag(n.Parent.Tag)
}

// Walk calls fn for every text node reachable from root in document order. It
// never descends into an ignored container, root included, and skips a text
// node whose parent is ignored.
func Walk(root *Node, strategy Strategy, fn func(*Node)) {
	if root == nil {
		return
	}
	if strategy == StrategyRecursive {
		walkRecursive(root, fn)
		return
	}
	walkIterative(root, fn)
}

func walkRecursive(n *Node, fn func(*Node)) {
	switch n.Kind {
	case KindText:
		if !hasIgnoredParent(n) {
			fn(n)
		}
	case KindContainer:
		if isIgnoredContainer(n) {
			return
		}
		for _, c := range n.Children {
			walkRecursive(c, fn)
		}
	}
}

func walkIterative(root *Node, fn func(*Node)) {
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Kind {
		case KindText:
			if !hasIgnoredParent(n) {
				fn(n)
			}
		case KindContainer:
			if isIgnoredContainer(n) {
				continue
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		}
	}
}
