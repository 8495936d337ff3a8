package worktime_test

import (
	"testing"

	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var strategies = []worktime.Strategy{worktime.StrategyRecursive, worktime.StrategyIterative}

// sampleTree mirrors a small page: a body with nested paragraphs, a form
// field, a script and a style block.
func sampleTree() *worktime.Node {
	return worktime.NewContainer("body",
		worktime.NewContainer("h1", worktime.NewText("Deals")),
		worktime.NewContainer("p",
			worktime.NewText("Now only $30 "),
			worktime.NewContainer("b", worktime.NewText("was 45,00 €")),
			worktime.NewText(" hurry"),
		),
		worktime.NewContainer("TEXTAREA", worktime.NewText("$99 typed by user")),
		worktime.NewContainer("script", worktime.NewText("var p = '$5';")),
		worktime.NewContainer("style",
			worktime.NewContainer("span", worktime.NewText("$1 hidden")),
		),
		worktime.NewText("£12 footer"),
	)
}

func visitedContents(root *worktime.Node, s worktime.Strategy) []string {
	var out []string
	worktime.Walk(root, s, func(n *worktime.Node) {
		out = append(out, n.Content)
	})
	return out
}

func TestWalk_DocumentOrderAndIgnoredTags(t *testing.T) {
	expected := []string{"Deals", "Now only $30 ", "was 45,00 €", " hurry", "£12 footer"}
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			assert.Equal(t, expected, visitedContents(sampleTree(), s))
		})
	}
}

func TestWalk_IgnoredRoot(t *testing.T) {
	root := worktime.NewContainer("NoScript", worktime.NewContainer("p", worktime.NewText("$3")))
	for _, s := range strategies {
		assert.Empty(t, visitedContents(root, s), string(s))
	}
}

func TestWalk_TextRoot(t *testing.T) {
	root := worktime.NewText("$3")
	for _, s := range strategies {
		assert.Equal(t, []string{"$3"}, visitedContents(root, s), string(s))
	}

	// A detached text node still honours its parent's tag.
	input := worktime.NewContainer("input")
	child := input.AppendChild(worktime.NewText("$4"))
	for _, s := range strategies {
		assert.Empty(t, visitedContents(child, s), string(s))
	}
}

func TestWalk_NilRoot(t *testing.T) {
	for _, s := range strategies {
		assert.NotPanics(t, func() { worktime.Walk(nil, s, func(*worktime.Node) {}) })
	}
}

func TestWalk_Restartable(t *testing.T) {
	root := sampleTree()
	for _, s := range strategies {
		assert.Equal(t, visitedContents(root, s), visitedContents(root, s))
	}
}

func TestIsIgnoredTag(t *testing.T) {
	for _, tag := range []string{"textarea", "input", "script", "style", "noscript", "SCRIPT", "Style"} {
		assert.True(t, worktime.IsIgnoredTag(tag), tag)
	}
	for _, tag := range []string{"", "div", "p", "template", "select"} {
		assert.False(t, worktime.IsIgnoredTag(tag), tag)
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := worktime.ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, worktime.StrategyIterative, s)

	s, err = worktime.ParseStrategy(" Recursive ")
	require.NoError(t, err)
	assert.Equal(t, worktime.StrategyRecursive, s)

	_, err = worktime.ParseStrategy("breadth-first")
	assert.Error(t, err)
}
