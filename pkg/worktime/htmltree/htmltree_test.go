package htmltree_test

import (
	"testing"

	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"github.com/mkapulica/Time-is-Money/pkg/worktime/htmltree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const page = `<!DOCTYPE html><html><head><title>$5 deal</title></head>` +
	`<body><!-- promo --><p>Now $30 <b>was 45,00 €</b></p>` +
	`<p>Fish &amp; chips £20</p>` +
	`<textarea>$99</textarea><script>var x = '$5';</script></body></html>`

func TestParse_MirrorsElementsAndText(t *testing.T) {
	doc, err := htmltree.ParseString(page)
	require.NoError(t, err)

	require.NotNil(t, doc.Root)
	assert.Equal(t, htmltree.DocumentTag, doc.Root.Tag)

	body := doc.Body()
	require.NotNil(t, body)
	assert.Equal(t, "body", body.Tag)
	// the comment is not mirrored
	require.Len(t, body.Children, 4)
	assert.Equal(t, "p", body.Children[0].Tag)
	assert.Equal(t, "Now $30 ", body.Children[0].Children[0].Content)
	assert.Equal(t, "Fish & chips £20", body.Children[1].Children[0].Content)

	hn := doc.HTMLOf(body)
	require.NotNil(t, hn)
	assert.Equal(t, atom.Body, hn.DataAtom)
	assert.Same(t, body, doc.MirrorOf(hn))
}

func TestRender_AfterApply(t *testing.T) {
	doc, err := htmltree.ParseString(page)
	require.NoError(t, err)

	e := worktime.New(worktime.DefaultConfig())
	st, err := e.Apply(doc.Body(), 15)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Matches)

	out, err := doc.RenderString()
	require.NoError(t, err)
	assert.Contains(t, out, "<title>$5 deal</title>")
	assert.Contains(t, out, "<!-- promo -->")
	assert.Contains(t, out, "<p>Now 1.80 h <b>was 3.00 h</b></p>")
	assert.Contains(t, out, "<p>Fish &amp; chips 1.13 h</p>")
	assert.Contains(t, out, "<textarea>$99</textarea>")
	assert.Contains(t, out, "<script>var x = '$5';</script>")
}

func TestRender_AfterRevert(t *testing.T) {
	doc, err := htmltree.ParseString(page)
	require.NoError(t, err)
	before, err := doc.RenderString()
	require.NoError(t, err)

	e := worktime.New(worktime.DefaultConfig())
	_, err = e.Apply(doc.Root, 15)
	require.NoError(t, err)
	e.Revert(doc.Root)

	after, err := doc.RenderString()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAppendHTML(t *testing.T) {
	doc, err := htmltree.ParseString(page)
	require.NoError(t, err)
	body := doc.Body()

	inserted, err := doc.AppendHTML(body, `<div>Only €15</div><!-- x -->tail $3`)
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.Equal(t, "div", inserted[0].Tag)
	assert.True(t, inserted[1].IsText())
	assert.Same(t, body, inserted[0].Parent)

	e := worktime.New(worktime.DefaultConfig())
	for _, n := range inserted {
		_, err := e.Apply(n, 15)
		require.NoError(t, err)
	}

	out, err := doc.RenderString()
	require.NoError(t, err)
	assert.Contains(t, out, "<div>Only 1.00 h</div><!-- x -->tail 0.18 h</body>")
	// content that was not inserted is untouched
	assert.Contains(t, out, "<p>Now $30 ")
}

func TestAppendHTML_DocumentParent(t *testing.T) {
	doc := htmltree.FromNode(&html.Node{Type: html.DocumentNode})
	inserted, err := doc.AppendHTML(doc.Root, `<span>£1</span>`)
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, "span", inserted[0].Tag)
}

func TestAppendHTML_UnknownParent(t *testing.T) {
	doc, err := htmltree.ParseString(page)
	require.NoError(t, err)

	_, err = doc.AppendHTML(worktime.NewContainer("div"), "<p>x</p>")
	assert.ErrorIs(t, err, htmltree.ErrUnknownNode)

	text := doc.Body().Children[0].Children[0]
	_, err = doc.AppendHTML(text, "<p>x</p>")
	assert.ErrorIs(t, err, htmltree.ErrUnknownNode)
}

func TestBody_FallsBackToRoot(t *testing.T) {
	div := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	div.AppendChild(&html.Node{Type: html.TextNode, Data: "$1"})
	doc := htmltree.FromNode(div)
	assert.Same(t, doc.Root, doc.Body())
	assert.Equal(t, "$1", doc.Root.Children[0].Content)
}
