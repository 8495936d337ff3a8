package util_test

import (
	"path/filepath"
	"testing"

	"github.com/mkapulica/Time-is-Money/pkg/util"
	"github.com/stretchr/testify/assert"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{".", nil},
		{"a", []string{"a"}},
		{"shop/deals/index.html", []string{"shop", "deals", "index.html"}},
		{"shop//deals/", []string{"shop", "deals"}},
		{filepath.Join("x", "y"), []string{"x", "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, util.SplitPath(tt.in))
		})
	}
}

func TestIgnoreRules(t *testing.T) {
	root := filepath.FromSlash("/srv/pages")
	input := filepath.Join(root, "site")

	r := util.NewIgnoreRules(root)
	// from an ignore file in root
	r.Add(root, "# comment", "", "*.bak", "/site/drafts/", "assets/**/*.map")
	// from configuration, relative to the input directory
	r.Add(input, "tmp", "*.log", "!keep.log")

	assert.Equal(t, 6, r.Len())

	tests := []struct {
		name        string
		path        string
		isDir       bool
		wantIgnored bool
		wantPattern string
	}{
		{"plain page", "site/index.html", false, false, ""},
		{"backup anywhere", "site/shop/index.html.bak", false, true, "*.bak"},
		{"rooted dir", "site/drafts", true, true, "/site/drafts/"},
		{"rooted dir only matches dirs", "site/drafts", false, false, ""},
		{"double star", "site/assets/js/vendor/app.js.map", false, false, ""},
		{"double star at root", "assets/js/app.js.map", false, true, "assets/**/*.map"},
		{"config pattern", "site/tmp", true, true, "tmp"},
		{"config pattern nested", "site/a/tmp/x.html", false, true, "tmp"},
		{"config pattern outside input", "tmp", true, false, ""},
		{"negation wins when later", "site/keep.log", false, false, ""},
		{"glob", "site/debug.log", false, true, "*.log"},
		{"root itself", "", true, false, ""},
		{"outside root", "../other/x.bak", false, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ignored, pattern := r.Match(filepath.Join(root, filepath.FromSlash(tt.path)), tt.isDir)
			assert.Equal(t, tt.wantIgnored, ignored)
			assert.Equal(t, tt.wantPattern, pattern)
		})
	}
}
