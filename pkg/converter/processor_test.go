package converter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mkapulica/Time-is-Money/pkg/converter/cache"
	"github.com/mkapulica/Time-is-Money/pkg/converter/encoding"
	"github.com/mkapulica/Time-is-Money/pkg/converter/language"
	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// cacheMock is a minimal testify mock of CacheManager; the shared mocks live
// in internal/testutil, which imports this package.
type cacheMock struct{ mock.Mock }

func (m *cacheMock) Load(p string) error { return m.Called(p).Error(0) }

func (m *cacheMock) Check(filePath string, modTime time.Time, contentHash, configHash string) (cache.Entry, bool) {
	args := m.Called(filePath, modTime, contentHash, configHash)
	entry, _ := args.Get(0).(cache.Entry)
	return entry, args.Bool(1)
}

func (m *cacheMock) Update(filePath string, entry cache.Entry) error {
	return m.Called(filePath, entry).Error(0)
}

func (m *cacheMock) Persist(p string) error { return m.Called(p).Error(0) }

type processorFixture struct {
	opts   *Options
	input  string
	output string
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	return &processorFixture{
		input:  t.TempDir(),
		output: t.TempDir(),
		opts: &Options{
			Enabled:       true,
			StripSpaces:   true,
			OnErrorMode:   OnErrorContinue,
			BinaryMode:    BinaryCopy,
			LargeFileMode: LargeFileSkip,
			OutputMode:    OutputModeHTML,
			Selector:      DefaultSelector,
		},
	}
}

func (f *processorFixture) processor(cacheMgr CacheManager) *FileProcessor {
	f.opts.InputPath = f.input
	f.opts.OutputPath = f.output
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})
	rewriter := worktime.New(worktime.Config{StripSpaces: true, Rates: f.opts.conversionTable()})
	return NewFileProcessor(f.opts, h, cacheMgr,
		language.NewGoEnryDetector(defaultLanguageOverrides),
		encoding.NewGoCharsetEncodingHandler(""),
		rewriter, 15)
}

func (f *processorFixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(f.input, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func (f *processorFixture) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.output, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

const shopPage = `<!DOCTYPE html><html><head><title> Shop </title></head><body>` +
	`<main><p>Only $30 today</p></main><aside>Was €45</aside>` +
	`<script>var p = "$30";</script><textarea>$30</textarea></body></html>`

func TestProcessFile_HTML(t *testing.T) {
	f := newProcessorFixture(t)
	abs := f.write(t, "shop/index.html", shopPage)

	result, status, err := f.processor(nil).ProcessFile(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)

	info, ok := result.(FileInfo)
	require.True(t, ok)
	assert.Equal(t, "shop/index.html", info.Path)
	assert.Equal(t, "shop/index.html", info.OutputPath)
	assert.Equal(t, FormatHTML, info.Format)
	assert.Equal(t, language.HTML, info.Language)
	assert.Equal(t, "Shop", info.Title)
	assert.Equal(t, 1, info.Regions)
	assert.Equal(t, 2, info.Prices.Matches)
	assert.Equal(t, CacheStatusDisabled, info.CacheStatus)

	out := f.read(t, "shop/index.html")
	assert.Contains(t, out, "Only 1.80 h today")
	assert.Contains(t, out, "Was 3.00 h")
	assert.Contains(t, out, `var p = "$30";`)
	assert.Contains(t, out, "<textarea>$30</textarea>")
}

func TestProcessFile_Selector(t *testing.T) {
	tests := []struct {
		name        string
		selector    string
		wantRegions int
		wantMatches int
		contains    []string
	}{
		{"main only", "main", 1, 1, []string{"Only 1.80 h today", "Was €45"}},
		{"two regions", "main, aside", 2, 2, []string{"Only 1.80 h today", "Was 3.00 h"}},
		{"nested matches collapse", "body, main", 1, 2, []string{"Only 1.80 h today", "Was 3.00 h"}},
		{"no match leaves page", "article", 0, 0, []string{"Only $30 today", "Was €45"}},
		{"empty selector is body", "", 1, 2, []string{"Only 1.80 h today"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessorFixture(t)
			f.opts.Selector = tt.selector
			abs := f.write(t, "index.html", shopPage)

			result, _, err := f.processor(nil).ProcessFile(context.Background(), abs)
			require.NoError(t, err)
			info := result.(FileInfo)
			assert.Equal(t, tt.wantRegions, info.Regions)
			assert.Equal(t, tt.wantMatches, info.Prices.Matches)
			out := f.read(t, "index.html")
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestProcessFile_MarkdownOutput(t *testing.T) {
	f := newProcessorFixture(t)
	f.opts.OutputMode = OutputModeMarkdown
	abs := f.write(t, "deals.html", shopPage)

	result, status, err := f.processor(nil).ProcessFile(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, "deals.md", result.(FileInfo).OutputPath)

	out := f.read(t, "deals.md")
	assert.Contains(t, out, "Only 1.80 h today")
	assert.NotContains(t, out, "<p>")
}

func TestProcessFile_LegacyCharset(t *testing.T) {
	f := newProcessorFixture(t)
	abs := f.write(t, "old.html", "<html><head><meta charset=\"iso-8859-1\"></head><body><p>Price: \xa325</p></body></html>")

	result, _, err := f.processor(nil).ProcessFile(context.Background(), abs)
	require.NoError(t, err)
	info := result.(FileInfo)
	assert.Equal(t, "windows-1252", info.Encoding)

	out := f.read(t, "old.html")
	assert.Contains(t, out, "Price: 1.42 h")
	assert.Contains(t, out, `charset="utf-8"`)
}

func TestProcessFile_ASCIIPageDeclaringLegacyCharset(t *testing.T) {
	f := newProcessorFixture(t)
	abs := f.write(t, "cafe.html", `<html><head><meta charset="windows-1252"></head><body><p>Caf&eacute; $30</p></body></html>`)

	result, _, err := f.processor(nil).ProcessFile(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", result.(FileInfo).Encoding)

	out := f.read(t, "cafe.html")
	assert.Contains(t, out, "Café 1.80 h")
	assert.Contains(t, out, `charset="utf-8"`)
	assert.NotContains(t, out, "windows-1252")
}

func TestProcessFile_UTF8PageKeepsUTF8Declaration(t *testing.T) {
	f := newProcessorFixture(t)
	abs := f.write(t, "menu.html", `<html><head><meta http-equiv="Content-Type" content="text/html; charset=UTF-8"></head><body><p>Tea €3</p></body></html>`)

	result, _, err := f.processor(nil).ProcessFile(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, "utf-8", result.(FileInfo).Encoding)
	assert.Contains(t, f.read(t, "menu.html"), `content="text/html; charset=utf-8"`)
}

func TestProcessFile_TextAndMarkdown(t *testing.T) {
	tests := []struct {
		rel    string
		in     string
		want   string
		format DocumentFormat
	}{
		{"notes.txt", "Coffee $3 and cake £ 1 000", "Coffee 0.18 h and cake 56.67 h", FormatText},
		{"README.md", "# Deals\n\n* Lamp: $45\n", "# Deals\n\n* Lamp: 2.70 h\n", FormatMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			f := newProcessorFixture(t)
			abs := f.write(t, tt.rel, tt.in)

			result, status, err := f.processor(nil).ProcessFile(context.Background(), abs)
			require.NoError(t, err)
			assert.Equal(t, StatusSuccess, status)
			assert.Equal(t, tt.format, result.(FileInfo).Format)
			assert.Equal(t, tt.want, f.read(t, tt.rel))
		})
	}
}

func TestProcessFile_CodeIsCopied(t *testing.T) {
	f := newProcessorFixture(t)
	src := "function price() {\n  return \"$30\";\n}\n"
	abs := f.write(t, "js/app.js", src)

	result, status, err := f.processor(nil).ProcessFile(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, FormatOther, result.(FileInfo).Format)
	assert.Equal(t, src, f.read(t, "js/app.js"))
}

func TestProcessFile_Disabled(t *testing.T) {
	f := newProcessorFixture(t)
	f.opts.Enabled = false
	f.opts.OutputMode = OutputModeMarkdown
	abs := f.write(t, "index.html", shopPage)

	result, _, err := f.processor(nil).ProcessFile(context.Background(), abs)
	require.NoError(t, err)
	info := result.(FileInfo)
	assert.Equal(t, "index.html", info.OutputPath)
	assert.Zero(t, info.Prices.Matches)
	assert.Equal(t, shopPage, f.read(t, "index.html"))
}

func TestProcessFile_Binary(t *testing.T) {
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	tests := []struct {
		mode       BinaryMode
		wantStatus Status
		wantErr    error
		wantCopy   bool
	}{
		{BinaryCopy, StatusSuccess, nil, true},
		{BinarySkip, StatusSkipped, nil, false},
		{BinaryError, StatusFailed, ErrBinaryFile, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			f := newProcessorFixture(t)
			f.opts.BinaryMode = tt.mode
			abs := f.write(t, "img/logo.png", png)

			result, status, err := f.processor(nil).ProcessFile(context.Background(), abs)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.IsType(t, ErrorInfo{}, result)
			} else {
				require.NoError(t, err)
			}
			if tt.mode == BinarySkip {
				assert.Equal(t, SkipReasonBinary, result.(SkippedInfo).Reason)
			}
			_, statErr := os.Stat(filepath.Join(f.output, "img", "logo.png"))
			assert.Equal(t, tt.wantCopy, statErr == nil)
			if tt.wantCopy {
				assert.Equal(t, png, f.read(t, "img/logo.png"))
			}
		})
	}
}

func TestProcessFile_LargeFile(t *testing.T) {
	page := "<p>" + strings.Repeat("$1 ", 20) + "</p>"
	tests := []struct {
		mode       LargeFileMode
		wantStatus Status
		wantErr    error
	}{
		{LargeFileSkip, StatusSkipped, nil},
		{LargeFileCopy, StatusSuccess, nil},
		{LargeFileError, StatusFailed, ErrLargeFile},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			f := newProcessorFixture(t)
			f.opts.LargeFileMode = tt.mode
			f.opts.LargeFileThreshold = 10
			abs := f.write(t, "big.html", page)

			result, status, err := f.processor(nil).ProcessFile(context.Background(), abs)
			assert.Equal(t, tt.wantStatus, status)
			switch tt.mode {
			case LargeFileSkip:
				require.NoError(t, err)
				assert.Equal(t, SkipReasonLarge, result.(SkippedInfo).Reason)
			case LargeFileCopy:
				require.NoError(t, err)
				assert.Equal(t, page, f.read(t, "big.html"))
			case LargeFileError:
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestProcessFile_ErrorIsFatalUnderStop(t *testing.T) {
	f := newProcessorFixture(t)
	f.opts.OnErrorMode = OnErrorStop
	result, status, err := f.processor(nil).ProcessFile(context.Background(), filepath.Join(f.input, "missing.html"))
	assert.ErrorIs(t, err, ErrStatFailed)
	assert.Equal(t, StatusFailed, status)
	info := result.(ErrorInfo)
	assert.True(t, info.IsFatal)
	assert.Equal(t, "missing.html", info.Path)
}

func TestProcessFile_Cancelled(t *testing.T) {
	f := newProcessorFixture(t)
	abs := f.write(t, "index.html", shopPage)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, status, err := f.processor(nil).ProcessFile(ctx, abs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, status)
}

func TestProcessFile_CacheHit(t *testing.T) {
	f := newProcessorFixture(t)
	f.opts.CacheEnabled = true
	abs := f.write(t, "index.html", shopPage)
	require.NoError(t, os.WriteFile(filepath.Join(f.output, "index.html"), []byte("previous"), 0o644))

	cm := &cacheMock{}
	cm.On("Check", "index.html", mock.Anything, hashBytes([]byte(shopPage)), mock.Anything).
		Return(cache.Entry{OutputPath: "index.html", Format: "html", Matches: 2, Changed: 2}, true)

	result, status, err := f.processor(cm).ProcessFile(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, StatusCached, status)
	info := result.(FileInfo)
	assert.Equal(t, CacheStatusHit, info.CacheStatus)
	assert.Equal(t, 2, info.Prices.Matches)
	assert.Equal(t, "previous", f.read(t, "index.html"), "output is not rewritten on a hit")
	cm.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestProcessFile_CacheHitWithoutOutput(t *testing.T) {
	f := newProcessorFixture(t)
	f.opts.CacheEnabled = true
	abs := f.write(t, "index.html", shopPage)

	cm := &cacheMock{}
	cm.On("Check", "index.html", mock.Anything, mock.Anything, mock.Anything).
		Return(cache.Entry{OutputPath: "index.html", Format: "html"}, true)
	cm.On("Update", "index.html", mock.MatchedBy(func(e cache.Entry) bool {
		return e.OutputPath == "index.html" && e.Matches == 2 && e.Format == string(FormatHTML) && e.OutputHash != ""
	})).Return(nil).Once()

	result, status, err := f.processor(cm).ProcessFile(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, CacheStatusMiss, result.(FileInfo).CacheStatus)
	assert.Contains(t, f.read(t, "index.html"), "Only 1.80 h today")
	cm.AssertExpectations(t)
}

func TestProcessFile_IgnoreCacheRead(t *testing.T) {
	f := newProcessorFixture(t)
	f.opts.CacheEnabled = true
	f.opts.IgnoreCacheRead = true
	abs := f.write(t, "a.txt", "$10")

	cm := &cacheMock{}
	cm.On("Update", "a.txt", mock.Anything).Return(nil).Once()

	_, status, err := f.processor(cm).ProcessFile(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	cm.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	cm.AssertExpectations(t)
}

func TestGenerateOutputPath(t *testing.T) {
	tests := []struct {
		rel    string
		format DocumentFormat
		mode   OutputMode
		want   string
	}{
		{"index.html", FormatHTML, OutputModeHTML, "index.html"},
		{"shop/index.html", FormatHTML, OutputModeMarkdown, "shop/index.md"},
		{"page", FormatHTML, OutputModeMarkdown, "page.md"},
		{"shop/.hidden", FormatHTML, OutputModeMarkdown, "shop/.hidden.md"},
		{"notes.txt", FormatText, OutputModeMarkdown, "notes.txt"},
		{"logo.png", FormatBinary, OutputModeMarkdown, "logo.png"},
		{"", FormatHTML, OutputModeHTML, ""},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, generateOutputPath(tt.rel, tt.format, tt.mode))
		})
	}
}

func TestDocumentFormat(t *testing.T) {
	tests := map[string]DocumentFormat{
		language.HTML:      FormatHTML,
		language.Markdown:  FormatMarkdown,
		language.PlainText: FormatText,
		language.Unknown:   FormatText,
		"javascript":       FormatOther,
		"css":              FormatOther,
	}
	for lang, want := range tests {
		assert.Equal(t, want, documentFormat(lang), lang)
	}
}

func TestCalculateConfigHash(t *testing.T) {
	base := func() *Options {
		return &Options{Enabled: true, StripSpaces: true, Selector: "body", OutputMode: OutputModeHTML, AppVersion: "1.0"}
	}
	h := calculateConfigHash(base(), 15)
	assert.Equal(t, h, calculateConfigHash(base(), 15), "hash is stable")

	changes := map[string]func(o *Options) worktime.Wage{
		"wage":       func(o *Options) worktime.Wage { return 16 },
		"rates":      func(o *Options) worktime.Wage { o.Rates = map[string]float64{"$": 1}; return 15 },
		"traversal":  func(o *Options) worktime.Wage { o.Traversal = "recursive"; return 15 },
		"label":      func(o *Options) worktime.Wage { o.HoursLabel = "hrs"; return 15 },
		"selector":   func(o *Options) worktime.Wage { o.Selector = "main"; return 15 },
		"outputMode": func(o *Options) worktime.Wage { o.OutputMode = OutputModeMarkdown; return 15 },
		"disabled":   func(o *Options) worktime.Wage { o.Enabled = false; return 15 },
		"version":    func(o *Options) worktime.Wage { o.AppVersion = "1.1"; return 15 },
		"languages":  func(o *Options) worktime.Wage { o.LanguageOverrides = map[string]string{".shtml": "html"}; return 15 },
	}
	for name, change := range changes {
		o := base()
		w := change(o)
		assert.NotEqual(t, h, calculateConfigHash(o, w), name)
	}
}
