package converter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/mkapulica/Time-is-Money/pkg/converter/cache"
	"github.com/mkapulica/Time-is-Money/pkg/converter/encoding"
	"github.com/mkapulica/Time-is-Money/pkg/converter/language"
	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"github.com/mkapulica/Time-is-Money/pkg/worktime/htmltree"
	"github.com/mkapulica/Time-is-Money/pkg/worktime/session"
)

// FileProcessor converts a single file: it decides the route, rewrites the
// prices of documents and writes the result into the output tree.
type FileProcessor struct {
	opts            *Options
	logger          *slog.Logger
	loggerHandler   slog.Handler
	cacheManager    CacheManager
	langDetector    language.LanguageDetector
	encodingHandler encoding.EncodingHandler
	rewriter        *worktime.Engine
	wage            worktime.Wage
	selector        goquery.Matcher
	configHash      string
}

// NewFileProcessor creates a FileProcessor. wage is only used when
// Options.Enabled is set and must then be valid.
func NewFileProcessor(
	opts *Options,
	loggerHandler slog.Handler,
	cacheMgr CacheManager,
	langDet language.LanguageDetector,
	encHandler encoding.EncodingHandler,
	rewriter *worktime.Engine,
	wage worktime.Wage,
) *FileProcessor {
	logger := slog.New(loggerHandler).With(slog.String("component", "processor"))
	if cacheMgr == nil {
		cacheMgr = &NoOpCacheManager{}
	}
	var selector goquery.Matcher
	if strings.TrimSpace(opts.Selector) != "" {
		compiled, err := cascadia.Compile(opts.Selector)
		if err != nil {
			logger.Error("Invalid region selector, rewriting the whole body", slog.String("selector", opts.Selector), slog.String("error", err.Error()))
		} else {
			selector = compiled
		}
	}
	return &FileProcessor{
		opts:            opts,
		logger:          logger,
		loggerHandler:   loggerHandler,
		cacheManager:    cacheMgr,
		langDetector:    langDet,
		encodingHandler: encHandler,
		rewriter:        rewriter,
		wage:            wage,
		selector:        selector,
		configHash:      calculateConfigHash(opts, wage),
	}
}

// rendered is what the rewrite step produced for one document.
type rendered struct {
	content  []byte
	format   DocumentFormat
	title    string
	regions  int
	stats    worktime.Stats
	encoding string
}

// ProcessFile runs the pipeline for absFilePath. The result is a FileInfo,
// SkippedInfo or ErrorInfo matching the returned status.
func (p *FileProcessor) ProcessFile(ctx context.Context, absFilePath string) (result any, status Status, err error) {
	startTime := time.Now()
	relPath, pathErr := filepath.Rel(p.opts.InputPath, absFilePath)
	if pathErr != nil {
		err = fmt.Errorf("%w: calculating relative path: %w", ErrConfigValidation, pathErr)
		return ErrorInfo{Path: absFilePath, Error: err.Error(), IsFatal: true}, StatusFailed, err
	}
	relPath = filepath.ToSlash(relPath)
	logArgs := []any{slog.String("path", relPath)}

	defer func() {
		if err != nil {
			status = StatusFailed
			if _, ok := result.(ErrorInfo); !ok {
				result = p.fail(relPath, err)
			}
		}
		level := slog.LevelDebug
		if status == StatusFailed {
			level = slog.LevelError
		}
		p.logger.Log(ctx, level, "Processor finished file task",
			append(logArgs, slog.String("status", string(status)), slog.Duration("duration", time.Since(startTime)))...)
	}()

	select {
	case <-ctx.Done():
		err = ctx.Err()
		return ErrorInfo{Path: relPath, Error: err.Error(), IsFatal: true}, StatusFailed, err
	default:
	}

	fi, statErr := os.Stat(absFilePath)
	if statErr != nil {
		return nil, StatusFailed, fmt.Errorf("%w: %w", ErrStatFailed, statErr)
	}
	info := FileInfo{
		Path:        relPath,
		SizeBytes:   fi.Size(),
		ModTime:     fi.ModTime(),
		CacheStatus: CacheStatusDisabled,
	}

	copyOnly := !p.opts.Enabled
	if p.opts.LargeFileThreshold > 0 && info.SizeBytes > p.opts.LargeFileThreshold {
		details := fmt.Sprintf("file size %d bytes > threshold %d bytes", info.SizeBytes, p.opts.LargeFileThreshold)
		switch p.opts.LargeFileMode {
		case LargeFileError:
			return nil, StatusFailed, fmt.Errorf("%w: %s", ErrLargeFile, details)
		case LargeFileCopy:
			p.logger.Debug("Copying large file unchanged", logArgs...)
			copyOnly = true
		default:
			p.logger.Info("Skipping large file", logArgs...)
			return SkippedInfo{Path: relPath, Reason: SkipReasonLarge, Details: details}, StatusSkipped, nil
		}
	}

	source, readErr := os.ReadFile(absFilePath)
	if readErr != nil {
		return nil, StatusFailed, fmt.Errorf("%w: %w", ErrReadFailed, readErr)
	}
	sourceHash := hashBytes(source)

	if p.opts.CacheEnabled {
		info.CacheStatus = CacheStatusMiss
		if !p.opts.IgnoreCacheRead {
			if entry, hit := p.cacheManager.Check(relPath, info.ModTime, sourceHash, p.configHash); hit && p.outputExists(entry.OutputPath) {
				p.logger.Debug("Cache hit", logArgs...)
				info.OutputPath = entry.OutputPath
				info.Format = DocumentFormat(entry.Format)
				info.Prices = worktime.Stats{Matches: entry.Matches, Changed: entry.Changed}
				info.CacheStatus = CacheStatusHit
				info.DurationMs = time.Since(startTime).Milliseconds()
				return info, StatusCached, nil
			}
		}
	}

	var out rendered
	if p.encodingHandler != nil && p.encodingHandler.IsBinary(source) {
		switch p.opts.BinaryMode {
		case BinarySkip:
			p.logger.Info("Skipping binary file", logArgs...)
			return SkippedInfo{Path: relPath, Reason: SkipReasonBinary, Details: "binary file detected"}, StatusSkipped, nil
		case BinaryError:
			return nil, StatusFailed, ErrBinaryFile
		}
		out = rendered{content: source, format: FormatBinary}
	} else {
		lang, confidence := language.Unknown, 0.0
		if p.langDetector != nil {
			var langErr error
			if lang, confidence, langErr = p.langDetector.Detect(source, relPath); langErr != nil {
				p.logger.Warn("Language detection failed", append(logArgs, slog.String("error", langErr.Error()))...)
			}
		}
		info.Language, info.LanguageConfidence = lang, confidence
		format := documentFormat(lang)
		if copyOnly || format == FormatOther {
			out = rendered{content: source, format: format}
		} else {
			var rwErr error
			if out, rwErr = p.rewrite(ctx, source, format); rwErr != nil {
				return nil, StatusFailed, rwErr
			}
		}
	}

	info.Format = out.format
	info.Encoding = out.encoding
	info.Title = out.title
	info.Regions = out.regions
	info.Prices = out.stats
	info.OutputPath = generateOutputPath(relPath, out.format, p.outputMode(copyOnly))
	logArgs = append(logArgs, slog.String("outputPath", info.OutputPath))

	absOutputPath := filepath.Join(p.opts.OutputPath, filepath.FromSlash(info.OutputPath))
	if mkdirErr := os.MkdirAll(filepath.Dir(absOutputPath), 0o755); mkdirErr != nil {
		return nil, StatusFailed, fmt.Errorf("%w: %w", ErrMkdirFailed, mkdirErr)
	}
	if writeErr := os.WriteFile(absOutputPath, out.content, 0o644); writeErr != nil {
		return nil, StatusFailed, fmt.Errorf("%w: %w", ErrWriteFailed, writeErr)
	}
	p.logger.Debug("Output file written", append(logArgs, slog.Int("matches", out.stats.Matches))...)

	if p.opts.CacheEnabled {
		updateErr := p.cacheManager.Update(relPath, cache.Entry{
			SourceModTime: info.ModTime,
			SourceHash:    sourceHash,
			ConfigHash:    p.configHash,
			OutputPath:    info.OutputPath,
			OutputHash:    hashBytes(out.content),
			Format:        string(out.format),
			Matches:       out.stats.Matches,
			Changed:       out.stats.Changed,
		})
		if updateErr != nil {
			p.logger.Warn("Failed to update cache entry", append(logArgs, slog.String("error", updateErr.Error()))...)
		}
	}

	info.DurationMs = time.Since(startTime).Milliseconds()
	return info, StatusSuccess, nil
}

func (p *FileProcessor) fail(relPath string, err error) ErrorInfo {
	return ErrorInfo{Path: relPath, Error: err.Error(), IsFatal: p.opts.OnErrorMode == OnErrorStop}
}

func (p *FileProcessor) outputExists(outputRelPath string) bool {
	if outputRelPath == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(p.opts.OutputPath, filepath.FromSlash(outputRelPath)))
	return err == nil
}

func (p *FileProcessor) outputMode(copyOnly bool) OutputMode {
	if copyOnly {
		return OutputModeHTML
	}
	return p.opts.OutputMode
}

// rewrite decodes source and substitutes prices according to format.
func (p *FileProcessor) rewrite(ctx context.Context, source []byte, format DocumentFormat) (rendered, error) {
	contentType := ""
	if format == FormatHTML {
		contentType = "text/html"
	}
	text, enc := source, encoding.UTF8
	if p.encodingHandler != nil {
		var certain bool
		var decErr error
		text, enc, certain, decErr = p.encodingHandler.DetectAndDecode(source, contentType)
		if decErr != nil {
			p.logger.Warn("Decoding failed, using raw content",
				slog.String("encoding", enc), slog.Bool("certain", certain), slog.String("error", decErr.Error()))
			text, enc = source, encoding.UTF8
		}
	}
	if format == FormatHTML {
		return p.rewriteHTML(ctx, text, enc)
	}
	return p.rewriteText(ctx, text, enc, format)
}

func (p *FileProcessor) session(root *worktime.Node) *session.Session {
	return session.New(root, p.rewriter, session.FixedWage(p.wage), session.Options{Logger: p.loggerHandler})
}

func (p *FileProcessor) rewriteText(ctx context.Context, text []byte, enc string, format DocumentFormat) (rendered, error) {
	root := worktime.NewText(string(text))
	stats, err := p.session(root).Load(ctx)
	if err != nil {
		return rendered{}, fmt.Errorf("%w: %w", ErrRewriteFailed, err)
	}
	return rendered{content: []byte(root.Content), format: format, regions: 1, stats: stats, encoding: enc}, nil
}

func (p *FileProcessor) rewriteHTML(ctx context.Context, text []byte, enc string) (rendered, error) {
	doc, err := htmltree.Parse(bytes.NewReader(text))
	if err != nil {
		return rendered{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	gq := goquery.NewDocumentFromNode(doc.HTML)
	out := rendered{format: FormatHTML, encoding: enc}
	out.title = strings.TrimSpace(gq.Find("title").First().Text())

	regions := p.regions(doc, gq)
	for _, root := range regions {
		st, loadErr := p.session(root).Load(ctx)
		if loadErr != nil {
			return rendered{}, fmt.Errorf("%w: %w", ErrRewriteFailed, loadErr)
		}
		out.stats = out.stats.Add(st)
	}
	out.regions = len(regions)

	declareUTF8(gq)
	var buf bytes.Buffer
	if renderErr := doc.Render(&buf); renderErr != nil {
		return rendered{}, fmt.Errorf("%w: rendering: %w", ErrParseFailed, renderErr)
	}
	if p.opts.OutputMode != OutputModeMarkdown {
		out.content = buf.Bytes()
		return out, nil
	}
	md, mdErr := htmltomarkdown.ConvertString(buf.String())
	if mdErr != nil {
		return rendered{}, fmt.Errorf("%w: converting to markdown: %w", ErrParseFailed, mdErr)
	}
	out.content = []byte(md)
	return out, nil
}

// regions returns the mirrors of the elements matched by the selector. An
// element nested in another match is covered by its ancestor and dropped.
func (p *FileProcessor) regions(doc *htmltree.Document, gq *goquery.Document) []*worktime.Node {
	if p.selector == nil {
		return []*worktime.Node{doc.Body()}
	}
	var roots []*worktime.Node
	sel := gq.FindMatcher(p.selector)
	matched := make(map[*html.Node]struct{}, sel.Length())
	for _, hn := range sel.Nodes {
		matched[hn] = struct{}{}
	}
	for _, hn := range sel.Nodes {
		if hasMatchedAncestor(hn, matched) {
			continue
		}
		if m := doc.MirrorOf(hn); m != nil {
			roots = append(roots, m)
		}
	}
	return roots
}

func hasMatchedAncestor(hn *html.Node, matched map[*html.Node]struct{}) bool {
	for a := hn.Parent; a != nil; a = a.Parent {
		if _, ok := matched[a]; ok {
			return true
		}
	}
	return false
}

// declareUTF8 rewrites charset declarations, since output is always UTF-8.
func declareUTF8(gq *goquery.Document) {
	gq.Find("meta[charset]").SetAttr("charset", "utf-8")
	gq.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr("http-equiv"); strings.EqualFold(v, "content-type") {
			s.SetAttr("content", "text/html; charset=utf-8")
		}
	})
}

// documentFormat maps a detected language to its processing route.
func documentFormat(lang string) DocumentFormat {
	switch lang {
	case language.HTML, "xhtml":
		return FormatHTML
	case language.Markdown:
		return FormatMarkdown
	case language.PlainText, language.Unknown, "text":
		return FormatText
	default:
		return FormatOther
	}
}

// generateOutputPath mirrors relPath into the output tree. HTML documents
// converted to Markdown get a .md extension.
func generateOutputPath(relPath string, format DocumentFormat, mode OutputMode) string {
	if relPath == "" || relPath == "." {
		return ""
	}
	if format != FormatHTML || mode != OutputModeMarkdown {
		return relPath
	}
	ext := filepath.Ext(relPath)
	base := strings.TrimSuffix(relPath, ext)
	if base == "" || strings.HasSuffix(base, "/") {
		return relPath + ".md"
	}
	return base + ".md"
}

func hashBytes(b []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(b))
}

// calculateConfigHash returns a stable hash of every option that changes the
// output of a file. A cache entry is only reused under the same hash.
func calculateConfigHash(opts *Options, wage worktime.Wage) string {
	hasher := sha256.New()
	add := func(h hash.Hash, key, value string) {
		h.Write([]byte(key + ":" + value + ";"))
	}

	add(hasher, "Enabled", strconv.FormatBool(opts.Enabled))
	if opts.Enabled {
		add(hasher, "Wage", strconv.FormatFloat(float64(wage), 'g', -1, 64))
		add(hasher, "Traversal", opts.Traversal)
		add(hasher, "StripSpaces", strconv.FormatBool(opts.StripSpaces))
		add(hasher, "HoursLabel", opts.HoursLabel)
		rates := opts.conversionTable()
		symbols := make([]string, 0, len(rates))
		for s := range rates {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			add(hasher, "Rate_"+s, strconv.FormatFloat(rates[s], 'g', -1, 64))
		}
		add(hasher, "Selector", opts.Selector)
		add(hasher, "OutputMode", string(opts.OutputMode))
	}
	add(hasher, "BinaryMode", string(opts.BinaryMode))
	add(hasher, "LargeFileMode", string(opts.LargeFileMode))
	add(hasher, "LargeFileThreshold", strconv.FormatInt(opts.LargeFileThreshold, 10))
	add(hasher, "DefaultEncoding", opts.DefaultEncoding)

	exts := make([]string, 0, len(opts.LanguageOverrides))
	for ext := range opts.LanguageOverrides {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		add(hasher, "Language_"+ext, opts.LanguageOverrides[ext])
	}

	appVersion := opts.AppVersion
	if appVersion == "" {
		appVersion = "dev"
	}
	add(hasher, "AppVersion", appVersion)
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

var errNilResult = errors.New("internal error: processor returned nil result without error")
