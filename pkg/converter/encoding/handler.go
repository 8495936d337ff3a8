// Package encoding detects binary content and decodes text documents to UTF-8
// before prices are rewritten.
package encoding

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	// sniffLen is the number of bytes http.DetectContentType looks at.
	sniffLen = 512
	// nullCheckLen is the prefix scanned for NUL bytes.
	nullCheckLen = 1024
	// nullThreshold is the NUL byte ratio above which content is binary.
	nullThreshold = 0.15
	// prescanLen is the prefix charset.DetermineEncoding searches for <meta>.
	prescanLen = 1024
)

// UTF8 is the name reported for content that needed no conversion.
const UTF8 = "utf-8"

var textMIMEs = map[string]bool{
	"application/json":         true,
	"application/xml":          true,
	"application/xhtml+xml":    true,
	"application/javascript":   true,
	"application/ecmascript":   true,
	"application/rss+xml":      true,
	"application/atom+xml":     true,
	"application/ld+json":      true,
	"image/svg+xml":            true,
	"application/octet-stream": true, // decided by the NUL check
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var textMIMESuffixes = []string{"+xml", "+json"}

// EncodingHandler decodes documents to UTF-8 and detects binary files.
type EncodingHandler interface {
	// DetectAndDecode converts content to UTF-8. contentType is an optional
	// MIME type whose charset parameter takes precedence over sniffing; for
	// HTML, <meta> charset declarations are honoured. It returns the decoded
	// bytes, the IANA name of the source encoding and whether the encoding
	// was declared by a BOM, the content type or a <meta> tag. On conversion failure the original content is returned
	// together with the error.
	DetectAndDecode(content []byte, contentType string) (utf8Content []byte, detectedEncoding string, certain bool, err error)

	// IsBinary reports whether content looks like binary data.
	IsBinary(content []byte) bool
}

type charsetHandler struct {
	defaultEncoding string
}

// NewGoCharsetEncodingHandler returns a handler based on
// golang.org/x/net/html/charset. defaultEncoding, when it names a known
// encoding, is used for content that is neither valid UTF-8 nor declares its
// charset.
func NewGoCharsetEncodingHandler(defaultEncoding string) EncodingHandler {
	return &charsetHandler{defaultEncoding: defaultEncoding}
}

func (h *charsetHandler) DetectAndDecode(content []byte, contentType string) ([]byte, string, bool, error) {
	enc, name, certain := charset.DetermineEncoding(content, contentType)
	if !certain && name != UTF8 && metaDeclared(content) {
		certain = true
	}
	if !certain {
		if utf8.Valid(content) {
			return content, UTF8, false, nil
		}
		if h.defaultEncoding != "" {
			if e, n := charset.Lookup(h.defaultEncoding); e != nil {
				enc, name, certain = e, n, true
			}
		}
	}
	if name == "" {
		name = "unknown"
	}
	if name == UTF8 && utf8.Valid(content) {
		return bytes.TrimPrefix(content, utf8BOM), name, certain, nil
	}
	if enc == nil {
		return content, name, certain, nil
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), content)
	if err != nil {
		return content, name, certain, fmt.Errorf("failed to convert from %q: %w", name, err)
	}
	return bytes.TrimPrefix(out, utf8BOM), name, certain, nil
}

// metaDeclared reports whether the head of content declares a charset other
// than UTF-8 in a <meta> tag. charset.DetermineEncoding reports such
// declarations as uncertain, like its own fallback guess; masking non-ASCII
// bytes turns that guess into UTF-8, so any other answer is the declaration.
func metaDeclared(content []byte) bool {
	head := bytes.Map(func(r rune) rune {
		if r >= utf8.RuneSelf {
			return '?'
		}
		return r
	}, content[:min(len(content), prescanLen)])
	_, name, _ := charset.DetermineEncoding(head, "")
	return name != UTF8
}

func isTextMIME(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if strings.HasPrefix(mimeType, "text/") || textMIMEs[mimeType] {
		return true
	}
	for _, suffix := range textMIMESuffixes {
		if strings.HasSuffix(mimeType, suffix) {
			return true
		}
	}
	return false
}

// IsBinary sniffs the MIME type of the first bytes and then checks the share
// of NUL bytes.
func (h *charsetHandler) IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	// UTF-16 text is full of NULs but carries a BOM.
	if bytes.HasPrefix(content, []byte{0xFF, 0xFE}) || bytes.HasPrefix(content, []byte{0xFE, 0xFF}) {
		return false
	}
	if !isTextMIME(http.DetectContentType(content[:min(len(content), sniffLen)])) {
		return true
	}
	head := content[:min(len(content), nullCheckLen)]
	nulls := bytes.Count(head, []byte{0})
	return float64(nulls)/float64(len(head)) > nullThreshold
}
