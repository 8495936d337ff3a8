// Package language identifies the language of a file with go-enry. The
// converter uses it to route files: markup and prose are rewritten, code is
// copied untouched.
package language

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Well-known identifiers returned by Detect.
const (
	HTML      = "html"
	Markdown  = "markdown"
	PlainText = "plaintext"
	Unknown   = "unknown"
)

// LanguageDetector determines the language of a file from its content and
// name. Returned identifiers are lowercase.
type LanguageDetector interface {
	// Detect returns the language and an indicative confidence: 1.0 for
	// overrides, 0.8 for content based detection, 0.5 for extension or file
	// name rules and 0.0 for the plaintext or unknown fallback.
	Detect(content []byte, filePath string) (language string, confidence float64, err error)
}

type enryDetector struct {
	overrides map[string]string // extension with leading dot -> language
}

// NewGoEnryDetector returns a detector backed by go-enry. overrides maps file
// extensions (with or without the leading dot) to language identifiers and
// wins over detection.
func NewGoEnryDetector(overrides map[string]string) LanguageDetector {
	normalized := make(map[string]string, len(overrides))
	for ext, lang := range overrides {
		ext = strings.ToLower(strings.TrimSpace(ext))
		lang = strings.ToLower(strings.TrimSpace(lang))
		if ext == "" || ext == "." || lang == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[ext] = lang
	}
	return &enryDetector{overrides: normalized}
}

func usable(lang string) bool {
	return lang != "" && lang != "Text"
}

func (d *enryDetector) Detect(content []byte, filePath string) (string, float64, error) {
	if lang, ok := d.overrides[strings.ToLower(filepath.Ext(filePath))]; ok {
		return lang, 1.0, nil
	}

	if len(content) > 0 {
		if lang := enry.GetLanguage(filepath.Base(filePath), content); usable(lang) {
			return strings.ToLower(lang), 0.8, nil
		}
	}
	if lang, safe := enry.GetLanguageByExtension(filePath); safe && usable(lang) {
		return strings.ToLower(lang), 0.5, nil
	}
	if lang, safe := enry.GetLanguageByFilename(filePath); safe && usable(lang) {
		return strings.ToLower(lang), 0.5, nil
	}
	if len(content) == 0 {
		return Unknown, 0.0, nil
	}
	return PlainText, 0.0, nil
}
