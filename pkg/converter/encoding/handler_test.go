package encoding_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mkapulica/Time-is-Money/pkg/converter/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func encodeUTF16LE(t *testing.T, s string) []byte {
	t.Helper()
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	out, _, err := transform.Bytes(enc, []byte(s))
	require.NoError(t, err)
	return out
}

func TestDetectAndDecode(t *testing.T) {
	tests := []struct {
		name         string
		defaultEnc   string
		content      []byte
		contentType  string
		wantText     string
		wantEncoding string
		wantCertain  bool
	}{
		{
			name:         "plain utf-8",
			content:      []byte("Only 30 € today"),
			wantText:     "Only 30 € today",
			wantEncoding: "utf-8",
		},
		{
			name:         "utf-8 bom is stripped",
			content:      append([]byte{0xEF, 0xBB, 0xBF}, "£12"...),
			wantText:     "£12",
			wantEncoding: "utf-8",
			wantCertain:  true,
		},
		{
			name:         "meta charset",
			content:      []byte("<meta charset=\"windows-1252\"><p>45,00 \x80</p>"),
			wantText:     "<meta charset=\"windows-1252\"><p>45,00 €</p>",
			wantEncoding: "windows-1252",
			wantCertain:  true,
		},
		{
			name:         "meta charset on ascii page",
			content:      []byte("<meta charset=\"windows-1252\"><p>Caf&eacute; $30</p>"),
			wantText:     "<meta charset=\"windows-1252\"><p>Caf&eacute; $30</p>",
			wantEncoding: "windows-1252",
			wantCertain:  true,
		},
		{
			name:         "meta charset wins over configured default",
			defaultEnc:   "iso-8859-15",
			content:      []byte("<meta charset=\"windows-1252\"><p>\xa4</p>"),
			wantText:     "<meta charset=\"windows-1252\"><p>¤</p>",
			wantEncoding: "windows-1252",
			wantCertain:  true,
		},
		{
			name:         "content type charset",
			content:      []byte("\xa3 12"),
			contentType:  "text/plain; charset=windows-1252",
			wantText:     "£ 12",
			wantEncoding: "windows-1252",
			wantCertain:  true,
		},
		{
			name:         "configured default for undeclared legacy text",
			defaultEnc:   "iso-8859-15",
			content:      []byte("\xa4 5"),
			wantText:     "€ 5",
			wantEncoding: "iso-8859-15",
			wantCertain:  true,
		},
		{
			name:         "guess without default",
			content:      []byte("\xa3 5"),
			wantText:     "£ 5",
			wantEncoding: "windows-1252",
		},
		{
			name:         "unknown default is ignored",
			defaultEnc:   "no-such-charset",
			content:      []byte("\xa3 5"),
			wantText:     "£ 5",
			wantEncoding: "windows-1252",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := encoding.NewGoCharsetEncodingHandler(tt.defaultEnc)
			out, name, certain, err := h.DetectAndDecode(tt.content, tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, string(out))
			assert.Equal(t, tt.wantEncoding, name)
			assert.Equal(t, tt.wantCertain, certain)
		})
	}
}

func TestDetectAndDecode_UTF16(t *testing.T) {
	h := encoding.NewGoCharsetEncodingHandler("")
	out, name, certain, err := h.DetectAndDecode(encodeUTF16LE(t, "Price: $30"), "")
	require.NoError(t, err)
	assert.Equal(t, "Price: $30", string(out))
	assert.Equal(t, "utf-16le", name)
	assert.True(t, certain)
}

func TestIsBinary(t *testing.T) {
	h := encoding.NewGoCharsetEncodingHandler("")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{"empty", nil, false},
		{"html", []byte("<!DOCTYPE html><html><body>$5</body></html>"), false},
		{"plain text", []byte("Was 45,00 € now 30 €"), false},
		{"png", png, true},
		{"mostly nul", bytes.Repeat([]byte("a\x00"), 200), true},
		{"few nuls", append([]byte(strings.Repeat("a", 200)), 0), false},
		{"utf-16 text", encodeUTF16LE(t, strings.Repeat("price ", 50)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.IsBinary(tt.content))
		})
	}
}
