package index

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names reported by DetectEncoding.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
	EncodingLegacy  = "windows-1252"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

type EncodingResult struct {
	Encoding string `json:"encoding"`
	HasBOM   bool   `json:"has_bom"`
}

// DetectEncoding recognizes byte order marks and falls back to Windows-1252
// for input that is not valid UTF-8.
func DetectEncoding(data []byte) EncodingResult {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return EncodingResult{Encoding: EncodingUTF8, HasBOM: true}
	case bytes.HasPrefix(data, bomUTF16LE):
		return EncodingResult{Encoding: EncodingUTF16LE, HasBOM: true}
	case bytes.HasPrefix(data, bomUTF16BE):
		return EncodingResult{Encoding: EncodingUTF16BE, HasBOM: true}
	case utf8.Valid(data):
		return EncodingResult{Encoding: EncodingUTF8}
	default:
		return EncodingResult{Encoding: EncodingLegacy}
	}
}

// NormalizeToUTF8 decodes data to UTF-8 text without a BOM. Undecodable bytes
// become U+FFFD so the tokenizer always sees valid text.
func NormalizeToUTF8(data []byte, detected EncodingResult) string {
	var dec *encoding.Decoder
	switch detected.Encoding {
	case EncodingUTF16LE:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case EncodingUTF16BE:
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case EncodingLegacy:
		dec = charmap.Windows1252.NewDecoder()
	default:
		data = bytes.TrimPrefix(data, bomUTF8)
		return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
	}
	return decodeWithFallback(data, dec)
}

func decodeWithFallback(data []byte, decoder *encoding.Decoder) string {
	if len(data) == 0 {
		return ""
	}

	reader := transform.NewReader(bytes.NewReader(data), decoder)
	result, err := io.ReadAll(reader)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
	}

	return string(bytes.ToValidUTF8(result, []byte("\uFFFD")))
}

func ReadFileAsUTF8(path string) (content string, detected EncodingResult, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", EncodingResult{}, err
	}

	detected = DetectEncoding(data)
	content = NormalizeToUTF8(data, detected)
	return content, detected, nil
}
