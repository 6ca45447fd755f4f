package extract

import (
	"bytes"
	"strings"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// extractText returns plain text as stored. A leading byte order mark is
// dropped, UTF-16 with a BOM is transcoded, and invalid UTF-8 sequences become
// U+FFFD. Line endings are kept. Text never fails: input without a BOM that
// contains NUL bytes is reduced to its printable runs.
func extractText(data []byte) string {
	hasBOM := bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE)
	if !hasBOM && isBinaryContent(data) {
		return scanRuns(data)
	}
	decoded, _, err := transform.Bytes(xunicode.BOMOverride(xunicode.UTF8.NewDecoder()), data)
	if err != nil {
		return strings.ToValidUTF8(string(bytes.TrimPrefix(data, bomUTF8)), "�")
	}
	return string(decoded)
}
