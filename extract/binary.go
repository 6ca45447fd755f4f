package extract

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
)

// minRunLength is the shortest printable run kept when scanning binary streams.
const minRunLength = 4

// maxUTF16RunRune bounds code units accepted by the UTF-16 pass. Two printable
// single-byte characters always form a unit at or above 0x2020, so this keeps
// 8-bit text from being read a second time as CJK.
const maxUTF16RunRune = 0x2000

var cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Text-bearing streams in legacy Word and Excel compound files.
var compoundTextStreams = map[Format][]string{
	FormatDOC: {"WordDocument"},
	FormatXLS: {"Workbook", "Book"},
}

// isBinaryContent reports whether the first 512 bytes contain a NUL byte.
func isBinaryContent(data []byte) bool {
	checkSize := 512
	if len(data) < checkSize {
		checkSize = len(data)
	}
	return bytes.IndexByte(data[:checkSize], 0) >= 0
}

// extractCompound recovers text from legacy .doc and .xls files. The format's
// main stream is scanned for printable runs in both 8-bit and UTF-16LE form.
// Inputs that are not compound files are scanned whole.
func extractCompound(data []byte, format Format) (string, error) {
	if len(data) == 0 {
		return "", unreadable(format, "empty file", nil)
	}
	if !bytes.HasPrefix(data, cfbMagic) {
		return scanRuns(data), nil
	}

	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", unreadable(format, "cannot open compound file", err)
	}

	wanted := make(map[string]bool)
	for _, name := range compoundTextStreams[format] {
		wanted[name] = true
	}

	var preferred, others [][]byte
	for {
		entry, err := doc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", unreadable(format, "corrupt compound file", err)
		}
		if entry.Size <= 0 || entry.Size > maxZipMemberBytes {
			continue
		}
		buf := make([]byte, entry.Size)
		n, readErr := io.ReadFull(entry, buf)
		if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			continue
		}
		if wanted[entry.Name] {
			preferred = append(preferred, buf[:n])
		} else {
			others = append(others, buf[:n])
		}
	}

	streams := preferred
	if len(streams) == 0 {
		streams = others
	}
	if len(streams) == 0 {
		return "", unreadable(format, "no streams in compound file", nil)
	}

	parts := make([]string, 0, len(streams))
	for _, stream := range streams {
		if text := scanRuns(stream); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// scanRuns returns printable runs of at least minRunLength characters found in
// data, reading it both as single-byte text and as UTF-16LE.
func scanRuns(data []byte) string {
	var runs []string
	runs = append(runs, scanByteRuns(data)...)
	runs = append(runs, scanUTF16Runs(data)...)
	return strings.Join(runs, "\n")
}

func scanByteRuns(data []byte) []string {
	var runs []string
	var current []rune
	flush := func() {
		if len(current) >= minRunLength && hasLetterOrDigit(current) {
			runs = append(runs, strings.TrimSpace(string(current)))
		}
		current = current[:0]
	}
	for _, b := range data {
		r := charmap.Windows1252.DecodeByte(b)
		if isRunRune(r) {
			current = append(current, r)
			continue
		}
		flush()
	}
	flush()
	return runs
}

func scanUTF16Runs(data []byte) []string {
	var runs []string
	var current []rune
	flush := func() {
		if len(current) >= minRunLength && hasLetterOrDigit(current) {
			runs = append(runs, strings.TrimSpace(string(current)))
		}
		current = current[:0]
	}
	for i := 0; i+1 < len(data); i += 2 {
		r := rune(data[i]) | rune(data[i+1])<<8
		if r < maxUTF16RunRune && isRunRune(r) {
			current = append(current, r)
			continue
		}
		flush()
	}
	flush()
	return runs
}

func isRunRune(r rune) bool {
	if r == '\t' || r == ' ' {
		return true
	}
	return r != unicode.ReplacementChar && unicode.IsPrint(r)
}

func hasLetterOrDigit(runes []rune) bool {
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
