package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"code.sajari.com/docconv/v2"
)

var zipMagic = []byte("PK\x03\x04")

// Parts docconv needs to locate the main document body.
var docxRequiredParts = []string{"[Content_Types].xml", "word/document.xml"}

// extractDOCX returns the paragraphs of word/document.xml in document order.
func extractDOCX(data []byte) (text string, err error) {
	if !bytes.HasPrefix(data, zipMagic) {
		return "", unreadable(FormatDOCX, "not a zip archive", nil)
	}
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", unreadable(FormatDOCX, "cannot open archive", err)
	}
	present := make(map[string]bool, len(archive.File))
	for _, f := range archive.File {
		present[f.Name] = true
	}
	for _, part := range docxRequiredParts {
		if !present[part] {
			return "", unreadable(FormatDOCX, "missing "+part, nil)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = unreadable(FormatDOCX, "malformed document", fmt.Errorf("%v", r))
		}
	}()

	body, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return "", unreadable(FormatDOCX, "cannot convert document", err)
	}
	return strings.TrimSpace(body), nil
}
