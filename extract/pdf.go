package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfHeaderWindow is how far into the file the %PDF- marker may appear.
const pdfHeaderWindow = 1024

// extractPDF reads page objects in page order and joins their plain text.
// Encrypted, truncated and otherwise corrupt documents are unreadable.
func extractPDF(data []byte) (text string, err error) {
	head := data
	if len(head) > pdfHeaderWindow {
		head = head[:pdfHeaderWindow]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return "", unreadable(FormatPDF, "missing %PDF- header", nil)
	}

	// The parser panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = unreadable(FormatPDF, "malformed document", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", unreadable(FormatPDF, "cannot open document", err)
	}

	pageCount := reader.NumPage()
	var builder strings.Builder
	var firstErr error
	failedPages := 0
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			failedPages++
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", pageNum, pageErr)
			}
			continue
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}

	if pageCount > 0 && failedPages == pageCount {
		return "", unreadable(FormatPDF, "no readable pages", firstErr)
	}
	return strings.TrimSpace(builder.String()), nil
}
