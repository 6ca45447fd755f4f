package extract

import (
	"mime"
	"path/filepath"
	"strings"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatDOC  Format = "doc"
	FormatXLS  Format = "xls"
	FormatRTF  Format = "rtf"
	FormatTXT  Format = "txt"
)

// ExtensionToFormat maps lowercase file extensions (without dot) to formats.
var ExtensionToFormat = map[string]Format{
	"pdf":  FormatPDF,
	"docx": FormatDOCX,
	"xlsx": FormatXLSX,
	"doc":  FormatDOC,
	"xls":  FormatXLS,
	"rtf":  FormatRTF,
	"txt":  FormatTXT,
}

var formatContentTypes = map[Format]string{
	FormatPDF:  "application/pdf",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatDOC:  "application/msword",
	FormatXLS:  "application/vnd.ms-excel",
	FormatRTF:  "application/rtf",
	FormatTXT:  "text/plain; charset=utf-8",
}

// DetectFormat returns the document format for a file path based on its extension.
// The second return value is false if the extension is not supported.
func DetectFormat(filePath string) (Format, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if ext == "" {
		return "", false
	}
	format, ok := ExtensionToFormat[ext]
	return format, ok
}

// ContentType returns the MIME type used when serving the raw file bytes.
func ContentType(filePath string) string {
	if format, ok := DetectFormat(filePath); ok {
		return formatContentTypes[format]
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filePath))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Supported reports whether the format has an extraction strategy.
func (f Format) Supported() bool {
	_, ok := formatContentTypes[f]
	return ok
}
