package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// buildPDF assembles a one-page document with correct xref offsets.
func buildPDF(t *testing.T, text string) []byte {
	t.Helper()
	stream := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xrefAt := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefAt)
	return buf.Bytes()
}

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Annual budget</w:t></w:r></w:p>
<w:p><w:r><w:t>Travel and lodging</w:t></w:r></w:p>
</w:body>
</w:document>`

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const xlsxWorkbookXML = `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets>
<sheet name="Summary" sheetId="2" r:id="rId2"/>
<sheet name="Detail" sheetId="1" r:id="rId1"/>
</sheets>
</workbook>`

const xlsxRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="/xl/worksheets/sheet2.xml"/>
</Relationships>`

const xlsxShared = `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="3" uniqueCount="3">
<si><t>Item</t></si>
<si><t>Qty</t></si>
<si><r><t>Green</t></r><r><t> apples</t></r></si>
</sst>`

const xlsxDetail = `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>12</v></c><c r="C2" t="b"><v>1</v></c></row>
<row r="3"></row>
</sheetData>
</worksheet>`

const xlsxSummary = `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData>
<row r="1"><c r="A1" t="inlineStr"><is><t>Totals</t></is></c></row>
</sheetData>
</worksheet>`

func testXLSX(t *testing.T) []byte {
	return buildZip(t, map[string]string{
		"xl/workbook.xml":            xlsxWorkbookXML,
		"xl/_rels/workbook.xml.rels": xlsxRels,
		"xl/sharedStrings.xml":       xlsxShared,
		"xl/worksheets/sheet1.xml":   xlsxDetail,
		"xl/worksheets/sheet2.xml":   xlsxSummary,
	})
}

func Test_Extract_Text_PlainUTF8(t *testing.T) {
	text, err := Extract([]byte("Welcome to search"), FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to search", text)
}

func Test_Extract_Text_InvalidUTF8IsReplaced(t *testing.T) {
	text, err := Extract([]byte("caf\xe9 menu"), FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, "caf� menu", text)
}

func Test_Extract_Text_UTF8BOMStrippedLineEndingsKept(t *testing.T) {
	text, err := Extract([]byte("\xEF\xBB\xBFline one\r\nline two\r"), FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, "line one\r\nline two\r", text)
}

func Test_Extract_Text_UTF16LEWithBOM(t *testing.T) {
	data := []byte{0xFF, 0xFE, 'H', 0, 'i', 0, ' ', 0, 0xAC, 0x20}
	text, err := Extract(data, FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, "Hi €", text)
}

func Test_Extract_Text_UTF16BEWithBOM(t *testing.T) {
	data := []byte{0xFE, 0xFF, 0, 'O', 0, 'K', 0, '\n'}
	text, err := Extract(data, FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, "OK\n", text)
}

func Test_Extract_Text_EmptyFile(t *testing.T) {
	text, err := Extract(nil, FormatTXT)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func Test_Extract_DOCX_Paragraphs(t *testing.T) {
	data := buildZip(t, map[string]string{
		"[Content_Types].xml": docxContentTypes,
		"word/document.xml":   docxBody,
	})
	text, err := Extract(data, FormatDOCX)
	require.NoError(t, err)
	assert.Contains(t, text, "Annual budget")
	assert.Contains(t, text, "Travel and lodging")
	assert.Less(t, bytes.Index([]byte(text), []byte("Annual")), bytes.Index([]byte(text), []byte("Travel")))
}

func Test_Extract_DOCX_NotAnArchive(t *testing.T) {
	_, err := Extract([]byte("plain text pretending to be docx"), FormatDOCX)
	require.Error(t, err)
	assert.Equal(t, KindUnreadable, KindOf(err))
}

func Test_Extract_DOCX_MissingContentTypes(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": docxBody})
	_, err := Extract(data, FormatDOCX)
	require.Error(t, err)
	assert.Equal(t, KindUnreadable, KindOf(err))
}

func Test_Extract_XLSX_SheetsInWorkbookOrder(t *testing.T) {
	text, err := Extract(testXLSX(t), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "Totals\nItem\tQty\nGreen apples\t12\tTRUE", text)
}

func Test_Extract_XLSX_FallbackSheetOrderWithoutWorkbook(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/sharedStrings.xml":      xlsxShared,
		"xl/worksheets/sheet10.xml": xlsxSummary,
		"xl/worksheets/sheet1.xml":  xlsxDetail,
	})
	text, err := Extract(data, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "Item\tQty\nGreen apples\t12\tTRUE\nTotals", text)
}

func Test_Extract_XLSX_NoWorksheets(t *testing.T) {
	data := buildZip(t, map[string]string{"docProps/app.xml": "<Properties/>"})
	_, err := Extract(data, FormatXLSX)
	require.Error(t, err)
	assert.Equal(t, KindUnreadable, KindOf(err))
}

func Test_Extract_XLSX_TruncatedArchive(t *testing.T) {
	data := testXLSX(t)
	_, err := Extract(data[:len(data)/2], FormatXLSX)
	require.Error(t, err)
	assert.Equal(t, KindUnreadable, KindOf(err))
}

func Test_Extract_RTF_StripsControlWordsAndTables(t *testing.T) {
	data := []byte(`{\rtf1\ansi{\fonttbl{\f0 Arial;}}{\colortbl;\red0\green0\blue0;}\f0 Hello \b World\b0\par Caf\'e9 \u8364?}`)
	text, err := Extract(data, FormatRTF)
	require.NoError(t, err)
	assert.Equal(t, "Hello World\nCafé €", text)
}

func Test_Extract_RTF_CodePage1250(t *testing.T) {
	data := []byte(`{\rtf1\ansi\ansicpg1250\deff0 Za\'bf\'f3\'b3\'e6 g\'ea\'9cl\'b9 ja\'9f\'f1}`)
	text, err := Extract(data, FormatRTF)
	require.NoError(t, err)
	assert.Equal(t, "Zażółć gęślą jaźń", text)
}

func Test_Extract_RTF_UnknownCodePageFallsBack(t *testing.T) {
	text, err := Extract([]byte(`{\rtf1\ansi\ansicpg99999 Caf\'e9}`), FormatRTF)
	require.NoError(t, err)
	assert.Equal(t, "Café", text)
}

func Test_Extract_RTF_SkipsIgnorableDestinations(t *testing.T) {
	data := []byte(`{\rtf1{\*\generator Writer 1.0;}{\info{\title Secret}}Body text\tab tabbed}`)
	text, err := Extract(data, FormatRTF)
	require.NoError(t, err)
	assert.Equal(t, "Body text\ttabbed", text)
}

func Test_Extract_RTF_EscapedBraces(t *testing.T) {
	text, err := Extract([]byte(`{\rtf1 a \{b\} c\\d}`), FormatRTF)
	require.NoError(t, err)
	assert.Equal(t, `a {b} c\d`, text)
}

func Test_Extract_RTF_MissingHeader(t *testing.T) {
	_, err := Extract([]byte("just text"), FormatRTF)
	require.Error(t, err)
	assert.Equal(t, KindUnreadable, KindOf(err))
}

func Test_Extract_PDF_SinglePage(t *testing.T) {
	text, err := Extract(buildPDF(t, "Quarterly report"), FormatPDF)
	require.NoError(t, err)
	assert.Contains(t, text, "Quarterly report")
}

func Test_Extract_PDF_CorruptIsUnreadable(t *testing.T) {
	cases := map[string][]byte{
		"no header": []byte("this is not a pdf"),
		"garbage":   []byte("%PDF-1.7\n\x00\x01\x02 garbage without xref"),
		"truncated": buildPDF(t, "Quarterly report")[:60],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			text, err := Extract(data, FormatPDF)
			require.Error(t, err)
			assert.Empty(t, text)
			assert.Equal(t, KindUnreadable, KindOf(err))
		})
	}
}

func Test_Extract_Compound_RawScanFallback(t *testing.T) {
	data := []byte("\x00\x01\x02Legacy document text\x00\x05ab\x00")
	text, err := Extract(data, FormatDOC)
	require.NoError(t, err)
	assert.Equal(t, "Legacy document text", text)
}

func Test_Extract_Compound_UTF16Runs(t *testing.T) {
	data := []byte{0x01, 0x00, 'S', 0, 'h', 0, 'e', 0, 'e', 0, 't', 0, 0x00, 0x00}
	text, err := Extract(data, FormatXLS)
	require.NoError(t, err)
	assert.Equal(t, "Sheet", text)
}

func Test_Extract_Compound_CorruptHeader(t *testing.T) {
	data := append(append([]byte{}, cfbMagic...), make([]byte, 16)...)
	_, err := Extract(data, FormatDOC)
	require.Error(t, err)
	assert.Equal(t, KindUnreadable, KindOf(err))
}

func Test_Extract_Compound_Empty(t *testing.T) {
	_, err := Extract(nil, FormatXLS)
	require.Error(t, err)
	assert.Equal(t, KindUnreadable, KindOf(err))
}

func Test_Extract_UnsupportedFormat(t *testing.T) {
	_, err := Extract([]byte("x"), Format("odt"))
	require.Error(t, err)
	assert.Equal(t, KindUnsupported, KindOf(err))
}

func Test_Extractor_SizeCeiling(t *testing.T) {
	x := Extractor{MaxBytes: 4}
	_, err := x.Extract(context.Background(), []byte("hello world"), FormatTXT)
	require.Error(t, err)
	assert.Equal(t, KindFailed, KindOf(err))
	assert.Contains(t, err.Error(), "size limit")
}

func Test_Extractor_DeadlineAlreadyPassed(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	x := Extractor{Timeout: time.Second}
	_, err := x.Extract(ctx, []byte("hello"), FormatTXT)
	require.Error(t, err)
	assert.Equal(t, KindFailed, KindOf(err))
	assert.Contains(t, err.Error(), "timed out")
}

func Test_Extractor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Extractor{}.Extract(ctx, []byte("hello"), FormatTXT)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func Test_Extractor_UnsupportedBeforeSizeCheck(t *testing.T) {
	x := Extractor{MaxBytes: 1}
	_, err := x.Extract(context.Background(), []byte("big input"), Format("png"))
	assert.Equal(t, KindUnsupported, KindOf(err))
}

func Test_Extractor_WithinCeilings(t *testing.T) {
	x := Extractor{MaxBytes: 1 << 20, Timeout: 5 * time.Second}
	text, err := x.Extract(context.Background(), []byte("hello"), FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func Test_DetectFormat(t *testing.T) {
	cases := map[string]Format{
		"report.PDF":      FormatPDF,
		"notes/a.docx":    FormatDOCX,
		"sheet.xlsx":      FormatXLSX,
		"legacy.doc":      FormatDOC,
		"legacy.XLS":      FormatXLS,
		"letter.rtf":      FormatRTF,
		"documents/w.txt": FormatTXT,
	}
	for name, want := range cases {
		got, ok := DetectFormat(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := DetectFormat("image.png")
	assert.False(t, ok)
	_, ok = DetectFormat("Makefile")
	assert.False(t, ok)
}

func Test_ContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.pdf"))
	assert.Equal(t, "text/plain; charset=utf-8", ContentType("a.TXT"))
	assert.Equal(t, "application/octet-stream", ContentType("blob.unknownext"))
}
