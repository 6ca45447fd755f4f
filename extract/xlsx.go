package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// maxZipMemberBytes caps the decompressed size of any single archive member.
const maxZipMemberBytes = 64 << 20

type xlsxWorkbook struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRelationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// xlsxStringItem is a shared or inline string: plain <t> or rich-text <r><t> runs.
type xlsxStringItem struct {
	Text string `xml:"t"`
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

func (s xlsxStringItem) String() string {
	if len(s.Runs) == 0 {
		return s.Text
	}
	var builder strings.Builder
	builder.WriteString(s.Text)
	for _, run := range s.Runs {
		builder.WriteString(run.Text)
	}
	return builder.String()
}

type xlsxSharedStrings struct {
	Items []xlsxStringItem `xml:"si"`
}

type xlsxWorksheet struct {
	Rows []struct {
		Cells []struct {
			Type   string         `xml:"t,attr"`
			Value  string         `xml:"v"`
			Inline xlsxStringItem `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// extractXLSX reads every worksheet in workbook order. Each row becomes one
// line with its non-empty cells separated by tabs.
func extractXLSX(data []byte) (string, error) {
	if !bytes.HasPrefix(data, zipMagic) {
		return "", unreadable(FormatXLSX, "not a zip archive", nil)
	}
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", unreadable(FormatXLSX, "cannot open archive", err)
	}

	members := make(map[string]*zip.File, len(archive.File))
	for _, f := range archive.File {
		members[f.Name] = f
	}

	var shared xlsxSharedStrings
	if f, ok := members["xl/sharedStrings.xml"]; ok {
		if err := decodeZipXML(f, &shared); err != nil {
			return "", unreadable(FormatXLSX, "cannot parse shared strings", err)
		}
	}

	sheetPaths := xlsxSheetOrder(members)
	if len(sheetPaths) == 0 {
		return "", unreadable(FormatXLSX, "workbook has no worksheets", nil)
	}

	var builder strings.Builder
	for _, sheetPath := range sheetPaths {
		var sheet xlsxWorksheet
		if err := decodeZipXML(members[sheetPath], &sheet); err != nil {
			return "", unreadable(FormatXLSX, fmt.Sprintf("cannot parse %s", sheetPath), err)
		}
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				value := xlsxCellText(cell.Type, cell.Value, cell.Inline, shared.Items)
				if strings.TrimSpace(value) != "" {
					cells = append(cells, value)
				}
			}
			if len(cells) > 0 {
				builder.WriteString(strings.Join(cells, "\t"))
				builder.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(builder.String()), nil
}

func xlsxCellText(cellType, value string, inline xlsxStringItem, shared []xlsxStringItem) string {
	switch cellType {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx].String()
	case "inlineStr":
		return inline.String()
	case "b":
		if strings.TrimSpace(value) == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return value
	}
}

// xlsxSheetOrder resolves worksheet parts in workbook order, falling back to
// the numeric order of xl/worksheets/sheetN.xml when the workbook is unusable.
func xlsxSheetOrder(members map[string]*zip.File) []string {
	var ordered []string
	workbook, hasWorkbook := members["xl/workbook.xml"]
	rels, hasRels := members["xl/_rels/workbook.xml.rels"]
	if hasWorkbook && hasRels {
		var wb xlsxWorkbook
		var rs xlsxRelationships
		if decodeZipXML(workbook, &wb) == nil && decodeZipXML(rels, &rs) == nil {
			targets := make(map[string]string, len(rs.Items))
			for _, rel := range rs.Items {
				targets[rel.ID] = rel.Target
			}
			for _, sheet := range wb.Sheets {
				target, ok := targets[sheet.RID]
				if !ok {
					continue
				}
				var partName string
				if strings.HasPrefix(target, "/") {
					partName = strings.TrimPrefix(target, "/")
				} else {
					partName = path.Join("xl", target)
				}
				if _, exists := members[partName]; exists {
					ordered = append(ordered, partName)
				}
			}
		}
	}
	if len(ordered) > 0 {
		return ordered
	}

	for name := range members {
		if strings.HasPrefix(name, "xl/worksheets/") && strings.HasSuffix(name, ".xml") && !strings.Contains(name[len("xl/worksheets/"):], "/") {
			ordered = append(ordered, name)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		ni, nj := sheetNumber(ordered[i]), sheetNumber(ordered[j])
		if ni != nj {
			return ni < nj
		}
		return ordered[i] < ordered[j]
	})
	return ordered
}

func sheetNumber(name string) int {
	base := strings.TrimSuffix(path.Base(name), ".xml")
	n, err := strconv.Atoi(strings.TrimPrefix(base, "sheet"))
	if err != nil {
		return 1 << 30
	}
	return n
}

// decodeZipXML decodes one archive member, refusing to inflate past maxZipMemberBytes.
func decodeZipXML(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	limited := &io.LimitedReader{R: rc, N: maxZipMemberBytes + 1}
	buf, err := io.ReadAll(limited)
	if err != nil {
		return err
	}
	if int64(len(buf)) > maxZipMemberBytes {
		return fmt.Errorf("%s exceeds %d bytes when decompressed", f.Name, maxZipMemberBytes)
	}
	return xml.Unmarshal(buf, v)
}
