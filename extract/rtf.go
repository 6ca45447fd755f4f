package extract

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Destinations whose content is never document text.
var rtfSkipDestinations = map[string]bool{
	"fonttbl":            true,
	"colortbl":           true,
	"stylesheet":         true,
	"info":               true,
	"pict":               true,
	"object":             true,
	"listtable":          true,
	"listoverridetable":  true,
	"rsidtbl":            true,
	"generator":          true,
	"xmlnstbl":           true,
	"themedata":          true,
	"colorschememapping": true,
	"datastore":          true,
	"latentstyles":       true,
	"revtbl":             true,
	"fldinst":            true,
	"filetbl":            true,
	"header":             true,
	"footer":             true,
	"headerl":            true,
	"headerr":            true,
	"footerl":            true,
	"footerr":            true,
}

var rtfWordText = map[string]string{
	"par":       "\n",
	"line":      "\n",
	"sect":      "\n",
	"page":      "\n",
	"row":       "\n",
	"cell":      "\t",
	"tab":       "\t",
	"emdash":    "—",
	"endash":    "–",
	"bullet":    "•",
	"lquote":    "‘",
	"rquote":    "’",
	"ldblquote": "“",
	"rdblquote": "”",
	"emspace":   " ",
	"enspace":   " ",
}

type rtfGroup struct {
	skip   bool
	ucSkip int
}

// Single-byte code pages selectable with \ansicpgN.
var rtfCodePages = map[int]*charmap.Charmap{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
	20866: charmap.KOI8R,
	28591: charmap.ISO8859_1,
	28592: charmap.ISO8859_2,
	28605: charmap.ISO8859_15,
}

type rtfParser struct {
	data     []byte
	pos      int
	out      strings.Builder
	group    rtfGroup
	stack    []rtfGroup
	pending  int // fallback characters still to drop after a \u escape
	codePage *charmap.Charmap
}

// extractRTF strips control words and non-text destinations, decoding \'hh
// escapes and raw high bytes in the document code page (\ansicpgN, Windows-1252
// when absent or unknown) and \uN escapes as Unicode.
func extractRTF(data []byte) (string, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n\xEF\xBB\xBF")
	if !bytes.HasPrefix(trimmed, []byte(`{\rtf`)) {
		return "", unreadable(FormatRTF, `missing {\rtf header`, nil)
	}
	p := &rtfParser{data: trimmed, group: rtfGroup{ucSkip: 1}, codePage: charmap.Windows1252}
	p.parse()
	return strings.TrimSpace(collapseBlankLines(p.out.String())), nil
}

func (p *rtfParser) parse() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch c {
		case '{':
			p.stack = append(p.stack, p.group)
			p.pos++
		case '}':
			if n := len(p.stack); n > 0 {
				p.group = p.stack[n-1]
				p.stack = p.stack[:n-1]
			}
			p.pending = 0
			p.pos++
		case '\\':
			p.controlSequence()
		case '\r', '\n':
			p.pos++
		default:
			p.pos++
			p.emitRune(rune(c), c >= 0x80)
		}
	}
}

func (p *rtfParser) controlSequence() {
	p.pos++ // backslash
	if p.pos >= len(p.data) {
		return
	}
	c := p.data[p.pos]
	if !isASCIILetter(c) {
		p.pos++
		switch c {
		case '\\', '{', '}':
			p.emitRune(rune(c), false)
		case '\'':
			if p.pos+2 <= len(p.data) {
				if b, ok := parseHexByte(p.data[p.pos], p.data[p.pos+1]); ok {
					p.pos += 2
					p.emitRune(p.codePage.DecodeByte(b), false)
				}
			}
		case '*':
			p.group.skip = true
		case '~':
			p.emitRune(' ', false)
		case '_':
			p.emitRune('-', false)
		case '\r', '\n':
			p.emitText("\n")
		}
		return
	}

	start := p.pos
	for p.pos < len(p.data) && isASCIILetter(p.data[p.pos]) {
		p.pos++
	}
	word := string(p.data[start:p.pos])

	hasParam := false
	negative := false
	param := 0
	if p.pos < len(p.data) && p.data[p.pos] == '-' {
		negative = true
		p.pos++
	}
	for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
		hasParam = true
		param = param*10 + int(p.data[p.pos]-'0')
		p.pos++
	}
	if negative {
		param = -param
	}
	if p.pos < len(p.data) && p.data[p.pos] == ' ' {
		p.pos++
	}

	switch {
	case rtfSkipDestinations[word]:
		p.group.skip = true
	case word == "ansicpg" && hasParam:
		// TODO: per-font \fcharset overrides and double-byte code pages (932, 936, 949, 950).
		if cp, ok := rtfCodePages[param]; ok {
			p.codePage = cp
		}
	case word == "mac":
		p.codePage = charmap.Macintosh
	case word == "pc":
		p.codePage = charmap.CodePage437
	case word == "pca":
		p.codePage = charmap.CodePage850
	case word == "uc" && hasParam:
		p.group.ucSkip = param
	case word == "u" && hasParam:
		if param < 0 {
			param += 65536
		}
		p.emitRune(rune(param), false)
		p.pending = p.group.ucSkip
	default:
		if text, ok := rtfWordText[word]; ok {
			p.emitText(text)
		}
	}
}

// emitRune writes r unless the group is skipped or r is a \u fallback character.
// Raw high bytes are decoded in the document code page.
func (p *rtfParser) emitRune(r rune, raw bool) {
	if p.pending > 0 {
		p.pending--
		return
	}
	if p.group.skip {
		return
	}
	if raw {
		r = p.codePage.DecodeByte(byte(r))
	}
	p.out.WriteRune(r)
}

func (p *rtfParser) emitText(s string) {
	p.pending = 0
	if p.group.skip {
		return
	}
	p.out.WriteString(s)
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func parseHexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexValue(hi)
	l, ok2 := hexValue(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
