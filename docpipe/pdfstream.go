package docpipe

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/hazyhaar/docdiff/docmodel"
)

type pdfKind int

const (
	pdfNumber pdfKind = iota
	pdfString
	pdfName
	pdfArray
	pdfOp
	pdfArrayEnd
)

type pdfToken struct {
	kind pdfKind
	num  float64
	str  string
	arr  []pdfToken
}

// pdfLexer tokenizes a content stream. It understands just enough of the
// syntax to find text operators and their operands.
type pdfLexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (l *pdfLexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isPDFSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *pdfLexer) next() (pdfToken, bool) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return pdfToken{}, false
	}
	c := l.data[l.pos]
	switch {
	case c == '(':
		return pdfToken{kind: pdfString, str: l.literal()}, true
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return pdfToken{kind: pdfOp, str: "<<"}, true
		}
		return pdfToken{kind: pdfString, str: l.hex()}, true
	case c == '>':
		l.pos++
		if l.pos < len(l.data) && l.data[l.pos] == '>' {
			l.pos++
		}
		return pdfToken{kind: pdfOp, str: ">>"}, true
	case c == '[':
		l.pos++
		var arr []pdfToken
		for {
			tok, ok := l.next()
			if !ok || tok.kind == pdfArrayEnd {
				break
			}
			arr = append(arr, tok)
		}
		return pdfToken{kind: pdfArray, arr: arr}, true
	case c == ']':
		l.pos++
		return pdfToken{kind: pdfArrayEnd}, true
	case c == '/':
		l.pos++
		return pdfToken{kind: pdfName, str: l.word()}, true
	case c == '{' || c == '}' || c == ')':
		l.pos++
		return l.next()
	}

	w := l.word()
	if n, err := strconv.ParseFloat(w, 64); err == nil {
		return pdfToken{kind: pdfNumber, num: n}, true
	}
	if w == "ID" {
		l.skipInlineImage()
	}
	return pdfToken{kind: pdfOp, str: w}, true
}

func (l *pdfLexer) word() string {
	start := l.pos
	for l.pos < len(l.data) && !isPDFSpace(l.data[l.pos]) && !isPDFDelim(l.data[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// literal reads a balanced (...) string and decodes its escapes.
func (l *pdfLexer) literal() string {
	l.pos++
	start, depth := l.pos, 1
	for l.pos < len(l.data) {
		switch l.data[l.pos] {
		case '\\':
			l.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				raw := l.data[start:l.pos]
				l.pos++
				return decodePDFString(raw)
			}
		}
		l.pos++
	}
	return decodePDFString(l.data[start:])
}

func (l *pdfLexer) hex() string {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isPDFSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return string(out)
}

// skipInlineImage jumps over binary inline image data up to EI.
func (l *pdfLexer) skipInlineImage() {
	idx := bytes.Index(l.data[l.pos:], []byte("EI"))
	for idx >= 0 {
		end := l.pos + idx
		if (end == 0 || isPDFSpace(l.data[end-1])) && (end+2 >= len(l.data) || isPDFSpace(l.data[end+2])) {
			l.pos = end + 2
			return
		}
		next := bytes.Index(l.data[end+2:], []byte("EI"))
		if next < 0 {
			break
		}
		idx = end + 2 + next - l.pos
	}
	l.pos = len(l.data)
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '\n':
			// line continuation
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

// pdfText turns a decoded string operand into UTF-8: UTF-16BE when it
// carries a byte order mark, Latin-1 otherwise.
func pdfText(s string) string {
	if len(s) >= 2 && s[0] == 0xFE && s[1] == 0xFF {
		b := []byte(s[2:])
		u := make([]uint16, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	if utf8.ValidString(s) {
		return s
	}
	r := make([]rune, len(s))
	for i := 0; i < len(s); i++ {
		r[i] = rune(s[i])
	}
	return string(r)
}

// textState accumulates lines and font runs while interpreting a page.
type textState struct {
	page  int
	font  string
	size  float64
	lines []string
	line  strings.Builder
	runs  []docmodel.Run
	run   *docmodel.Run
	buf   strings.Builder
	lastY float64
	hasY  bool
}

func (s *textState) show(text string) {
	text = pdfText(text)
	if text == "" {
		return
	}
	if s.run != nil && (s.run.FontName != s.font || *s.run.FontSize != s.size) {
		s.flushRun()
	}
	if s.run == nil {
		s.run = &docmodel.Run{FontName: s.font, FontSize: docmodel.Float(s.size), Page: s.page}
	}
	s.buf.WriteString(text)
	s.line.WriteString(text)
}

func (s *textState) space() {
	if s.line.Len() == 0 {
		return
	}
	if str := s.line.String(); !strings.HasSuffix(str, " ") {
		s.line.WriteByte(' ')
		if s.run != nil {
			s.buf.WriteByte(' ')
		}
	}
}

func (s *textState) flushRun() {
	if s.run != nil {
		if t := strings.TrimSpace(s.buf.String()); t != "" {
			s.run.Text = t
			s.runs = append(s.runs, *s.run)
		}
	}
	s.run = nil
	s.buf.Reset()
}

func (s *textState) newline() {
	s.flushRun()
	if t := strings.TrimSpace(s.line.String()); t != "" {
		s.lines = append(s.lines, t)
	}
	s.line.Reset()
}

// parseContentStream interprets the text operators of one page.
func parseContentStream(data []byte, page int) (string, []docmodel.Run) {
	st := &textState{page: page}
	lex := &pdfLexer{data: data}
	var operands []pdfToken

	num := func(i int) float64 {
		if i < len(operands) && operands[i].kind == pdfNumber {
			return operands[i].num
		}
		return 0
	}
	lastString := func() string {
		for i := len(operands) - 1; i >= 0; i-- {
			if operands[i].kind == pdfString {
				return operands[i].str
			}
		}
		return ""
	}

	for {
		tok, ok := lex.next()
		if !ok {
			break
		}
		if tok.kind != pdfOp {
			operands = append(operands, tok)
			continue
		}
		switch tok.str {
		case "Tf":
			if len(operands) >= 2 && operands[0].kind == pdfName {
				st.font = operands[0].str
				st.size = num(1)
			}
		case "Tj":
			st.show(lastString())
		case "'":
			st.newline()
			st.show(lastString())
		case `"`:
			st.newline()
			st.show(lastString())
		case "TJ":
			if len(operands) > 0 && operands[len(operands)-1].kind == pdfArray {
				for _, el := range operands[len(operands)-1].arr {
					switch el.kind {
					case pdfString:
						st.show(el.str)
					case pdfNumber:
						if el.num < -200 {
							st.space()
						}
					}
				}
			}
		case "Td", "TD":
			if num(1) != 0 {
				st.newline()
			} else {
				st.space()
			}
		case "Tm":
			y := num(5)
			if st.hasY && y != st.lastY {
				st.newline()
			}
			st.lastY, st.hasY = y, true
		case "T*":
			st.newline()
		case "ET":
			st.flushRun()
		}
		operands = operands[:0]
	}
	st.newline()
	return strings.Join(st.lines, "\n"), st.runs
}
