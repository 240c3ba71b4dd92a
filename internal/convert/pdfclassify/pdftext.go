package pdfclassify

import (
	"bytes"
	"compress/zlib"
	"io"
	"os"
	"regexp"
)

// StdlibPageTextExtractor implements PageTextExtractor without a
// third-party PDF library: none of the example repos import one, so
// this walks the raw PDF object structure itself (FlateDecode content
// streams, Tj/TJ text-showing operators) rather than reach for a
// dependency the corpus never demonstrates. It approximates one page
// per content stream, which holds for the single-content-stream PDFs
// pdf_processor.py's own analyzer was built against; a page drawn from
// several content streams is counted as several pages.
type StdlibPageTextExtractor struct{}

func NewStdlibPageTextExtractor() *StdlibPageTextExtractor {
	return &StdlibPageTextExtractor{}
}

var (
	streamRe  = regexp.MustCompile(`(?s)<<(.*?)>>\s*stream\r?\n(.*?)\r?\nendstream`)
	encryptRe = regexp.MustCompile(`/Encrypt\s+\d+\s+\d+\s+R`)
	tjRe      = regexp.MustCompile(`(?s)\((?:[^()\\]|\\.)*\)\s*Tj`)
	tjArrayRe = regexp.MustCompile(`(?s)\[(?:[^\[\]]*)\]\s*TJ`)
	litStrRe  = regexp.MustCompile(`(?s)\((?:[^()\\]|\\.)*\)`)
)

func (e *StdlibPageTextExtractor) PageTexts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if encryptRe.Match(data) {
		return nil, &PasswordProtectedError{Path: path}
	}

	var pages []string
	for _, m := range streamRe.FindAllSubmatch(data, -1) {
		dict, raw := m[1], m[2]
		content := raw
		if bytes.Contains(dict, []byte("FlateDecode")) {
			if inflated, ok := inflate(raw); ok {
				content = inflated
			}
		}
		if !looksLikeContentStream(content) {
			continue
		}
		pages = append(pages, extractText(content))
	}
	return pages, nil
}

func inflate(data []byte) ([]byte, bool) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return nil, false
	}
	return out, true
}

func looksLikeContentStream(content []byte) bool {
	return bytes.Contains(content, []byte("BT")) && bytes.Contains(content, []byte("ET"))
}

func extractText(content []byte) string {
	var out bytes.Buffer
	for _, tj := range tjRe.FindAll(content, -1) {
		out.Write(unescapeLiteral(litStrRe.Find(tj)))
		out.WriteByte(' ')
	}
	for _, arr := range tjArrayRe.FindAll(content, -1) {
		for _, lit := range litStrRe.FindAll(arr, -1) {
			out.Write(unescapeLiteral(lit))
		}
		out.WriteByte(' ')
	}
	return out.String()
}

func unescapeLiteral(lit []byte) []byte {
	if len(lit) < 2 {
		return nil
	}
	inner := lit[1 : len(lit)-1]
	var out bytes.Buffer
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			switch inner[i+1] {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case '(', ')', '\\':
				out.WriteByte(inner[i+1])
			default:
				out.WriteByte(inner[i+1])
			}
			i++
			continue
		}
		out.WriteByte(inner[i])
	}
	return out.Bytes()
}
