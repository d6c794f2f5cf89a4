package attendance

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	dayLinePattern   = regexp.MustCompile(`^(\d{1,2})$`)
	timeRangePattern = regexp.MustCompile(`(\d{1,2}:\d{2})\s*[〜～~\-‐–−]\s*(\d{1,2}:\d{2})`)
)

// ParseLines scans page text line by line. A bare day number between 1 and 31
// becomes the pending day; the next "HH:MM ~ HH:MM" line yields a record for
// that day and clears it. A day number that is never followed by a time range
// produces nothing.
func ParseLines(lines []string, year, month int) []Record {
	var records []Record
	pendingDay := 0

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if match := dayLinePattern.FindStringSubmatch(line); match != nil {
			day, _ := strconv.Atoi(match[1])
			if day >= 1 && day <= 31 {
				pendingDay = day
				continue
			}
		}

		if pendingDay == 0 {
			continue
		}
		if match := timeRangePattern.FindStringSubmatch(line); match != nil {
			records = append(records, Record{
				Date:     fmt.Sprintf("%04d-%02d-%02d", year, month, pendingDay),
				ClockIn:  match[1],
				ClockOut: match[2],
			})
			pendingDay = 0
		}
	}

	return records
}

// ParseText splits rendered page text on newlines and runs ParseLines.
func ParseText(text string, year, month int) []Record {
	return ParseLines(strings.Split(text, "\n"), year, month)
}

// ParseHTML extracts the visible text lines of a rendered page and runs
// ParseLines over them.
func ParseHTML(r io.Reader, year, month int) ([]Record, error) {
	lines, err := ExtractLines(r)
	if err != nil {
		return nil, err
	}
	return ParseLines(lines, year, month), nil
}

// ExtractLines approximates the page's innerText split into lines. Inline
// runs share a line with collapsed whitespace, block elements and <br> break
// lines, and table cells of one row are joined by tabs. Script, style,
// noscript and template contents are skipped.
func ExtractLines(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing attendance page: %w", err)
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	var text textLines
	body.Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			text.walk(node)
		}
	})
	text.flush()
	return text.lines, nil
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "body": true, "caption": true,
	"dd": true, "details": true, "dialog": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "summary": true, "table": true, "tbody": true,
	"tfoot": true, "thead": true, "tr": true, "ul": true,
}

type textLines struct {
	lines   []string
	current strings.Builder
}

func (t *textLines) walk(node *html.Node) {
	switch node.Type {
	case html.TextNode:
		t.appendText(node.Data)
		return
	case html.ElementNode:
		switch node.Data {
		case "script", "style", "noscript", "template", "head":
			return
		case "br":
			t.flush()
			return
		case "td", "th":
			if t.current.Len() > 0 {
				row := strings.TrimRight(t.current.String(), " ")
				t.current.Reset()
				t.current.WriteString(row)
				t.current.WriteByte('\t')
			}
		}
	}

	block := node.Type == html.ElementNode && blockElements[node.Data]
	if block {
		t.flush()
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		t.walk(child)
	}
	if block {
		t.flush()
	}
}

// appendText collapses whitespace runs to single spaces as rendering does.
func (t *textLines) appendText(data string) {
	fields := strings.Fields(data)
	if len(fields) == 0 {
		if data != "" && t.current.Len() > 0 && !t.endsWithSpace() {
			t.current.WriteByte(' ')
		}
		return
	}
	leading := strings.TrimLeftFunc(data, unicode.IsSpace) != data
	trailing := strings.TrimRightFunc(data, unicode.IsSpace) != data
	if leading && t.current.Len() > 0 && !t.endsWithSpace() {
		t.current.WriteByte(' ')
	}
	t.current.WriteString(strings.Join(fields, " "))
	if trailing {
		t.current.WriteByte(' ')
	}
}

func (t *textLines) endsWithSpace() bool {
	s := t.current.String()
	return strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\t")
}

func (t *textLines) flush() {
	line := strings.TrimSpace(t.current.String())
	t.current.Reset()
	if line != "" {
		t.lines = append(t.lines, line)
	}
}
