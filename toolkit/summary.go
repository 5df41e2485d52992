package toolkit

import (
	"fmt"
	"html"
	"os"
	"strings"
)

// SummaryLimitBytes is the maximum step summary size accepted by the runner.
const SummaryLimitBytes = 1 << 20

// Summary accumulates GitHub-flavored markdown destined for the
// GITHUB_STEP_SUMMARY command file.
type Summary struct {
	buf strings.Builder
}

// NewSummary returns an empty summary builder.
func NewSummary() *Summary {
	return &Summary{}
}

// AddRaw appends text verbatim.
func (s *Summary) AddRaw(text string) *Summary {
	s.buf.WriteString(text)
	return s
}

// AddEOL appends a newline.
func (s *Summary) AddEOL() *Summary {
	s.buf.WriteString("\n")
	return s
}

// AddHeading appends an <h1>..<h6> heading; out-of-range levels clamp to h1.
func (s *Summary) AddHeading(text string, level int) *Summary {
	if level < 1 || level > 6 {
		level = 1
	}
	tag := fmt.Sprintf("h%d", level)
	return s.addBlock("<" + tag + ">" + html.EscapeString(text) + "</" + tag + ">")
}

// AddCodeBlock appends a fenced code block with an optional language hint.
func (s *Summary) AddCodeBlock(code, lang string) *Summary {
	attr := ""
	if lang != "" {
		attr = fmt.Sprintf(" lang=%q", lang)
	}
	return s.addBlock("<pre" + attr + "><code>" + html.EscapeString(code) + "</code></pre>")
}

// AddList appends an ordered or unordered list.
func (s *Summary) AddList(items []string, ordered bool) *Summary {
	tag := "ul"
	if ordered {
		tag = "ol"
	}
	var b strings.Builder
	b.WriteString("<" + tag + ">")
	for _, item := range items {
		b.WriteString("<li>" + html.EscapeString(item) + "</li>")
	}
	b.WriteString("</" + tag + ">")
	return s.addBlock(b.String())
}

// SummaryTableCell is one cell of a summary table.
type SummaryTableCell struct {
	Text    string
	Header  bool
	Colspan int
	Rowspan int
}

// AddTable appends a table built from rows of cells.
func (s *Summary) AddTable(rows [][]SummaryTableCell) *Summary {
	var b strings.Builder
	b.WriteString("<table>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			tag := "td"
			if cell.Header {
				tag = "th"
			}
			b.WriteString("<" + tag)
			if cell.Colspan > 1 {
				fmt.Fprintf(&b, " colspan=%q", fmt.Sprintf("%d", cell.Colspan))
			}
			if cell.Rowspan > 1 {
				fmt.Fprintf(&b, " rowspan=%q", fmt.Sprintf("%d", cell.Rowspan))
			}
			b.WriteString(">" + html.EscapeString(cell.Text) + "</" + tag + ">")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return s.addBlock(b.String())
}

// AddLink appends a hyperlink.
func (s *Summary) AddLink(text, href string) *Summary {
	return s.addBlock(fmt.Sprintf("<a href=%q>%s</a>", href, html.EscapeString(text)))
}

// AddQuote appends a block quote.
func (s *Summary) AddQuote(text string) *Summary {
	return s.addBlock("<blockquote>" + html.EscapeString(text) + "</blockquote>")
}

// AddSeparator appends a horizontal rule.
func (s *Summary) AddSeparator() *Summary {
	return s.addBlock("<hr>")
}

// AddDetails appends a collapsible details block.
func (s *Summary) AddDetails(label, content string) *Summary {
	return s.addBlock("<details><summary>" + html.EscapeString(label) + "</summary>" + html.EscapeString(content) + "</details>")
}

func (s *Summary) addBlock(block string) *Summary {
	s.buf.WriteString(block)
	return s.AddEOL()
}

// String returns the accumulated markdown.
func (s *Summary) String() string {
	return s.buf.String()
}

// Len reports the accumulated size in bytes.
func (s *Summary) Len() int {
	return s.buf.Len()
}

// Reset discards the accumulated content.
func (s *Summary) Reset() {
	s.buf.Reset()
}

// Write flushes the summary to the GITHUB_STEP_SUMMARY file. When overwrite
// is false the content is appended. The buffer is reset on success.
func (s *Summary) Write(ctx *Context, overwrite bool) error {
	path := ctx.Env("GITHUB_STEP_SUMMARY")
	if path == "" {
		return fmt.Errorf("%w: GITHUB_STEP_SUMMARY", ErrFileCommandUnset)
	}
	if s.Len() > SummaryLimitBytes {
		return fmt.Errorf("toolkit: summary exceeds %d bytes", SummaryLimitBytes)
	}
	flags := os.O_CREATE | os.O_WRONLY
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("toolkit: open summary file %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(s.String()); err != nil {
		return fmt.Errorf("toolkit: write summary file %s: %w", path, err)
	}
	s.Reset()
	return nil
}
