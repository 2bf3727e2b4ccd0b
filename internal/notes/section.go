package notes

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section is a heading-delimited region of a note document. Offsets are byte
// positions into the source content. A section spans from its heading line
// through the last byte before the next heading of level <= its own, so a
// level-2 section's body includes any level-3 subsections under it.
type Section struct {
	Heading   string // trimmed heading label
	Level     int    // 1-3
	Start     int    // offset of the heading line
	BodyStart int    // offset just past the heading line
	End       int    // offset one past the section's last byte
}

// Body returns the section body text within content.
func (s Section) Body(content string) string {
	return content[s.BodyStart:s.End]
}

// Text returns the full section text including the heading line.
func (s Section) Text(content string) string {
	return content[s.Start:s.End]
}

// MaxHeadingLevel is the deepest heading that delimits a section. Deeper
// headings belong to the enclosing section's body.
const MaxHeadingLevel = 3

// Index parses the heading structure of a markdown document. Only ATX
// headings of level 1-3 delimit sections; headings inside fenced code blocks
// are ignored because the goldmark AST never sees them as headings.
func Index(content string) []Section {
	src := []byte(content)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var sections []Section
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > MaxHeadingLevel {
			continue
		}
		if h.Lines().Len() == 0 {
			// Bare "#" line with no label text.
			continue
		}
		seg := h.Lines().At(0)

		start := lineStart(src, seg.Start)
		if !isATXHeading(src, start) {
			// Setext headings are not part of the note format.
			continue
		}

		label := strings.TrimSpace(string(h.Text(src)))
		if label == "" {
			continue
		}

		sections = append(sections, Section{
			Heading:   label,
			Level:     h.Level,
			Start:     start,
			BodyStart: lineEnd(src, seg.Stop),
		})
	}

	// Close each section at the next heading of level <= its own.
	for i := range sections {
		end := len(content)
		for j := i + 1; j < len(sections); j++ {
			if sections[j].Level <= sections[i].Level {
				end = sections[j].Start
				break
			}
		}
		sections[i].End = end
	}

	return sections
}

// Headings returns the ordered heading labels of content.
func Headings(content string) []string {
	sections := Index(content)
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Heading
	}
	return out
}

func lineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

// lineEnd returns the offset just past the newline that terminates the line
// containing pos.
func lineEnd(src []byte, pos int) int {
	for pos < len(src) && src[pos] != '\n' {
		pos++
	}
	if pos < len(src) {
		pos++
	}
	return pos
}

// isATXHeading reports whether the line at offset start opens with 1-3 '#'
// characters followed by whitespace.
func isATXHeading(src []byte, start int) bool {
	i := start
	for i < len(src) && src[i] == '#' {
		i++
	}
	hashes := i - start
	if hashes < 1 || hashes > MaxHeadingLevel {
		return false
	}
	return i < len(src) && (src[i] == ' ' || src[i] == '\t')
}
