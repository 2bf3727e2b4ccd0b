package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/noteloop/internal/notes"
)

// MarkdownParser passes markdown through mostly untouched. It only ensures
// the document opens with a level-1 title, since that is what the section
// index treats as the document heading.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, project string) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read markdown: %w", err)
	}

	content := strings.TrimSpace(string(src))
	if content == "" {
		return notes.InitialContent(project), nil
	}

	sections := notes.Index(content)
	if len(sections) > 0 && sections[0].Level == 1 && sections[0].Start == 0 {
		return content + "\n", nil
	}
	return "# " + strings.TrimSpace(project) + "\n\n" + content + "\n", nil
}
