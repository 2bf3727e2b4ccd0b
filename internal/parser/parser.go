// Package parser converts uploaded documents into the flat markdown form the
// notes store keeps. Imported headings become ATX sections, demoted one level
// under the project title and capped at level 3 so every one of them is
// matchable.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Parser converts raw document bytes into a markdown notes document.
type Parser interface {
	Parse(r io.Reader, project string) (string, error)
}

// SupportedExtensions lists file extensions this service can import.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// maxImportLevel caps imported headings so they stay matchable sections.
const maxImportLevel = 3

// builder assembles a markdown document block by block.
type builder struct {
	sb strings.Builder
}

func newBuilder(project string) *builder {
	b := &builder{}
	b.sb.WriteString("# " + strings.TrimSpace(project) + "\n")
	return b
}

// Heading writes an ATX heading, demoted one level under the title and
// clamped to the deepest matchable level.
func (b *builder) Heading(level int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	level++
	if level > maxImportLevel {
		level = maxImportLevel
	}
	b.sb.WriteString("\n" + strings.Repeat("#", level) + " " + text + "\n")
}

// Paragraph writes a block of body text.
func (b *builder) Paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.sb.WriteString("\n" + text + "\n")
}

func (b *builder) String() string {
	return b.sb.String()
}
