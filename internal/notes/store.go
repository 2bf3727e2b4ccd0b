package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store keeps one flat markdown file per project under a data directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// InitialContent is the seed document for a fresh project.
func InitialContent(project string) string {
	return fmt.Sprintf("# %s\n\n", project)
}

// Slugify converts a project name to a filesystem- and URL-safe slug.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "default"
	}
	return slug
}

// Path returns the notes file path for a project.
func (s *Store) Path(project string) string {
	return filepath.Join(s.dir, Slugify(project)+".md")
}

// Ensure creates the data directory and the project file if missing.
func (s *Store) Ensure(project string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	path := s.Path(project)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat notes file: %w", err)
	}
	if err := os.WriteFile(path, []byte(InitialContent(project)), 0o644); err != nil {
		return fmt.Errorf("create notes file: %w", err)
	}
	return nil
}

// Read returns the current document body, creating the file if needed.
func (s *Store) Read(project string) (string, error) {
	if err := s.Ensure(project); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.Path(project))
	if err != nil {
		return "", fmt.Errorf("read notes file: %w", err)
	}
	return string(data), nil
}

// Write replaces the document body.
func (s *Store) Write(project, content string) error {
	if err := s.Ensure(project); err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(project), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write notes file: %w", err)
	}
	return nil
}

// Reset restores the project file to its initial content and returns it.
func (s *Store) Reset(project string) (string, error) {
	content := InitialContent(project)
	if err := s.Write(project, content); err != nil {
		return "", err
	}
	return content, nil
}
