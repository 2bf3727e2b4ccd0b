package notes

import "strings"

// MatchHeading resolves a heading name against the index: exact match first,
// then prefix, then substring. Within each pass the first section in document
// order wins; duplicate headings therefore resolve to their first occurrence.
// Returns nil when nothing matches.
func MatchHeading(sections []Section, name string) *Section {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for i := range sections {
		if sections[i].Heading == name {
			return &sections[i]
		}
	}
	for i := range sections {
		if strings.HasPrefix(sections[i].Heading, name) || strings.HasPrefix(name, sections[i].Heading) {
			return &sections[i]
		}
	}
	for i := range sections {
		if strings.Contains(sections[i].Heading, name) || strings.Contains(name, sections[i].Heading) {
			return &sections[i]
		}
	}
	return nil
}

// ChangedHeading reports the first heading present in newContent but absent
// from oldContent. Empty string means the change could not be localized.
func ChangedHeading(oldContent, newContent string) string {
	old := make(map[string]bool)
	for _, h := range Headings(oldContent) {
		old[h] = true
	}
	for _, h := range Headings(newContent) {
		if !old[h] {
			return h
		}
	}
	return ""
}
