package synth

import (
	"context"
	"strings"
)

// Fallback is a deterministic synthesizer used when no API key is configured.
// It appends the chunk as a bullet instead of rewriting prose, which keeps
// the service usable offline and in tests.
type Fallback struct{}

func (Fallback) Synthesize(_ context.Context, mode Mode, req Request) (Result, error) {
	switch mode {
	case ModeCreate:
		return Result{
			Heading: headingFromChunk(req.Chunk),
			Body:    "- " + strings.TrimSpace(req.Chunk),
		}, nil
	default:
		body := strings.TrimRight(req.SectionBody, "\n")
		if body != "" {
			body += "\n"
		}
		return Result{
			Heading: req.Heading,
			Body:    body + "- " + strings.TrimSpace(req.Chunk),
		}, nil
	}
}

// headingFromChunk titles a new section from the chunk's first few words.
func headingFromChunk(chunk string) string {
	words := strings.Fields(chunk)
	if len(words) > 4 {
		words = words[:4]
	}
	if len(words) == 0 {
		return "New Topic"
	}
	for i, w := range words {
		words[i] = capitalize(strings.Trim(w, ".,!?;:"))
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
