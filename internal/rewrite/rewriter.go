// Package rewrite applies an approved classification decision to the
// document. The synthesizer only ever produces a replacement for one section
// body; this package splices it in locally, so every section other than the
// target is byte-identical in the output by construction.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/noteloop/internal/classify"
	"github.com/dgallion1/noteloop/internal/notes"
	"github.com/dgallion1/noteloop/internal/synth"
)

// Outcome is one committed rewrite.
type Outcome struct {
	Content        string // the full new document body
	ChangedHeading string // empty when the change could not be localized
	Action         string // "update" or "create"
}

// Rewriter turns decisions into new document bodies. It never writes
// anything itself; on error the caller keeps the old document untouched.
type Rewriter struct {
	synth synth.Synthesizer
	log   *slog.Logger
}

func New(s synth.Synthesizer, log *slog.Logger) *Rewriter {
	return &Rewriter{synth: s, log: log}
}

// Apply produces the new document for a decision. KindUncertain decisions are
// a caller bug: they must be resolved to update or create first.
func (r *Rewriter) Apply(ctx context.Context, project, content string, decision classify.Decision, chunk, transcriptCtx string) (Outcome, error) {
	switch decision.Kind {
	case classify.KindUpdate:
		sections := notes.Index(content)
		sec := notes.MatchHeading(sections, decision.Heading)
		if sec == nil {
			// The target vanished (reset or rename between classify and
			// apply); fall through to creating a fresh section.
			r.log.Warn("update target not found, creating instead", "project", project, "heading", decision.Heading)
			return r.create(ctx, project, content, chunk, transcriptCtx)
		}
		return r.update(ctx, project, content, *sec, chunk, transcriptCtx)
	case classify.KindCreate:
		return r.create(ctx, project, content, chunk, transcriptCtx)
	default:
		return Outcome{}, fmt.Errorf("cannot apply %s decision", decision.Kind)
	}
}

func (r *Rewriter) update(ctx context.Context, project, content string, sec notes.Section, chunk, transcriptCtx string) (Outcome, error) {
	res, err := r.synth.Synthesize(ctx, synth.ModeUpdate, synth.Request{
		Project:     project,
		Heading:     sec.Heading,
		SectionBody: sec.Body(content),
		Chunk:       chunk,
		Context:     transcriptCtx,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("synthesize update for %q: %w", sec.Heading, err)
	}
	return Outcome{
		Content:        spliceSection(content, sec, res.Body),
		ChangedHeading: sec.Heading,
		Action:         "update",
	}, nil
}

func (r *Rewriter) create(ctx context.Context, project, content, chunk, transcriptCtx string) (Outcome, error) {
	res, err := r.synth.Synthesize(ctx, synth.ModeCreate, synth.Request{
		Project: project,
		Chunk:   chunk,
		Context: transcriptCtx,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("synthesize new section: %w", err)
	}

	newContent := strings.TrimRight(content, "\n") + "\n\n## " + res.Heading + "\n\n" + strings.TrimSpace(res.Body) + "\n"

	changed := res.Heading
	if notes.MatchHeading(notes.Index(content), changed) != nil {
		// The invented heading collides with an existing one; localize by
		// index diff instead, which may come up empty.
		changed = notes.ChangedHeading(content, newContent)
	}
	return Outcome{
		Content:        newContent,
		ChangedHeading: changed,
		Action:         "create",
	}, nil
}

// spliceSection replaces one section's body within content. Everything
// outside [sec.BodyStart, sec.End) is copied through untouched.
func spliceSection(content string, sec notes.Section, body string) string {
	var sb strings.Builder
	sb.WriteString(content[:sec.BodyStart])
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(body))
	sb.WriteString("\n")
	if sec.End < len(content) {
		sb.WriteString("\n")
	}
	sb.WriteString(content[sec.End:])
	return sb.String()
}
