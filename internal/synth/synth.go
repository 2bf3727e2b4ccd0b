// Package synth turns a transcript chunk plus an optional existing section
// body into a replacement section. The service contract is section-level on
// purpose: the caller splices the result into the document, so a synthesis
// call can never touch any other section.
package synth

import "context"

// Mode selects between rewriting an existing section and creating a new one.
type Mode string

const (
	ModeUpdate Mode = "update"
	ModeCreate Mode = "create"
)

// Request carries one synthesis call.
type Request struct {
	Project     string
	Heading     string // target section heading; empty for ModeCreate
	SectionBody string // current section body; empty for ModeCreate
	Chunk       string // the new transcript chunk
	Context     string // recent transcript tail for continuity, may be empty
}

// Result is the synthesized replacement. Body is markdown without the heading
// line. For ModeCreate, Heading is the freshly invented section heading; for
// ModeUpdate it echoes the target.
type Result struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Synthesizer is the rewrite/synthesis collaborator.
type Synthesizer interface {
	Synthesize(ctx context.Context, mode Mode, req Request) (Result, error)
}
