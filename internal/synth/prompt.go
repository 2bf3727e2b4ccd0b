package synth

import (
	"fmt"
	"strings"
)

const updatePromptHeader = `You are the rewrite engine of a live note-taking tool. You rewrite ONE section of a markdown notes file to incorporate a new spoken remark.

Rules:
- Integrate new detail into existing bullet points or add new ones.
- If the speaker corrected an earlier value, keep the old value struck through (~~old~~) immediately followed by the correction, so the history of corrections stays visible.
- Keep it concise. Bullet points, no redundant information.
- Do not invent content the speaker did not say.

Respond with ONLY a JSON object {"heading": "<the section heading, unchanged>", "body": "<the rewritten section body in markdown, without the heading line>"}. No other text, no code fences.`

const createPromptHeader = `You are the rewrite engine of a live note-taking tool. The speaker has started a NEW topic; synthesize a new section for the notes file.

Rules:
- Invent a short, punchy heading (3-5 words).
- Convert the remark into concise bullet points.
- Do not invent content the speaker did not say.

Respond with ONLY a JSON object {"heading": "<new section heading>", "body": "<the section body in markdown, without the heading line>"}. No other text, no code fences.`

// maxPromptTokens caps the section body and context we send; chunks are short
// but a long-lived section can grow without bound.
const maxPromptTokens = 6000

// BuildPrompt renders the synthesis prompt for a request.
func BuildPrompt(mode Mode, req Request) string {
	var sb strings.Builder
	if mode == ModeCreate {
		sb.WriteString(createPromptHeader)
	} else {
		sb.WriteString(updatePromptHeader)
	}
	sb.WriteString("\n\n---\n")
	sb.WriteString(fmt.Sprintf("Project: %q\n", req.Project))
	if mode == ModeUpdate {
		sb.WriteString(fmt.Sprintf("Target section: %q\n", req.Heading))
		sb.WriteString("Current section body:\n")
		sb.WriteString(capTokens(req.SectionBody, maxPromptTokens))
		sb.WriteString("\n")
	}
	if req.Context != "" {
		sb.WriteString("Recent transcript (for continuity):\n")
		sb.WriteString(capTokens(req.Context, maxPromptTokens/4))
		sb.WriteString("\n")
	}
	sb.WriteString("---\n")
	sb.WriteString("New remark:\n")
	sb.WriteString(req.Chunk)
	return sb.String()
}

// EstimateTokens gives a rough token count using a words-based heuristic.
// Exact tokenization is not required for prompt budgeting.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// capTokens truncates text to roughly limit tokens, keeping the tail, since
// the most recent content matters most in a running note section.
func capTokens(text string, limit int) string {
	if EstimateTokens(text) <= limit {
		return text
	}
	words := strings.Fields(text)
	keep := int(float64(limit) / 1.33)
	if keep >= len(words) {
		return text
	}
	return "..." + strings.Join(words[len(words)-keep:], " ")
}
