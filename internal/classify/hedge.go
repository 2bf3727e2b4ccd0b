package classify

import (
	"regexp"
	"strings"
)

// hedgePattern pairs a compiled retraction/hedge pattern with the reason
// reported on the resulting pending update.
type hedgePattern struct {
	re     *regexp.Regexp
	reason string
}

var hedgePatterns = []hedgePattern{
	{regexp.MustCompile(`\bwait\b.*\bno\b`), "speaker said 'wait, no' - unclear if deleting or pausing"},
	{regexp.MustCompile(`\bactually\b.*\bwait\b`), "speaker said 'actually wait' - intent unclear"},
	{regexp.MustCompile(`\bhmm+\b`), "speaker is thinking or hesitating"},
	{regexp.MustCompile(`\buh+\b.*\blet me\b`), "speaker is reconsidering"},
	{regexp.MustCompile(`\bscratch that\b`), "speaker wants to undo but scope is unclear"},
	{regexp.MustCompile(`\bnevermind\b`), "speaker cancelled but it is unclear what"},
	{regexp.MustCompile(`\bforget\s+(what\s+)?i\s+said\b`), "speaker wants to retract but scope is unclear"},
	{regexp.MustCompile(`\bmaybe\b`), "speaker hedged with 'maybe'"},
	{regexp.MustCompile(`\bpossibly\b`), "speaker hedged with 'possibly'"},
}

// DetectHedge reports whether chunk text contains retraction or hedge
// language, and why. A hedged chunk must never auto-commit a rewrite.
func DetectHedge(text string) (bool, string) {
	lower := strings.ToLower(text)
	for _, p := range hedgePatterns {
		if p.re.MatchString(lower) {
			return true, p.reason
		}
	}
	return false, ""
}
