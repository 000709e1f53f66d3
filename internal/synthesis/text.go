package synthesis

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripOnce   sync.Once
	stripPolicy *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	stripOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

// blockTagRe matches tags that end a line of rendered text.
var blockTagRe = regexp.MustCompile(`(?i)<\s*(?:br|/?p|/?div|/?li|/?ul|/?ol|/?h[1-6]|/?tr|/?table|/?blockquote|/?pre)\b[^>]*>`)

// CleanLines strips markup from an article body and returns its non-empty
// lines with whitespace collapsed inside each line.
func CleanLines(s string) []string {
	if s == "" {
		return nil
	}
	s = blockTagRe.ReplaceAllString(s, "\n")
	s = html.UnescapeString(policy().Sanitize(s))

	raw := strings.Split(s, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// CleanText is CleanLines joined into a single line.
func CleanText(s string) string {
	return strings.Join(CleanLines(s), " ")
}

// truncate cuts s to max runes and marks the cut with an ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
