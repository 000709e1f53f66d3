package synthesis

import (
	"strconv"
	"strings"
)

// Format renders an Answer as markdown-flavored text. Sections with no
// content are left out entirely.
func Format(a Answer) string {
	var sb strings.Builder
	sb.WriteString(a.Answer)

	if len(a.Procedures) > 0 {
		sb.WriteString("\n\n**Step-by-step procedure:**\n")
		for i, step := range a.Procedures {
			sb.WriteString(strconv.Itoa(i + 1))
			sb.WriteString(". ")
			sb.WriteString(step)
			sb.WriteString("\n")
		}
	}

	if len(a.Sources) > 0 {
		sb.WriteString("\n\n**Source articles for reference:**\n")
		for _, s := range a.Sources {
			sb.WriteString("• [")
			sb.WriteString(s.Title)
			sb.WriteString("](")
			sb.WriteString(s.Link)
			sb.WriteString(")\n")
		}
	}

	if len(a.RelatedTopics) > 0 {
		sb.WriteString("\n\n**Related topics:** ")
		sb.WriteString(strings.Join(a.RelatedTopics, ", "))
	}

	if len(a.Followups) > 0 {
		sb.WriteString("\n\n**You might also want to ask:**\n")
		for _, f := range a.Followups {
			sb.WriteString("• ")
			sb.WriteString(f)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
