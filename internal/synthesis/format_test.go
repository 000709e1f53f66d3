package synthesis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBareAnswer(t *testing.T) {
	assert.Equal(t, "Just the answer.", Format(Answer{Answer: "Just the answer."}))
	assert.Equal(t, "x", Format(Answer{Answer: "x", Sources: []Source{}, RelatedTopics: []string{}, Followups: []string{}}))
}

func TestFormatAllSections(t *testing.T) {
	out := Format(Answer{
		Answer:        "Based on our knowledge base:\n\nBody.",
		Procedures:    []string{"Open the portal", "Submit"},
		Sources:       []Source{{Title: "Employee Vacation Policy", Link: testInstance + "/kb_view.do?sysparm_article=KB001", Relevance: 100}},
		RelatedTopics: []string{"HR", "Policies"},
		Followups:     []string{"How do I request emergency time off?"},
	})

	want := "Based on our knowledge base:\n\nBody." +
		"\n\n**Step-by-step procedure:**\n1. Open the portal\n2. Submit\n" +
		"\n\n**Source articles for reference:**\n• [Employee Vacation Policy](" + testInstance + "/kb_view.do?sysparm_article=KB001)\n" +
		"\n\n**Related topics:** HR, Policies" +
		"\n\n**You might also want to ask:**\n• How do I request emergency time off?\n"
	assert.Equal(t, want, out)
}

func TestFormatSynthesized(t *testing.T) {
	out := Format(Synthesize(sampleResult("vacation policy"), "vacation policy"))

	assert.Contains(t, out, "Based on our knowledge base")
	assert.Contains(t, out, "**Source articles for reference:**")
	assert.Contains(t, out, "**Related topics:**")
	assert.Contains(t, out, "**You might also want to ask:**")
	assert.Contains(t, out, "[Employee Vacation Policy]")
	assert.Contains(t, out, "("+testInstance+"/")

	iSources := strings.Index(out, "**Source articles")
	iTopics := strings.Index(out, "**Related topics")
	iAsk := strings.Index(out, "**You might also")
	assert.Less(t, iSources, iTopics)
	assert.Less(t, iTopics, iAsk)
}
