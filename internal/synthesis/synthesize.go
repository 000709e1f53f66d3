// Package synthesis turns a ranked set of knowledge articles into one
// answer: a narrative drawn from the best matches, extracted procedure
// steps, cited sources, follow-up questions and a confidence estimate.
package synthesis

import (
	"math"
	"regexp"
	"strings"

	"github.com/mycelian/servicenow-mcp/client"
)

const (
	answerPrefix        = "Based on our knowledge base:\n\n"
	additionalInfoLabel = "\n\nAdditional Information:\n"

	// NoResultsAnswer is returned when a search finds nothing.
	NoResultsAnswer = "I couldn't find information about this in our knowledge base. " +
		"Try rephrasing your question, or submit a request for personalized assistance."

	minParagraphLen    = 20
	maxParagraphLen    = 500
	supportingArticles = 2
	procedureArticles  = 2
	maxSteps           = 10
	maxSources         = 5
	maxRelated         = 5
	maxTopicFollowups  = 3
	maxFollowups       = 5
	redundancyCutoff   = 0.7
)

// Source cites one article used for an answer.
type Source struct {
	Title     string  `json:"title"`
	Link      string  `json:"link"`
	Relevance float64 `json:"relevance_score"`
}

// Answer is the synthesized response to one search.
type Answer struct {
	Answer        string   `json:"answer"`
	Sources       []Source `json:"source_articles"`
	RelatedTopics []string `json:"related_topics"`
	Procedures    []string `json:"step_by_step_procedures,omitempty"`
	Followups     []string `json:"followup_suggestions"`
	Confidence    float64  `json:"confidence_score"`
}

var noResultsFollowups = []string{
	"Submit a request for personalized assistance",
	"Try searching with different keywords",
	"Contact your IT support team",
}

var genericFollowups = []string{
	"Contact HR for personalized assistance",
	"Browse related knowledge articles",
	"Submit a detailed support request",
}

// followupSets are tried in order; the first whose keywords appear in the
// query contributes its questions.
var followupSets = []struct {
	keywords  []string
	questions []string
}{
	{
		keywords: []string{"vacation", "time off", "leave"},
		questions: []string{
			"What if I'm taking vacation during a company holiday?",
			"How do I request emergency time off?",
			"What's the vacation approval process?",
		},
	},
	{
		keywords: []string{"expense", "reimbursement", "receipt"},
		questions: []string{
			"What expenses are reimbursable?",
			"How long does expense approval take?",
			"What documentation do I need for expenses?",
		},
	},
	{
		keywords: []string{"benefits", "enrollment", "insurance"},
		questions: []string{
			"When is open enrollment?",
			"How do I change my benefits?",
			"What benefits am I eligible for?",
		},
	},
	{
		keywords: []string{"password", "login", "access"},
		questions: []string{
			"How do I reset my password?",
			"What if I'm locked out of my account?",
			"How do I set up two-factor authentication?",
		},
	},
}

var (
	numberedStepRe = regexp.MustCompile(`^\s*\d+[.)]\s*(\S.*)$`)

	procedureKeywords = []string{"step", "first", "then", "next", "finally", "procedure", "process", "follow", "instructions", "guide"}
	actionVerbs       = []string{"click", "navigate", "select", "enter", "submit", "open", "go to", "access", "login", "fill", "choose", "complete"}
	bulletMarkers     = []string{"-", "*", "•"}
)

// Synthesize builds an Answer for query from result.
func Synthesize(result *client.SearchResult, query string) Answer {
	if result == nil || len(result.Articles) == 0 {
		return Answer{
			Answer:        NoResultsAnswer,
			Sources:       []Source{},
			RelatedTopics: []string{},
			Followups:     append([]string(nil), noResultsFollowups...),
			Confidence:    0,
		}
	}

	ranked := Rank(result.Articles, query)

	related := result.RelatedTopics
	if len(related) > maxRelated {
		related = related[:maxRelated]
	}
	related = append([]string{}, related...)

	return Answer{
		Answer:        composeAnswer(ranked),
		Sources:       sources(ranked),
		RelatedTopics: related,
		Procedures:    extractProcedures(ranked),
		Followups:     followups(related, query),
		Confidence:    confidence(ranked),
	}
}

func composeAnswer(ranked []Ranked) string {
	top := ranked[0].Article
	primary := keyInformation(top.Body)
	if primary == "" {
		primary = strings.TrimSpace(top.Title)
	}

	var sb strings.Builder
	sb.WriteString(answerPrefix)
	sb.WriteString(primary)

	end := min(len(ranked), 1+supportingArticles)
	for _, r := range ranked[1:end] {
		info := keyInformation(r.Article.Body)
		if info == "" || IsRedundant(sb.String(), info) {
			continue
		}
		sb.WriteString(additionalInfoLabel)
		sb.WriteString(info)
	}
	return sb.String()
}

// keyInformation returns the first paragraph longer than 20 characters,
// or the whole cleaned text when no paragraph qualifies.
func keyInformation(body string) string {
	lines := CleanLines(body)
	for _, l := range lines {
		if len([]rune(l)) > minParagraphLen {
			return truncate(l, maxParagraphLen)
		}
	}
	return truncate(strings.Join(lines, " "), maxParagraphLen)
}

// IsRedundant reports whether more than 70% of candidate's words already
// appear in existing. An empty candidate is redundant.
func IsRedundant(existing, candidate string) bool {
	have := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(existing)) {
		have[w] = struct{}{}
	}
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(candidate)) {
		words[w] = struct{}{}
	}
	if len(words) == 0 {
		return true
	}
	shared := 0
	for w := range words {
		if _, ok := have[w]; ok {
			shared++
		}
	}
	return float64(shared)/float64(len(words)) > redundancyCutoff
}

func extractProcedures(ranked []Ranked) []string {
	end := min(len(ranked), procedureArticles)
	for _, r := range ranked[:end] {
		if steps := findSteps(r.Article.Body); len(steps) > 0 {
			return steps
		}
	}
	return nil
}

// findSteps prefers explicitly numbered lines. Failing that it collects
// bulleted lines that talk about a procedure and lines that open with an
// action verb. Fewer than two hits is not a procedure.
func findSteps(body string) []string {
	lines := CleanLines(body)

	var numbered []string
	for _, l := range lines {
		if m := numberedStepRe.FindStringSubmatch(l); m != nil {
			numbered = append(numbered, strings.TrimSpace(m[1]))
		}
	}
	if len(numbered) >= 2 {
		return capSteps(numbered)
	}

	var steps []string
	for _, l := range lines {
		lower := strings.ToLower(l)
		if (hasBullet(lower) && containsAny(lower, procedureKeywords)) || hasPrefixAny(lower, actionVerbs) {
			steps = append(steps, l)
		}
	}
	if len(steps) >= 2 {
		return capSteps(steps)
	}
	return nil
}

func capSteps(steps []string) []string {
	if len(steps) > maxSteps {
		return steps[:maxSteps]
	}
	return steps
}

func hasBullet(l string) bool {
	return hasPrefixAny(l, bulletMarkers)
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func sources(ranked []Ranked) []Source {
	end := min(len(ranked), maxSources)
	out := make([]Source, 0, end)
	for _, r := range ranked[:end] {
		out = append(out, Source{Title: r.Article.Title, Link: r.Article.Link, Relevance: r.Score})
	}
	return out
}

func followups(related []string, query string) []string {
	var out []string
	for _, t := range related {
		if len(out) >= maxTopicFollowups {
			break
		}
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, "Learn more about "+t)
		}
	}

	q := strings.ToLower(query)
	for _, set := range followupSets {
		if containsAny(q, set.keywords) {
			out = append(out, set.questions...)
			break
		}
	}
	if len(out) < 3 {
		out = append(out, genericFollowups...)
	}
	return dedupeCap(out, maxFollowups)
}

func dedupeCap(items []string, n int) []string {
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, len(items))
	for _, s := range items {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

// confidence blends result volume, the top score and article usage.
func confidence(ranked []Ranked) float64 {
	if len(ranked) == 0 {
		return 0
	}
	volume := math.Min(float64(len(ranked))/5.0, 1.0)
	top := ranked[0].Score / maxScore

	n := min(len(ranked), 3)
	quality := 0.0
	for _, r := range ranked[:n] {
		quality += math.Min((float64(r.Article.ViewCount)*0.01+float64(r.Article.HelpfulCount)*0.1)/10.0, 1.0)
	}
	quality /= float64(n)

	c := 0.4*volume + 0.4*top + 0.2*quality
	return math.Max(0, math.Min(c, 1))
}
