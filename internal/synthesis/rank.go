package synthesis

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mycelian/servicenow-mcp/client"
)

const (
	titlePhrasePoints = 100.0
	bodyPhrasePoints  = 50.0
	titleTokenPoints  = 20.0
	bodyTokenPoints   = 10.0
	viewScale         = 0.1
	viewCap           = 20.0
	helpfulScale      = 2.0
	helpfulCap        = 30.0
	maxScore          = 100.0
)

// Ranked pairs an article with its relevance score.
type Ranked struct {
	Article client.Article
	Score   float64
}

// Score rates how well a matches query, in [0,100]. Matching is lexical
// and case-insensitive; usage counters add a bounded bonus.
func Score(a client.Article, query string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	title := strings.ToLower(a.Title)
	body := strings.ToLower(CleanText(a.Body))

	s := 0.0
	if q != "" {
		if strings.Contains(title, q) {
			s += titlePhrasePoints
		}
		if strings.Contains(body, q) {
			s += bodyPhrasePoints
		}
		for _, tok := range strings.Fields(q) {
			if utf8.RuneCountInString(tok) <= 2 {
				continue
			}
			if strings.Contains(title, tok) {
				s += titleTokenPoints
			}
			if strings.Contains(body, tok) {
				s += bodyTokenPoints
			}
		}
	}
	s += math.Min(float64(a.ViewCount)*viewScale, viewCap)
	s += math.Min(float64(a.HelpfulCount)*helpfulScale, helpfulCap)

	return math.Max(0, math.Min(s, maxScore))
}

// Rank scores every article and orders them by descending score. Equal
// scores keep their input order.
func Rank(articles []client.Article, query string) []Ranked {
	out := make([]Ranked, len(articles))
	for i, a := range articles {
		out[i] = Ranked{Article: a, Score: Score(a, query)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
