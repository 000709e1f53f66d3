package client

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
	"github.com/mycelian/servicenow-mcp/internal/session"
)

const (
	DefaultLimit     = 10
	MaxLimit         = 50
	maxRelatedTopics = 10
)

// SearchRequest describes one knowledge search.
type SearchRequest struct {
	Query  string
	UserID string
	Limit  int
	Kind   SearchKind
}

// SearchResult is the role-filtered outcome of a search.
type SearchResult struct {
	Articles      []Article `json:"articles"`
	TotalCount    int       `json:"total_count"`
	Query         string    `json:"query"`
	RelatedTopics []string  `json:"related_topics"`
}

func (r SearchRequest) validate() (SearchRequest, error) {
	if strings.TrimSpace(r.UserID) == "" {
		return r, kberrors.NewValidationError("user_id", "is required")
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return r, kberrors.NewValidationError("limit", "must be between 1 and 50")
	}
	if r.Kind == "" {
		r.Kind = SearchContent
	}
	if _, err := ParseSearchKind(string(r.Kind)); err != nil {
		return r, err
	}
	return r, nil
}

// Search runs a role-scoped search for req.UserID. Identifier searches are
// point lookups and return at most one article.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	req, err := req.validate()
	if err != nil {
		return nil, err
	}
	sess, err := c.sessions.ResolveSession(req.UserID)
	if err != nil {
		return nil, err
	}

	if req.Kind == SearchSysID {
		result := &SearchResult{Query: req.Query, Articles: []Article{}, RelatedTopics: []string{}}
		a, err := c.fetch(ctx, sess, strings.TrimSpace(req.Query))
		if err != nil {
			return nil, err
		}
		if a != nil {
			result.Articles = append(result.Articles, *a)
			result.TotalCount = 1
			result.RelatedTopics = relatedTopics(result.Articles)
		}
		return result, nil
	}

	start := time.Now()
	filter := c.filters.Build(req.Query, sess, req.Kind)
	params := map[string]string{
		"sysparm_query":         filter,
		"sysparm_limit":         strconv.Itoa(req.Limit),
		"sysparm_fields":        fieldProjection,
		"sysparm_display_value": "true",
	}

	resp, err := c.get(ctx, "search", sess, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(params).Get(tablePath)
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Result []json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, kberrors.NewDecodeError("search", resp.StatusCode(), resp.String(), err)
	}

	articles := make([]Article, 0, len(body.Result))
	hidden := 0
	for i, raw := range body.Result {
		a, err := parseRecord(raw, c.instanceURL)
		if err != nil {
			recordsSkippedTotal.Inc()
			log.Warn().Err(err).Int("index", i).Msg("Skipping malformed knowledge record")
			continue
		}
		if !a.ReadableBy(sess.Roles) {
			hidden++
			continue
		}
		articles = append(articles, a)
	}

	log.Debug().
		Str("user_id", sess.UserID).
		Str("kind", string(req.Kind)).
		Str("filter", filter).
		Int("returned", len(body.Result)).
		Int("kept", len(articles)).
		Int("hidden", hidden).
		Dur("elapsed", time.Since(start)).
		Msg("Knowledge search complete")

	return &SearchResult{
		Articles:      articles,
		TotalCount:    len(articles),
		Query:         req.Query,
		RelatedTopics: relatedTopics(articles),
	}, nil
}

// FetchByID returns the article with sys_id id, or nil when it does not
// exist or the caller's roles do not allow reading it.
func (c *Client) FetchByID(ctx context.Context, id, userID string) (*Article, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, kberrors.NewValidationError("article_id", "is required")
	}
	sess, err := c.sessions.ResolveSession(userID)
	if err != nil {
		return nil, err
	}
	return c.fetch(ctx, sess, id)
}

func (c *Client) fetch(ctx context.Context, sess session.Session, id string) (*Article, error) {
	if id == "" {
		return nil, nil
	}
	resp, err := c.get(ctx, "fetch", sess, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetPathParam("sys_id", id).
			SetQueryParams(map[string]string{
				"sysparm_fields":        fieldProjection,
				"sysparm_display_value": "true",
			}).
			Get(recordPath)
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var body struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, kberrors.NewDecodeError("fetch", resp.StatusCode(), resp.String(), err)
	}
	if len(body.Result) == 0 || string(body.Result) == "null" || string(body.Result) == "{}" {
		return nil, nil
	}

	a, err := parseRecord(body.Result, c.instanceURL)
	if err != nil {
		recordsSkippedTotal.Inc()
		log.Warn().Err(err).Str("sys_id", id).Msg("Knowledge record failed validation")
		return nil, nil
	}
	if !a.ReadableBy(sess.Roles) {
		log.Debug().Str("sys_id", id).Str("user_id", sess.UserID).Msg("Article hidden by role check")
		return nil, nil
	}
	return &a, nil
}

// get issues one authenticated GET under the retry policy and returns the
// 2xx response.
func (c *Client) get(ctx context.Context, op string, sess session.Session, send func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	var out *resty.Response
	err := c.retry.do(ctx, op, func() error {
		start := time.Now()
		resp, err := send(c.http.R().SetContext(ctx).SetAuthToken(sess.Token))
		remoteRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			remoteRequestsTotal.WithLabelValues(op, outcomeClass(0)).Inc()
			return kberrors.NewNetworkError(op, err)
		}
		remoteRequestsTotal.WithLabelValues(op, outcomeClass(resp.StatusCode())).Inc()
		if err := classifyResponse(op, resp); err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// relatedTopics is the first-seen union of topics and categories.
func relatedTopics(articles []Article) []string {
	out := make([]string, 0, maxRelatedTopics)
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || len(out) >= maxRelatedTopics {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, a := range articles {
		add(a.Topic)
		add(a.Category)
	}
	return out
}
