package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mycelian/servicenow-mcp/internal/session"
)

const (
	tablePath  = "/api/now/table/kb_knowledge"
	recordPath = "/api/now/table/kb_knowledge/{sys_id}"

	defaultTimeout = 30 * time.Second
)

// fieldProjection is the fixed column list requested for every article read.
var fieldProjection = strings.Join([]string{
	"sys_id", "number", "short_description", "text", "topic", "category",
	"subcategory", "workflow_state", "roles", "can_read_user_criteria",
	"sys_created_by", "sys_created_on", "sys_updated_by", "sys_updated_on",
	"view_count", "helpful_count", "article_type",
}, ",")

// SessionResolver turns a user id into a usable session, or a SessionError.
type SessionResolver interface {
	ResolveSession(userID string) (session.Session, error)
}

// Client reads knowledge articles from a ServiceNow instance on behalf of
// authenticated callers.
type Client struct {
	instanceURL string
	http        *resty.Client
	sessions    SessionResolver
	filters     FilterBuilder
	retry       RetryPolicy
}

// New constructs a Client for instanceURL. Options are applied in order, so
// WithRESTClient should come before options that tune the HTTP client.
func New(instanceURL string, sessions SessionResolver, opts ...Option) (*Client, error) {
	if instanceURL == "" {
		return nil, fmt.Errorf("instanceURL cannot be empty")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session resolver cannot be nil")
	}
	instanceURL = strings.TrimRight(instanceURL, "/")

	c := &Client{
		instanceURL: instanceURL,
		http:        NewRESTClient(instanceURL, defaultTimeout, false),
		sessions:    sessions,
		retry:       DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewRESTClient returns a resty client rooted at baseURL. The auth manager
// and the knowledge client share one so they share a connection pool.
func NewRESTClient(baseURL string, timeout time.Duration, debug bool) *resty.Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "servicenow-mcp")
	if debug || debugLoggingRequested() {
		rc.SetTransport(&debugTransport{base: defaultTransport()})
	}
	return rc
}

// InstanceURL is the normalized base URL articles link back to.
func (c *Client) InstanceURL() string { return c.instanceURL }
