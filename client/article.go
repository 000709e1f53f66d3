package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mycelian/servicenow-mcp/internal/session"
)

// Article is one knowledge record as returned to callers.
type Article struct {
	ID            string `json:"id"`
	Number        string `json:"number"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	Topic         string `json:"topic,omitempty"`
	Category      string `json:"category,omitempty"`
	Subcategory   string `json:"subcategory,omitempty"`
	State         string `json:"workflow_state"`
	RequiredRoles string `json:"roles,omitempty"`
	UserCriteria  string `json:"can_read_user_criteria,omitempty"`
	CreatedBy     string `json:"created_by,omitempty"`
	CreatedOn     string `json:"created_on,omitempty"`
	UpdatedBy     string `json:"updated_by,omitempty"`
	UpdatedOn     string `json:"updated_on,omitempty"`
	ViewCount     int    `json:"view_count"`
	HelpfulCount  int    `json:"helpful_count"`
	ArticleType   string `json:"article_type,omitempty"`
	Link          string `json:"link"`
}

// RoleList parses the comma-separated required roles.
func (a Article) RoleList() []string {
	if strings.TrimSpace(a.RequiredRoles) == "" {
		return nil
	}
	return session.NormalizeRoles(strings.Split(a.RequiredRoles, ","))
}

// IsPublic reports whether the article declares no required roles.
func (a Article) IsPublic() bool {
	return len(a.RoleList()) == 0
}

// ReadableBy reports whether a caller holding roles may see the article.
func (a Article) ReadableBy(roles []string) bool {
	required := a.RoleList()
	if len(required) == 0 {
		return true
	}
	held := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		held[r] = struct{}{}
	}
	for _, r := range required {
		if _, ok := held[r]; ok {
			return true
		}
	}
	return false
}

// field accepts the shapes the Table API uses for a column: a string, a
// number, null, or a {display_value, value} object.
type field string

func (f *field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = field(s)
	case '{':
		var ref struct {
			DisplayValue *field `json:"display_value"`
			Value        *field `json:"value"`
		}
		if err := json.Unmarshal(b, &ref); err != nil {
			return err
		}
		switch {
		case ref.DisplayValue != nil && *ref.DisplayValue != "":
			*f = *ref.DisplayValue
		case ref.Value != nil:
			*f = *ref.Value
		default:
			*f = ""
		}
	case '[':
		return fmt.Errorf("unexpected array value")
	default:
		*f = field(b)
	}
	return nil
}

type record struct {
	SysID        field `json:"sys_id"`
	Number       field `json:"number"`
	Title        field `json:"short_description"`
	Text         field `json:"text"`
	Topic        field `json:"topic"`
	Category     field `json:"category"`
	Subcategory  field `json:"subcategory"`
	State        field `json:"workflow_state"`
	Roles        field `json:"roles"`
	UserCriteria field `json:"can_read_user_criteria"`
	CreatedBy    field `json:"sys_created_by"`
	CreatedOn    field `json:"sys_created_on"`
	UpdatedBy    field `json:"sys_updated_by"`
	UpdatedOn    field `json:"sys_updated_on"`
	ViewCount    field `json:"view_count"`
	HelpfulCount field `json:"helpful_count"`
	ArticleType  field `json:"article_type"`
}

// parseRecord validates one raw record and builds an Article from it.
func parseRecord(raw json.RawMessage, instanceURL string) (Article, error) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Article{}, fmt.Errorf("decode record: %w", err)
	}
	if r.SysID == "" {
		return Article{}, fmt.Errorf("record has no sys_id")
	}
	views, err := parseCount(string(r.ViewCount))
	if err != nil {
		return Article{}, fmt.Errorf("record %s: view_count: %w", r.SysID, err)
	}
	helpful, err := parseCount(string(r.HelpfulCount))
	if err != nil {
		return Article{}, fmt.Errorf("record %s: helpful_count: %w", r.SysID, err)
	}

	return Article{
		ID:            string(r.SysID),
		Number:        string(r.Number),
		Title:         string(r.Title),
		Body:          string(r.Text),
		Topic:         string(r.Topic),
		Category:      string(r.Category),
		Subcategory:   string(r.Subcategory),
		State:         string(r.State),
		RequiredRoles: string(r.Roles),
		UserCriteria:  string(r.UserCriteria),
		CreatedBy:     string(r.CreatedBy),
		CreatedOn:     string(r.CreatedOn),
		UpdatedBy:     string(r.UpdatedBy),
		UpdatedOn:     string(r.UpdatedOn),
		ViewCount:     views,
		HelpfulCount:  helpful,
		ArticleType:   string(r.ArticleType),
		Link:          articleLink(instanceURL, string(r.Number), string(r.SysID)),
	}, nil
}

// parseCount reads counters that display values render as "1,234".
func parseCount(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func articleLink(instanceURL, number, sysID string) string {
	if number != "" {
		return instanceURL + "/kb_view.do?sysparm_article=" + url.QueryEscape(number)
	}
	return instanceURL + "/kb_view.do?sys_kb_id=" + url.QueryEscape(sysID)
}
