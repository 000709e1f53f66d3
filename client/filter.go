package client

import (
	"sort"
	"strings"

	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
	"github.com/mycelian/servicenow-mcp/internal/session"
)

// SearchKind selects which field a query is matched against.
type SearchKind string

const (
	SearchContent      SearchKind = "content"
	SearchSysID        SearchKind = "sys_id"
	SearchNumber       SearchKind = "number"
	SearchTitleExact   SearchKind = "title_exact"
	SearchTitlePartial SearchKind = "title_partial"
)

// ParseSearchKind accepts the tool-facing names; empty means content.
func ParseSearchKind(s string) (SearchKind, error) {
	switch k := SearchKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SearchContent, nil
	case SearchContent, SearchSysID, SearchNumber, SearchTitleExact, SearchTitlePartial:
		return k, nil
	default:
		return "", kberrors.NewValidationError("search_type", "unknown search type "+s)
	}
}

// PublishedFilter is the encoded query every search starts from.
const PublishedFilter = "workflow_state=published"

// publicRoleClause matches articles that declare no required roles.
const publicRoleClause = "rolesISEMPTY"

// queryEscaper neutralizes characters with meaning in ServiceNow encoded
// queries. "^" separates conditions and is escaped by doubling.
var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`%`, `\%`,
	`^`, `^^`,
	"\r", " ",
	"\n", " ",
)

// EscapeQueryValue makes s safe to interpolate as a condition value.
func EscapeQueryValue(s string) string {
	return queryEscaper.Replace(s)
}

// FilterBuilder renders ServiceNow encoded queries. The zero value keeps
// the lenient substring behavior for the exact kinds.
type FilterBuilder struct {
	StrictExact bool
}

// BuildFilter is FilterBuilder{}.Build.
func BuildFilter(queryText string, sess session.Session, kind SearchKind) string {
	return FilterBuilder{}.Build(queryText, sess, kind)
}

// Build returns the encoded query for queryText scoped to sess's roles.
// In encoded queries "^OR" binds tighter than "^", so the result reads
// published AND (match) AND (public OR role1 OR role2 ...).
func (b FilterBuilder) Build(queryText string, sess session.Session, kind SearchKind) string {
	q := strings.TrimSpace(queryText)
	if q == "" {
		return PublishedFilter
	}
	v := EscapeQueryValue(q)

	var match string
	switch kind {
	case SearchSysID:
		if b.StrictExact {
			match = "sys_id=" + v
		} else {
			match = "sys_idLIKE" + v
		}
	case SearchNumber:
		match = "number=" + v
	case SearchTitleExact:
		if b.StrictExact {
			match = "short_description=" + v
		} else {
			match = "short_descriptionLIKE" + v
		}
	case SearchTitlePartial:
		match = "short_descriptionLIKE" + v
	default:
		match = "short_descriptionLIKE" + v + "^ORtextLIKE" + v
	}

	return PublishedFilter + "^" + match + "^" + roleClause(sess.Roles)
}

func roleClause(roles []string) string {
	sorted := session.NormalizeRoles(roles)
	sort.Strings(sorted)

	var sb strings.Builder
	sb.WriteString(publicRoleClause)
	for _, r := range sorted {
		sb.WriteString("^ORrolesLIKE")
		sb.WriteString(EscapeQueryValue(r))
	}
	return sb.String()
}
