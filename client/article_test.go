package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInstance = "https://test.service-now.com"

func TestParseRecordDisplayValues(t *testing.T) {
	raw := json.RawMessage(`{
		"sys_id": "article-1",
		"number": "KB001",
		"short_description": "Employee Vacation Policy",
		"text": "<p>Employees are entitled to vacation.</p>",
		"topic": "HR",
		"category": {"display_value": "Policies", "value": "cat-sys-id", "link": "x"},
		"workflow_state": "published",
		"roles": "employee, knowledge,employee",
		"view_count": "1,250",
		"helpful_count": 12,
		"article_type": null
	}`)

	a, err := parseRecord(raw, testInstance)
	require.NoError(t, err)

	assert.Equal(t, "article-1", a.ID)
	assert.Equal(t, "Policies", a.Category)
	assert.Equal(t, 1250, a.ViewCount)
	assert.Equal(t, 12, a.HelpfulCount)
	assert.Equal(t, "", a.ArticleType)
	assert.Equal(t, []string{"employee", "knowledge"}, a.RoleList())
	assert.Equal(t, testInstance+"/kb_view.do?sysparm_article=KB001", a.Link)
}

func TestParseRecordRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"not an object":  `"hello"`,
		"missing sys_id": `{"number":"KB1"}`,
		"bad view count": `{"sys_id":"x","view_count":"many"}`,
		"negative count": `{"sys_id":"x","helpful_count":"-3"}`,
		"array field":    `{"sys_id":"x","topic":["a"]}`,
	}
	for name, raw := range cases {
		_, err := parseRecord(json.RawMessage(raw), testInstance)
		assert.Error(t, err, name)
	}
}

func TestArticleLinkFallsBackToSysID(t *testing.T) {
	a, err := parseRecord(json.RawMessage(`{"sys_id":"abc"}`), testInstance)
	require.NoError(t, err)
	assert.Equal(t, testInstance+"/kb_view.do?sys_kb_id=abc", a.Link)
}

func TestReadableBy(t *testing.T) {
	public := Article{RequiredRoles: " , "}
	assert.True(t, public.IsPublic())
	assert.True(t, public.ReadableBy(nil))

	managers := Article{RequiredRoles: "manager,hr_admin"}
	assert.False(t, managers.IsPublic())
	assert.False(t, managers.ReadableBy([]string{"employee"}))
	assert.False(t, managers.ReadableBy(nil))
	assert.True(t, managers.ReadableBy([]string{"employee", "hr_admin"}))

	// Role names match whole entries, not substrings.
	admins := Article{RequiredRoles: "knowledge_admin"}
	assert.False(t, admins.ReadableBy([]string{"knowledge"}))
}
