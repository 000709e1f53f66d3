package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/servicenow-mcp/client"
	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
	"github.com/mycelian/servicenow-mcp/internal/session"
)

type fakeAuth struct {
	sessions   map[string]session.Session
	lastMethod string
	lastSecret string
	err        error
	refreshErr error
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{sessions: map[string]session.Session{}}
}

func (f *fakeAuth) issue(method, secret string, am session.AuthMethod) (session.Session, error) {
	f.lastMethod, f.lastSecret = method, secret
	if f.err != nil {
		return session.Session{}, f.err
	}
	s := session.New("u1", "jane", []string{"employee"}, secret, time.Now().Add(time.Hour), am)
	f.sessions[s.UserID] = s
	return s, nil
}

func (f *fakeAuth) AuthenticateWithToken(_ context.Context, token string) (session.Session, error) {
	return f.issue("jwt", token, session.AuthMethodJWT)
}

func (f *fakeAuth) AuthenticateWithCredentials(_ context.Context, username, password string) (session.Session, error) {
	return f.issue("credentials", username+":"+password, session.AuthMethodOAuth)
}

func (f *fakeAuth) AuthenticateWithOpaqueToken(_ context.Context, token string) (session.Session, error) {
	return f.issue("opaque", token, session.AuthMethodOAuth)
}

func (f *fakeAuth) GetSession(userID string) (session.Session, bool) {
	s, ok := f.sessions[userID]
	return s, ok
}

func (f *fakeAuth) ClearSession(userID string) bool {
	_, ok := f.sessions[userID]
	delete(f.sessions, userID)
	return ok
}

func (f *fakeAuth) Refresh(userID string) (session.Session, error) {
	if f.refreshErr != nil {
		return session.Session{}, f.refreshErr
	}
	s, ok := f.sessions[userID]
	if !ok {
		return session.Session{}, kberrors.NewSessionError(kberrors.SessionNotFound, userID)
	}
	return s, nil
}

type fakeKB struct {
	result  *client.SearchResult
	article *client.Article
	err     error
	lastReq client.SearchRequest
}

func (f *fakeKB) Search(_ context.Context, req client.SearchRequest) (*client.SearchResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeKB) FetchByID(_ context.Context, id, _ string) (*client.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.article != nil && f.article.ID == id {
		return f.article, nil
	}
	return nil, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func decode(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	return out
}

func decodeError(t *testing.T, res *mcp.CallToolResult) ErrorPayload {
	t.Helper()
	require.True(t, res.IsError)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &p))
	return p
}

func sampleArticle() client.Article {
	return client.Article{
		ID:     "a1",
		Number: "KB0010001",
		Title:  "Submitting expense reports",
		Body:   "Expense reports are filed in the finance portal.\n1. Open the finance portal\n2. Attach receipts\n3. Submit for approval",
		State:  "published",
		Link:   "https://example.service-now.com/kb_view.do?sysparm_article=KB0010001",
	}
}
