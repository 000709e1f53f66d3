package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
)

// ErrorPayload is the body of every failed tool call.
type ErrorPayload struct {
	Message        string `json:"message"`
	Code           string `json:"code"`
	RequiresReauth bool   `json:"requires_reauth"`
	Field          string `json:"field,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

func errorResult(requestID string, err error) *mcp.CallToolResult {
	p := describeError(err)
	p.RequestID = requestID
	b, _ := json.Marshal(p)
	return mcp.NewToolResultError(string(b))
}

// describeError maps the error taxonomy onto client-facing payloads.
// Internal detail (bodies, stack, wrapped causes) stays in the logs.
func describeError(err error) ErrorPayload {
	if ae, ok := kberrors.AsAuthError(err); ok {
		return ErrorPayload{Message: ae.Message, Code: ae.Kind.Code(), RequiresReauth: ae.Reauth}
	}
	if se, ok := kberrors.AsSessionError(err); ok {
		msg := "No active session. Please authenticate first."
		if se.Kind == kberrors.SessionExpired {
			msg = "Your session has expired. Please authenticate again."
		}
		return ErrorPayload{Message: msg, Code: se.Kind.Code(), RequiresReauth: true}
	}
	var ve kberrors.ValidationError
	if errors.As(err, &ve) {
		return ErrorPayload{Message: "Invalid request parameters", Code: "VALIDATION_ERROR", Field: ve.Field}
	}
	if re, ok := kberrors.AsRemoteError(err); ok {
		msg := "The knowledge base could not be reached."
		if re.StatusCode > 0 {
			msg = fmt.Sprintf("The knowledge base request failed (HTTP %d).", re.StatusCode)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "The knowledge base did not respond in time."
		}
		return ErrorPayload{Message: msg, Code: "REMOTE_ERROR"}
	}
	return ErrorPayload{Message: "An unexpected error occurred while processing the request.", Code: "INTERNAL_ERROR"}
}
