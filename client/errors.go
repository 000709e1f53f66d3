package client

import (
	"github.com/go-resty/resty/v2"

	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
)

// classifyResponse maps a completed response to nil (2xx), an AuthError
// (401) or a RemoteError carrying status and raw body.
func classifyResponse(op string, resp *resty.Response) error {
	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 401:
		return kberrors.NewAuthError(kberrors.Unauthorized, "the instance rejected the session token")
	default:
		return kberrors.NewHTTPError(op, status, resp.String())
	}
}

func isNotFound(err error) bool {
	re, ok := kberrors.AsRemoteError(err)
	return ok && re.StatusCode == 404
}
