package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mycelian/servicenow-mcp/client"
	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
	"github.com/mycelian/servicenow-mcp/internal/session"
)

// Authenticator is the slice of the auth manager the tools need.
type Authenticator interface {
	AuthenticateWithToken(ctx context.Context, token string) (session.Session, error)
	AuthenticateWithCredentials(ctx context.Context, username, password string) (session.Session, error)
	AuthenticateWithOpaqueToken(ctx context.Context, token string) (session.Session, error)
	GetSession(userID string) (session.Session, bool)
	ClearSession(userID string) bool
	Refresh(userID string) (session.Session, error)
}

// KnowledgeBase is the slice of the knowledge client the tools need.
type KnowledgeBase interface {
	Search(ctx context.Context, req client.SearchRequest) (*client.SearchResult, error)
	FetchByID(ctx context.Context, id, userID string) (*client.Article, error)
}

type toolFunc func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// guard gives every invocation a request id and a scoped logger, turns
// returned errors into structured error payloads and recovers panics so a
// faulty call never takes the server down.
func guard(tool string, fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
		requestID := uuid.NewString()
		logger := log.With().Str("tool", tool).Str("request_id", requestID).Logger()
		ctx = logger.WithContext(ctx)
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				logger.Error().Stack().Err(fmt.Errorf("panic: %v", r)).Msg("Tool panicked")
				res, err = errorResult(requestID, fmt.Errorf("panic in %s", tool)), nil
			}
		}()

		res, err = fn(ctx, req)
		if err != nil {
			logFailure(logger, err, time.Since(start))
			return errorResult(requestID, err), nil
		}
		logger.Debug().Dur("elapsed", time.Since(start)).Msg("Tool completed")
		return res, nil
	}
}

func logFailure(logger zerolog.Logger, err error, elapsed time.Duration) {
	var ev *zerolog.Event
	switch {
	case kberrors.IsAuthError(err), kberrors.IsSessionError(err), kberrors.IsValidationError(err):
		ev = logger.Info()
	case kberrors.IsRemoteError(err):
		ev = logger.Warn()
	default:
		ev = logger.Error().Stack()
	}
	ev.Err(err).Dur("elapsed", elapsed).Msg("Tool failed")
}

// bindArguments decodes the raw argument map into target. Clients often
// send numbers and booleans as strings, so conversion is weakly typed.
func bindArguments[T any](req mcp.CallToolRequest, target *T) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(req.GetArguments()); err != nil {
		return kberrors.NewValidationError("arguments", err.Error())
	}
	return nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func describeSession(s session.Session, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"authenticated": !s.IsExpired(now),
		"user_id":       s.UserID,
		"username":      s.Username,
		"roles":         s.Roles,
		"expires_at":    s.ExpiresAt.UTC().Format(time.RFC3339),
		"is_expired":    s.IsExpired(now),
		"auth_method":   string(s.AuthMethod),
	}
}
