package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
	"github.com/mycelian/servicenow-mcp/internal/session"
)

// opaqueTokenUsername lets hosts that only offer a username/password prompt
// pass a pre-issued bearer token in the password field.
const opaqueTokenUsername = "oauth_token"

// AuthHandler exposes the authenticate, get-session and clear-session tools.
type AuthHandler struct {
	auth Authenticator
	now  func() time.Time
}

func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{auth: a, now: time.Now}
}

// RegisterTools registers the session tools.
func (ah *AuthHandler) RegisterTools(s *server.MCPServer) error {
	authTool := mcp.NewTool("authenticate",
		mcp.WithDescription("Authenticate with the knowledge base. Provide jwt_token, or access_token, or username and password. "+
			"Username \"oauth_token\" with a bearer token as password is treated as access_token."),
		mcp.WithString("jwt_token", mcp.Description("Signed session token")),
		mcp.WithString("username", mcp.Description("Instance username")),
		mcp.WithString("password", mcp.Description("Instance password")),
		mcp.WithString("access_token", mcp.Description("Bearer token issued by the instance")),
	)
	s.AddTool(authTool, guard("authenticate", ah.handleAuthenticate))

	getTool := mcp.NewTool("get-session",
		mcp.WithDescription("Describe the current session for a user: identity, roles, expiry. Set refresh=true to check whether it can be kept without logging in again."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User id returned by authenticate")),
		mcp.WithBoolean("refresh", mcp.Description("Run the refresh check (default false)")),
	)
	s.AddTool(getTool, guard("get-session", ah.handleGetSession))

	clearTool := mcp.NewTool("clear-session",
		mcp.WithDescription("Log out: remove the stored session for a user."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User id returned by authenticate")),
	)
	s.AddTool(clearTool, guard("clear-session", ah.handleClearSession))
	return nil
}

type authenticateArgs struct {
	JWTToken    string `json:"jwt_token"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	AccessToken string `json:"access_token"`
}

func (ah *AuthHandler) handleAuthenticate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args authenticateArgs
	if err := bindArguments(req, &args); err != nil {
		return nil, err
	}

	var (
		sess session.Session
		err  error
	)
	switch {
	case strings.TrimSpace(args.JWTToken) != "":
		sess, err = ah.auth.AuthenticateWithToken(ctx, strings.TrimSpace(args.JWTToken))
	case strings.TrimSpace(args.AccessToken) != "":
		sess, err = ah.auth.AuthenticateWithOpaqueToken(ctx, strings.TrimSpace(args.AccessToken))
	case args.Username == opaqueTokenUsername && args.Password != "":
		sess, err = ah.auth.AuthenticateWithOpaqueToken(ctx, strings.TrimSpace(args.Password))
	case args.Username != "" && args.Password != "":
		sess, err = ah.auth.AuthenticateWithCredentials(ctx, args.Username, args.Password)
	default:
		return nil, kberrors.NewValidationError("credentials", "provide jwt_token, access_token, or username and password")
	}
	if err != nil {
		return nil, err
	}

	return jsonResult(map[string]interface{}{
		"success":     true,
		"user_id":     sess.UserID,
		"username":    sess.Username,
		"roles":       sess.Roles,
		"expires_at":  sess.ExpiresAt.UTC().Format(time.RFC3339),
		"auth_method": string(sess.AuthMethod),
		"message":     "Authentication successful",
	})
}

type sessionArgs struct {
	UserID  string `json:"user_id"`
	Refresh bool   `json:"refresh"`
}

func (a sessionArgs) validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return kberrors.NewValidationError("user_id", "is required")
	}
	return nil
}

func (ah *AuthHandler) handleGetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := bindArguments(req, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	if args.Refresh {
		sess, err := ah.auth.Refresh(args.UserID)
		if err != nil {
			return nil, err
		}
		return jsonResult(describeSession(sess, ah.now()))
	}

	sess, ok := ah.auth.GetSession(args.UserID)
	if !ok {
		return jsonResult(map[string]interface{}{
			"authenticated": false,
			"user_id":       args.UserID,
			"message":       "No session found.",
		})
	}
	return jsonResult(describeSession(sess, ah.now()))
}

func (ah *AuthHandler) handleClearSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := bindArguments(req, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	if ah.auth.ClearSession(args.UserID) {
		return jsonResult(map[string]interface{}{"success": true, "message": "User session cleared successfully."})
	}
	return jsonResult(map[string]interface{}{"success": false, "message": "No session found."})
}
