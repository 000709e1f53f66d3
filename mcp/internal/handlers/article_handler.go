package handlers

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
)

// ArticleHandler exposes the get-article tool.
type ArticleHandler struct {
	kb KnowledgeBase
}

func NewArticleHandler(kb KnowledgeBase) *ArticleHandler {
	return &ArticleHandler{kb: kb}
}

// RegisterTools registers the get-article tool.
func (ah *ArticleHandler) RegisterTools(s *server.MCPServer) error {
	tool := mcp.NewTool("get-article",
		mcp.WithDescription("Fetch one knowledge article by sys_id. Articles the user may not read are reported as not found."),
		mcp.WithString("article_id", mcp.Required(), mcp.Description("Article sys_id")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User id returned by authenticate")),
	)
	s.AddTool(tool, guard("get-article", ah.handleGetArticle))
	return nil
}

type articleArgs struct {
	ArticleID string `json:"article_id"`
	UserID    string `json:"user_id"`
}

func (ah *ArticleHandler) handleGetArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args articleArgs
	if err := bindArguments(req, &args); err != nil {
		return nil, err
	}
	if args.UserID == "" {
		return nil, kberrors.NewValidationError("user_id", "is required")
	}

	article, err := ah.kb.FetchByID(ctx, args.ArticleID, args.UserID)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return jsonResult(map[string]interface{}{
			"success": false,
			"message": "Article not found or you do not have permission to access it.",
		})
	}
	return jsonResult(map[string]interface{}{
		"success": true,
		"article": article,
	})
}
