package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/mycelian/servicenow-mcp/client"
	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
	"github.com/mycelian/servicenow-mcp/internal/synthesis"
)

// SearchHandler exposes the search-knowledge tool.
type SearchHandler struct {
	kb KnowledgeBase
}

func NewSearchHandler(kb KnowledgeBase) *SearchHandler {
	return &SearchHandler{kb: kb}
}

// RegisterTools registers the search-knowledge tool.
func (sh *SearchHandler) RegisterTools(s *server.MCPServer) error {
	searchTool := mcp.NewTool("search-knowledge",
		mcp.WithDescription("Search the knowledge base and answer with a single synthesized response that cites its source articles, "+
			"lists step-by-step procedures when the articles contain them, and suggests follow-up questions. "+
			"Results are limited to articles the user's roles allow."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question or keywords")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User id returned by authenticate")),
		mcp.WithNumber("limit", mcp.Description("Maximum articles to retrieve (1-50, default 10)")),
		mcp.WithBoolean("synthesize", mcp.Description("Return a synthesized answer (default true); false returns the raw articles as JSON")),
		mcp.WithString("search_type",
			mcp.Description("Field to match: content (default), sys_id, number, title_exact, title_partial"),
			mcp.Enum(
				string(client.SearchContent),
				string(client.SearchSysID),
				string(client.SearchNumber),
				string(client.SearchTitleExact),
				string(client.SearchTitlePartial),
			),
		),
	)
	s.AddTool(searchTool, guard("search-knowledge", sh.handleSearch))
	return nil
}

type searchArgs struct {
	Query      string `json:"query"`
	UserID     string `json:"user_id"`
	Limit      int    `json:"limit"`
	Synthesize *bool  `json:"synthesize"`
	SearchType string `json:"search_type"`
}

func (sh *SearchHandler) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchArgs
	if err := bindArguments(req, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Query) == "" {
		return nil, kberrors.NewValidationError("query", "is required")
	}
	kind, err := client.ParseSearchKind(args.SearchType)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := sh.kb.Search(ctx, client.SearchRequest{
		Query:  args.Query,
		UserID: args.UserID,
		Limit:  args.Limit,
		Kind:   kind,
	})
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	if args.Synthesize != nil && !*args.Synthesize {
		logger.Info().Int("articles", res.TotalCount).Dur("elapsed", time.Since(start)).Msg("Raw search complete")
		return jsonResult(map[string]interface{}{
			"success":        true,
			"query":          res.Query,
			"total_count":    res.TotalCount,
			"related_topics": res.RelatedTopics,
			"articles":       res.Articles,
		})
	}

	answer := synthesis.Synthesize(res, args.Query)
	logger.Info().
		Int("articles", res.TotalCount).
		Float64("confidence", answer.Confidence).
		Int("steps", len(answer.Procedures)).
		Dur("elapsed", time.Since(start)).
		Msg("Synthesized search complete")
	return mcp.NewToolResultText(synthesis.Format(answer)), nil
}
