package server

import (
	"context"
	"fmt"

	"github.com/joshdurbin/komoot-stats/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts registers all MCP prompts for the server
func (s *Server) registerPrompts() {
	logging.Debug("Registering MCP prompts")

	// Weekly review prompt
	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "weekly_review",
		Description: "Review the last few weeks of tours with distance per sport and notable changes",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "weeks",
				Description: "How many weeks to review, counting back from the current week (default 4)",
				Required:    false,
			},
		},
	}, s.weeklyReviewPrompt)

	// Personal records check prompt
	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "pr_check",
		Description: "Review personal bests and how recent tours compare",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "sport_type",
				Description: "Sport to check records for: Biking, EBiking, Running, Hiking. Leave empty for all tours.",
				Required:    false,
			},
		},
	}, s.prCheckPrompt)

	logging.Debug("MCP prompts registered", "count", 2)
}

// weeklyReviewPrompt generates a prompt for a multi-week review
func (s *Server) weeklyReviewPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	weeks := "4"
	if req.Params.Arguments != nil {
		if w, ok := req.Params.Arguments["weeks"]; ok && w != "" {
			weeks = w
		}
	}

	logging.Info("MCP prompt requested", "prompt", "weekly_review", "weeks", weeks)

	promptText := fmt.Sprintf(`Please review my last %s weeks of Komoot tours.

Use the following tools to gather data:
1. **get_weekly_activity_stats** with limit=%s to get distance per sport for each week
2. **list_tours_by_month** with limit=2 to see the individual tours

Then provide:
- **Summary**: Distance per sport for each week, and the total
- **Mix**: How the split between bike, e-bike, running and hiking shifted
- **Gaps**: Weeks without any tours
- **Highlights**: The longest or hilliest tours in the period
- **Recommendations**: Suggestions for the coming week based on the data

Please be specific with numbers and use the actual data from the tools.`, weeks, weeks)

	return &mcp.GetPromptResult{
		Description: "Weekly tour review prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}

// prCheckPrompt generates a prompt for personal records review
func (s *Server) prCheckPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	sportType := ""
	typeDescription := "all tours"

	if req.Params.Arguments != nil {
		if t, ok := req.Params.Arguments["sport_type"]; ok && t != "" {
			sportType = t
			typeDescription = t
		}
	}

	logging.Info("MCP prompt requested", "prompt", "pr_check", "sport_type", sportType)

	typeParam := ""
	if sportType != "" {
		typeParam = fmt.Sprintf(`sport_type="%s"`, sportType)
	}

	promptText := fmt.Sprintf(`Please review my personal records for %s.

Use the following tools to gather data:
1. **get_personal_records**%s to get my bests
2. **find_tours**%s to see recent tours of the same kind

Then provide:
- **Current PRs**: My longest, longest-running, hilliest and most energetic tours
- **When Set**: Note when each record was achieved
- **Close Calls**: Recent tours that came near a record

Celebrate achievements and provide motivation for chasing new records!`, typeDescription, wrapParam(typeParam), wrapParam(typeParam))

	return &mcp.GetPromptResult{
		Description: "Personal records review prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}

// wrapParam adds " with " prefix if param is not empty
func wrapParam(param string) string {
	if param == "" {
		return ""
	}
	return " with " + param
}
