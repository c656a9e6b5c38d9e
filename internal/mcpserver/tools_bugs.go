package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"mcptoolbox/internal/model"
)

type submitBugArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	AppName     string `json:"app_name"`
}

type listBugsArgs struct {
	Status   string `json:"status"`
	Severity string `json:"severity"`
	AppName  string `json:"app_name"`
	Limit    int    `json:"limit"`
}

type updateBugStatusArgs struct {
	BugID  string `json:"bug_id"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type bugCommentArgs struct {
	BugID      string `json:"bug_id"`
	Comment    string `json:"comment"`
	IsInternal bool   `json:"is_internal"`
}

type bugIDArgs struct {
	BugID string `json:"bug_id"`
}

func (s *Server) registerBugTools() {
	bugs := s.deps.Bugs
	severities := enumNames(model.Severities)
	statuses := enumNames(model.BugStatuses)
	bugIDProp := stringProp("Bug id (UUID).")

	s.addTool(&mcp.Tool{
		Name:        "submit_bug",
		Description: "File a new bug report. It starts in status new.",
		InputSchema: objectSchema(map[string]any{
			"title":       stringProp("Short summary."),
			"description": stringProp("What happened and how to reproduce it."),
			"severity":    enumProp("How bad it is.", severities),
			"app_name":    stringProp("Application the bug was found in."),
		}, "title", "description", "severity", "app_name"),
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(false), OpenWorldHint: boolPtr(false)},
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args submitBugArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return bugs.Submit(ctx, call.namespace(), args.Title, args.Description, args.Severity, args.AppName)
	})

	s.addTool(&mcp.Tool{
		Name:        "list_bugs",
		Description: "List bugs, newest first, optionally filtered by status, severity and app name.",
		InputSchema: objectSchema(map[string]any{
			"status":   enumProp("Only bugs in this status.", statuses),
			"severity": enumProp("Only bugs of this severity.", severities),
			"app_name": stringProp("Only bugs of this application, case-insensitive."),
			"limit":    integerProp("Maximum bugs to return. Defaults to 20, at most 100."),
		}),
		Annotations: readOnly,
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args listBugsArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return bugs.List(ctx, call.namespace(), args.Status, args.Severity, args.AppName, args.Limit)
	})

	s.addTool(&mcp.Tool{
		Name:        "update_bug_status",
		Description: "Move a bug to another status. The change is kept in the bug's history.",
		InputSchema: objectSchema(map[string]any{
			"bug_id": bugIDProp,
			"status": enumProp("New status. A bug cannot go back to new.", statuses[1:]),
			"notes":  stringProp("Optional note about the change."),
		}, "bug_id", "status"),
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(false), OpenWorldHint: boolPtr(false)},
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args updateBugStatusArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return bugs.UpdateStatus(ctx, call.namespace(), args.BugID, args.Status, args.Notes)
	})

	s.addTool(&mcp.Tool{
		Name:        "add_bug_comment",
		Description: "Comment on a bug. Internal comments are meant for the team only.",
		InputSchema: objectSchema(map[string]any{
			"bug_id":  bugIDProp,
			"comment": stringProp("Comment text."),
			"is_internal": map[string]any{
				"type":        "boolean",
				"description": "Mark the comment as internal. Defaults to false.",
			},
		}, "bug_id", "comment"),
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(false), OpenWorldHint: boolPtr(false)},
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args bugCommentArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return bugs.AddComment(ctx, call.namespace(), args.BugID, args.Comment, args.IsInternal)
	})

	s.addTool(&mcp.Tool{
		Name:        "get_bug_details",
		Description: "Show a bug with its comments and status history.",
		InputSchema: objectSchema(map[string]any{"bug_id": bugIDProp}, "bug_id"),
		Annotations: readOnly,
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args bugIDArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return bugs.Details(ctx, call.namespace(), args.BugID)
	})
}
