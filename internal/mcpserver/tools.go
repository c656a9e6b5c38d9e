package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"mcptoolbox/internal/auth"
	"mcptoolbox/internal/log"
	"mcptoolbox/internal/metrics"
	"mcptoolbox/internal/service"
	"mcptoolbox/internal/store"
)

// toolCall is what a tool handler sees of one invocation.
type toolCall struct {
	req       *mcp.CallToolRequest
	principal *auth.Principal
}

type toolHandler func(ctx context.Context, call *toolCall) (any, error)

// namespace scopes persisted data to the calling user.
func (c *toolCall) namespace() store.Namespace {
	return store.UserNamespace(c.principal.UserID)
}

// bind decodes the raw tool arguments into dst.
func (c *toolCall) bind(dst any) error {
	if c.req == nil || c.req.Params == nil || len(c.req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("%w: invalid arguments: %v", service.ErrInvalidInput, err)
	}
	return nil
}

func principalOf(req *mcp.CallToolRequest) *auth.Principal {
	if req == nil || req.Extra == nil {
		return auth.Anonymous()
	}
	return auth.FromTokenInfo(req.Extra.TokenInfo)
}

// addTool registers tool with the logging, metrics and error handling shared
// by every tool. Handler errors become isError results so the model can see
// and correct them.
func (s *Server) addTool(tool *mcp.Tool, h toolHandler) {
	name := tool.Name
	s.mcp.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		call := &toolCall{req: req, principal: principalOf(req)}

		out, err := safeInvoke(ctx, h, call)

		elapsed := time.Since(start)
		metrics.ObserveToolCall(name, err != nil, elapsed)

		fields := []zap.Field{
			zap.String("tool_name", name),
			zap.String("user_id", call.principal.UserID),
			zap.String("auth_method", call.principal.Method),
			zap.Duration("duration", elapsed),
		}
		if err != nil {
			log.Logger.Warn("tool call failed", append(fields, zap.String("outcome", metrics.OutcomeError), zap.Error(err))...)
			return errorResult(err.Error()), nil
		}
		log.Logger.Info("tool call", append(fields, zap.String("outcome", metrics.OutcomeSuccess))...)

		res, err := jsonResult(out)
		if err != nil {
			log.Logger.Error("tool result encoding failed", append(fields, zap.Error(err))...)
			return errorResult(err.Error()), nil
		}
		return res, nil
	})
	s.tools = append(s.tools, name)
}

func safeInvoke(ctx context.Context, h toolHandler, call *toolCall) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Error("tool handler panicked",
				zap.Any("error", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return h(ctx, call)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

func boolPtr(b bool) *bool { return &b }

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func integerProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func enumProp(description string, values []string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

func enumNames[T ~string](values []T) []string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return names
}

var readOnly = &mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true, OpenWorldHint: boolPtr(false)}
