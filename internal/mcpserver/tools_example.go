package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"mcptoolbox/internal/service"
)

type helloArgs struct {
	Name string `json:"name"`
}

type addArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func (s *Server) registerExampleTools() {
	s.addTool(&mcp.Tool{
		Name:        "hello",
		Description: "Say hello to someone.",
		InputSchema: objectSchema(map[string]any{"name": stringProp("Who to greet.")}, "name"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args helloArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return service.Hello(args.Name, s.deps.Config.MCPName)
	})

	s.addTool(&mcp.Tool{
		Name:        "add",
		Description: "Add two numbers together.",
		InputSchema: objectSchema(map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		}, "a", "b"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args addArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return service.Add(args.A, args.B), nil
	})
}
