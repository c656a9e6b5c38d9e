package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"mcptoolbox/internal/config"
	"mcptoolbox/internal/log"
	"mcptoolbox/internal/service"
)

// Deps are the services behind the tools. Only the services of enabled
// toolsets are required.
type Deps struct {
	Config  *config.Config
	Auditor *service.PageAuditor
	PDF     *service.PDFService
	Tables  *service.TableService
	Bugs    *service.BugService
}

// Server wraps the MCP server with the registered toolsets.
type Server struct {
	mcp      *mcp.Server
	deps     Deps
	toolsets []string
	tools    []string
}

var toolsetInstructions = map[string]string{
	config.ToolsetSEO:     "seo: score titles, descriptions, headings, Open Graph tags and keyword density, or audit a live page with audit_page.",
	config.ToolsetPDF:     "pdf: PDFs travel as base64. Extract text, read metadata, count pages or merge documents.",
	config.ToolsetTables:  "tables: define per-user virtual tables, then insert, query, update and delete rows.",
	config.ToolsetBugs:    "bugs: submit bug reports, triage their status and discuss them with comments.",
	config.ToolsetExample: "example: hello and add, for checking connectivity.",
}

// New builds the MCP server and registers every toolset enabled in d.Config.
func New(d Deps) (*Server, error) {
	if d.Config == nil {
		return nil, errors.New("mcpserver: config is required")
	}
	toolsets, err := d.Config.ToolsetList()
	if err != nil {
		return nil, err
	}

	s := &Server{deps: d, toolsets: toolsets}

	lines := []string{fmt.Sprintf("%s exposes these toolsets:", d.Config.MCPName)}
	for _, ts := range toolsets {
		lines = append(lines, "- "+toolsetInstructions[ts])
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    d.Config.MCPName,
			Version: d.Config.MCPVersion,
		},
		&mcp.ServerOptions{
			Instructions: strings.Join(lines, "\n"),
		},
	)

	for _, ts := range toolsets {
		if err := s.register(ts); err != nil {
			return nil, err
		}
	}

	log.Logger.Info("MCP server ready",
		zap.Strings("toolsets", toolsets),
		zap.Int("tools", len(s.tools)),
	)
	return s, nil
}

func (s *Server) register(toolset string) error {
	switch toolset {
	case config.ToolsetSEO:
		if s.deps.Auditor == nil {
			return errors.New("mcpserver: seo toolset needs a page auditor")
		}
		s.registerSEOTools()
	case config.ToolsetPDF:
		if s.deps.PDF == nil {
			return errors.New("mcpserver: pdf toolset needs a PDF service")
		}
		s.registerPDFTools()
	case config.ToolsetTables:
		if s.deps.Tables == nil {
			return errors.New("mcpserver: tables toolset needs a table service")
		}
		s.registerTableTools()
	case config.ToolsetBugs:
		if s.deps.Bugs == nil {
			return errors.New("mcpserver: bugs toolset needs a bug service")
		}
		s.registerBugTools()
	case config.ToolsetExample:
		s.registerExampleTools()
	default:
		return fmt.Errorf("mcpserver: unknown toolset %q", toolset)
	}
	return nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// Tools lists registered tool names in registration order.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// RunStdio serves a single client over stdin/stdout until ctx is done or
// the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	log.Logger.Info("serving MCP over stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// StreamableHandler serves the streamable HTTP transport.
func (s *Server) StreamableHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return s.mcp },
		nil,
	)
}

// SSEHandler serves the legacy HTTP+SSE transport.
func (s *Server) SSEHandler() http.Handler {
	return mcp.NewSSEHandler(
		func(*http.Request) *mcp.Server { return s.mcp },
		nil,
	)
}
