package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"mcptoolbox/internal/service"
)

type titleArgs struct {
	Title string `json:"title"`
}

type descriptionArgs struct {
	Description string `json:"description"`
}

type htmlArgs struct {
	HTML string `json:"html"`
}

type keywordDensityArgs struct {
	Text    string `json:"text"`
	Keyword string `json:"keyword"`
}

type auditPageArgs struct {
	URL        string `json:"url"`
	CheckLinks bool   `json:"check_links"`
}

func (s *Server) registerSEOTools() {
	s.addTool(&mcp.Tool{
		Name:        "check_meta_title",
		Description: "Check a page title against the recommended 30-60 character range.",
		InputSchema: objectSchema(map[string]any{
			"title": stringProp("The page title to evaluate."),
		}, "title"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args titleArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return service.CheckMetaTitle(args.Title), nil
	})

	s.addTool(&mcp.Tool{
		Name:        "check_meta_description",
		Description: "Check a meta description against the recommended 120-160 character range.",
		InputSchema: objectSchema(map[string]any{
			"description": stringProp("The meta description to evaluate."),
		}, "description"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args descriptionArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return service.CheckMetaDescription(args.Description), nil
	})

	s.addTool(&mcp.Tool{
		Name:        "analyze_heading_structure",
		Description: "List the h1-h6 headings of an HTML document in order and check that it has exactly one h1.",
		InputSchema: objectSchema(map[string]any{
			"html": stringProp("HTML markup to scan."),
		}, "html"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args htmlArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return service.AnalyzeHeadingStructure(args.HTML), nil
	})

	s.addTool(&mcp.Tool{
		Name:        "check_open_graph_tags",
		Description: "Report which of og:title, og:description, og:image and og:url an HTML document declares.",
		InputSchema: objectSchema(map[string]any{
			"html": stringProp("HTML markup to scan."),
		}, "html"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args htmlArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return service.CheckOpenGraphTags(args.HTML), nil
	})

	s.addTool(&mcp.Tool{
		Name:        "analyze_keyword_density",
		Description: "Measure how often a keyword or phrase appears in a text, as a percentage of its words. 1-3% is recommended.",
		InputSchema: objectSchema(map[string]any{
			"text":    stringProp("The body text."),
			"keyword": stringProp("Keyword or phrase to count, case-insensitive."),
		}, "text", "keyword"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args keywordDensityArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return service.AnalyzeKeywordDensity(args.Text, args.Keyword), nil
	})

	s.addTool(&mcp.Tool{
		Name:        "audit_page",
		Description: "Fetch a live page and run the title, description, heading and Open Graph checks on it. With check_links, every link is probed for accessibility.",
		InputSchema: objectSchema(map[string]any{
			"url": stringProp("Absolute http(s) URL of the page."),
			"check_links": map[string]any{
				"type":        "boolean",
				"description": "Probe every link on the page. Slower. Defaults to false.",
			},
		}, "url"),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true, OpenWorldHint: boolPtr(true)},
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args auditPageArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return s.deps.Auditor.Audit(ctx, args.URL, args.CheckLinks)
	})
}
