package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"mcptoolbox/internal/service"
)

type pdfArgs struct {
	PDFBase64 string `json:"pdf_base64"`
}

type pdfPageArgs struct {
	PDFBase64  string `json:"pdf_base64"`
	PageNumber int    `json:"page_number"`
}

type mergePDFsArgs struct {
	PDFsBase64 []string `json:"pdfs_base64"`
}

type mergeInfoArgs struct {
	PDFCount int `json:"pdf_count"`
}

var pdfBase64Prop = stringProp("The PDF document, base64 encoded. Whitespace is ignored.")

func (s *Server) registerPDFTools() {
	pdf := s.deps.PDF

	s.addTool(&mcp.Tool{
		Name:        "extract_text_from_pdf",
		Description: "Extract the text of every page of a PDF. Pages are separated by newlines.",
		InputSchema: objectSchema(map[string]any{"pdf_base64": pdfBase64Prop}, "pdf_base64"),
		Annotations: readOnly,
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args pdfArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return pdf.ExtractText(ctx, args.PDFBase64)
	})

	s.addTool(&mcp.Tool{
		Name:        "get_pdf_metadata",
		Description: "Read the document information of a PDF: title, author, subject, keywords, creator, producer, dates and page count.",
		InputSchema: objectSchema(map[string]any{"pdf_base64": pdfBase64Prop}, "pdf_base64"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args pdfArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return pdf.Metadata(args.PDFBase64)
	})

	s.addTool(&mcp.Tool{
		Name:        "count_pdf_pages",
		Description: "Count the pages of a PDF.",
		InputSchema: objectSchema(map[string]any{"pdf_base64": pdfBase64Prop}, "pdf_base64"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args pdfArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return pdf.CountPages(args.PDFBase64)
	})

	s.addTool(&mcp.Tool{
		Name:        "extract_text_from_page",
		Description: "Extract the text of one PDF page. page_number is zero-indexed.",
		InputSchema: objectSchema(map[string]any{
			"pdf_base64":  pdfBase64Prop,
			"page_number": integerProp("Zero-indexed page number."),
		}, "pdf_base64", "page_number"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args pdfPageArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return pdf.ExtractPageText(args.PDFBase64, args.PageNumber)
	})

	s.addTool(&mcp.Tool{
		Name:        "merge_pdfs",
		Description: "Merge two or more PDFs in the given order and return the result base64 encoded.",
		InputSchema: objectSchema(map[string]any{
			"pdfs_base64": map[string]any{
				"type":        "array",
				"items":       pdfBase64Prop,
				"minItems":    2,
				"description": "The PDFs to merge, in order.",
			},
		}, "pdfs_base64"),
		Annotations: readOnly,
	}, func(ctx context.Context, call *toolCall) (any, error) {
		var args mergePDFsArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return pdf.Merge(ctx, args.PDFsBase64)
	})

	s.addTool(&mcp.Tool{
		Name:        "merge_pdfs_info",
		Description: "Explain how to merge a number of PDFs, with steps and sample code.",
		InputSchema: objectSchema(map[string]any{
			"pdf_count": integerProp("How many PDFs will be merged. At least 2."),
		}, "pdf_count"),
		Annotations: readOnly,
	}, func(_ context.Context, call *toolCall) (any, error) {
		var args mergeInfoArgs
		if err := call.bind(&args); err != nil {
			return nil, err
		}
		return service.MergeInfo(args.PDFCount)
	})
}
