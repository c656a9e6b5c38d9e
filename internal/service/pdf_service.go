package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
	"mcptoolbox/internal/log"
	"mcptoolbox/internal/model"
)

const (
	maxMergeSources = 20
	pdfHeaderWindow = 1024
)

var disablePDFConfigDir sync.Once

// PDFService reads base64 encoded PDF documents.
type PDFService struct {
	maxBytes int
}

func NewPDFService(maxBytes int) *PDFService {
	disablePDFConfigDir.Do(func() {
		pdfmodel.ConfigPath = "disable"
	})
	return &PDFService{maxBytes: maxBytes}
}

func pdfConfig() *pdfmodel.Configuration {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

// decode strips whitespace, decodes standard base64 and checks the size limit.
func (s *PDFService) decode(pdfBase64 string) ([]byte, error) {
	encoded := strings.Join(strings.Fields(pdfBase64), "")
	if encoded == "" {
		return nil, fmt.Errorf("%w: pdf_base64 is empty", ErrInvalidInput)
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > s.maxBytes+2 {
		return nil, fmt.Errorf("%w: PDF exceeds the %d byte limit", ErrInvalidInput, s.maxBytes)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: pdf_base64 is not valid base64: %v", ErrInvalidInput, err)
	}
	if len(raw) > s.maxBytes {
		return nil, fmt.Errorf("%w: PDF exceeds the %d byte limit", ErrInvalidInput, s.maxBytes)
	}

	header := raw
	if len(header) > pdfHeaderWindow {
		header = header[:pdfHeaderWindow]
	}
	if !bytes.Contains(header, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: data is not a PDF document", ErrInvalidInput)
	}
	return raw, nil
}

// openedPDF is a validated document plus the raw bytes text extraction reads.
type openedPDF struct {
	ctx *pdfmodel.Context
	raw []byte
}

// open decodes and parses a PDF, validating it in relaxed mode.
func (s *PDFService) open(pdfBase64 string) (*openedPDF, error) {
	raw, err := s.decode(pdfBase64)
	if err != nil {
		return nil, err
	}

	pdfCtx, err := api.ReadContext(bytes.NewReader(raw), pdfConfig())
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, fmt.Errorf("validate PDF: %w", err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	return &openedPDF{ctx: pdfCtx, raw: raw}, nil
}

// textReader opens the document for text extraction, which resolves each
// font's encoding and ToUnicode map.
func (d *openedPDF) textReader() (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(d.raw), int64(len(d.raw)))
	if err != nil {
		return nil, fmt.Errorf("open PDF text layer: %w", err)
	}
	return r, nil
}

// pageText extracts the text of a one-based page. Pages whose content cannot
// be read yield empty text.
func pageText(r *pdf.Reader, pageNr int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Logger.Debug("page text unreadable", zap.Int("page", pageNr), zap.Any("panic", rec))
			text = ""
		}
	}()

	page := r.Page(pageNr)
	if page.V.IsNull() {
		return ""
	}
	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		font := page.Font(name)
		fonts[name] = &font
	}
	raw, err := page.GetPlainText(fonts)
	if err != nil {
		log.Logger.Debug("page text unreadable", zap.Int("page", pageNr), zap.Error(err))
		return ""
	}
	return normalizePageText(raw)
}

// normalizePageText trims trailing blanks on every line and the page edges.
func normalizePageText(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ExtractText returns the text of every page joined by newlines.
func (s *PDFService) ExtractText(ctx context.Context, pdfBase64 string) (*model.PDFText, error) {
	doc, err := s.open(pdfBase64)
	if err != nil {
		return nil, fmt.Errorf("extract text from PDF: %w", err)
	}
	r, err := doc.textReader()
	if err != nil {
		return nil, fmt.Errorf("extract text from PDF: %w", err)
	}

	pageCount := doc.ctx.PageCount
	pages := make([]string, 0, pageCount)
	for pageNr := 1; pageNr <= pageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, pageText(r, pageNr))
	}

	text := strings.Join(pages, "\n")
	return &model.PDFText{
		Text:           text,
		PageCount:      pageCount,
		CharacterCount: utf8.RuneCountInString(text),
	}, nil
}

// Metadata returns the document information entries and the page count.
func (s *PDFService) Metadata(pdfBase64 string) (*model.PDFMetadata, error) {
	doc, err := s.open(pdfBase64)
	if err != nil {
		return nil, fmt.Errorf("extract PDF metadata: %w", err)
	}

	// Configuration and XRefTable both carry a CreationDate; the info
	// dictionary values live on the XRefTable.
	info := doc.ctx.XRefTable
	return &model.PDFMetadata{
		Title:            strings.TrimSpace(info.Title),
		Author:           strings.TrimSpace(info.Author),
		Subject:          strings.TrimSpace(info.Subject),
		Keywords:         strings.TrimSpace(info.Keywords),
		Creator:          strings.TrimSpace(info.Creator),
		Producer:         strings.TrimSpace(info.Producer),
		CreationDate:     formatPDFDate(info.CreationDate),
		ModificationDate: formatPDFDate(info.ModDate),
		PageCount:        doc.ctx.PageCount,
	}, nil
}

// formatPDFDate renders a "D:YYYYMMDDHHmmSS" date as RFC 3339, or returns
// the raw value when it does not parse.
func formatPDFDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if t, ok := types.DateTime(raw, true); ok {
		return t.Format(time.RFC3339)
	}
	return raw
}

func (s *PDFService) CountPages(pdfBase64 string) (*model.PDFPageCount, error) {
	doc, err := s.open(pdfBase64)
	if err != nil {
		return nil, fmt.Errorf("count PDF pages: %w", err)
	}
	return &model.PDFPageCount{PageCount: doc.ctx.PageCount}, nil
}

// ExtractPageText returns the text of the zero-indexed page pageNumber.
func (s *PDFService) ExtractPageText(pdfBase64 string, pageNumber int) (*model.PDFPageText, error) {
	doc, err := s.open(pdfBase64)
	if err != nil {
		return nil, fmt.Errorf("extract text from page: %w", err)
	}

	total := doc.ctx.PageCount
	if pageNumber < 0 || pageNumber >= total {
		return nil, fmt.Errorf("%w: Invalid page number %d. PDF has %d pages (0-indexed: 0 to %d).",
			ErrInvalidInput, pageNumber, total, total-1)
	}

	r, err := doc.textReader()
	if err != nil {
		return nil, fmt.Errorf("extract text from page: %w", err)
	}
	text := pageText(r, pageNumber+1)
	return &model.PDFPageText{
		PageNumber:     pageNumber,
		Text:           text,
		CharacterCount: utf8.RuneCountInString(text),
	}, nil
}

// Merge concatenates the given PDFs in order and returns the result base64 encoded.
func (s *PDFService) Merge(ctx context.Context, pdfsBase64 []string) (*model.PDFMerge, error) {
	if len(pdfsBase64) < 2 {
		return nil, fmt.Errorf("%w: You need at least 2 PDFs to merge.", ErrInvalidInput)
	}
	if len(pdfsBase64) > maxMergeSources {
		return nil, fmt.Errorf("%w: at most %d PDFs can be merged at once", ErrInvalidInput, maxMergeSources)
	}

	sources := make([]io.ReadSeeker, 0, len(pdfsBase64))
	total := 0
	for i, encoded := range pdfsBase64 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := s.decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("merge PDFs: document %d: %w", i, err)
		}
		total += len(raw)
		if total > s.maxBytes {
			return nil, fmt.Errorf("%w: combined PDFs exceed the %d byte limit", ErrInvalidInput, s.maxBytes)
		}
		sources = append(sources, bytes.NewReader(raw))
	}

	var out bytes.Buffer
	if err := api.MergeRaw(sources, &out, false, pdfConfig()); err != nil {
		return nil, fmt.Errorf("merge PDFs: %w", err)
	}

	merged, err := api.ReadContext(bytes.NewReader(out.Bytes()), pdfConfig())
	if err != nil {
		return nil, fmt.Errorf("merge PDFs: read result: %w", err)
	}
	if err := merged.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("merge PDFs: count pages: %w", err)
	}

	log.Logger.Info("merged PDFs",
		zap.Int("source_count", len(sources)),
		zap.Int("page_count", merged.PageCount),
		zap.Int("bytes", out.Len()),
	)

	return &model.PDFMerge{
		PDFBase64:   base64.StdEncoding.EncodeToString(out.Bytes()),
		PageCount:   merged.PageCount,
		SourceCount: len(sources),
	}, nil
}

const mergeSampleCode = `package main

import (
	"bytes"
	"encoding/base64"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func mergePDFs(pdfsBase64 []string) (string, error) {
	var sources []io.ReadSeeker
	for _, encoded := range pdfsBase64 {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", err
		}
		sources = append(sources, bytes.NewReader(raw))
	}

	var out bytes.Buffer
	if err := api.MergeRaw(sources, &out, false, nil); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out.Bytes()), nil
}
`

// MergeInfo describes how to merge pdfCount PDFs.
func MergeInfo(pdfCount int) (*model.PDFMergeInfo, error) {
	if pdfCount < 2 {
		return nil, fmt.Errorf("%w: You need at least 2 PDFs to merge.", ErrInvalidInput)
	}

	return &model.PDFMergeInfo{
		Description: fmt.Sprintf("Instructions for merging %d PDFs.", pdfCount),
		Steps: []string{
			"1. Decode each base64-encoded PDF into a bytes buffer.",
			"2. Wrap each buffer in a reader that supports seeking.",
			"3. Pass the readers, in the desired order, to a PDF merge routine.",
			"4. Write the merged output to a new bytes buffer.",
			"5. Base64-encode the result for transport.",
			fmt.Sprintf("6. Alternatively call the merge_pdfs tool with all %d documents.", pdfCount),
		},
		SampleCode: mergeSampleCode,
		PDFCount:   pdfCount,
	}, nil
}
