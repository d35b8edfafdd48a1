// Package pdfextract extracts structured content from PDF byte buffers:
// per-page plain text, embedded raster images re-encoded to PNG, link and
// annotation metadata, document-level metadata, and a header/footer-aware
// structured-text view. An optional OCR fallback covers pages whose native
// text layer is empty or too short.
package pdfextract

import (
	"context"

	"github.com/a3tai/pdfextract/internal/pdf/annotextract"
	"github.com/a3tai/pdfextract/internal/pdf/assemble"
	"github.com/a3tai/pdfextract/internal/pdf/document"
	"github.com/a3tai/pdfextract/internal/pdf/imageextract"
	"github.com/a3tai/pdfextract/internal/pdf/metaextract"
	"github.com/a3tai/pdfextract/internal/pdf/ocr"
	"github.com/a3tai/pdfextract/internal/pdf/structext"
	"github.com/a3tai/pdfextract/internal/pdf/textextract"
)

// PageText is the plain-text content of a single page.
type PageText = textextract.PageText

// StructuredPageText is a page's text partitioned into header/body/footer.
type StructuredPageText = structext.Page

// PageImage is a single decoded, PNG-encoded raster pulled from a page.
type PageImage = imageextract.Image

// PageAnnotation is a single normalized annotation record.
type PageAnnotation = annotextract.Annotation

// PageBox groups the pages that share one box geometry.
type PageBox = metaextract.PageBox

// BoxType names which page attribute a PageBox's geometry came from.
type BoxType = metaextract.BoxType

const (
	CropBox  = metaextract.CropBox
	MediaBox = metaextract.MediaBox
	Unknown  = metaextract.Unknown
)

// OcrOptions configures the OCR fallback. See DefaultOcrOptions for the
// documented defaults.
type OcrOptions = ocr.Options

// DefaultOcrOptions returns the OCR fallback's documented defaults
// (lang "eng", minTextLength 1, maxThreads 4 clamped to available CPUs).
func DefaultOcrOptions() OcrOptions {
	return ocr.DefaultOptions()
}

// OcrSource tags which path produced a page's OCR-variant text.
type OcrSource = ocr.Source

const (
	Native = ocr.Native
	Ocr    = ocr.Ocr
)

// OcrPageText is one page's OCR-variant text, tagged with its source.
type OcrPageText = ocr.PageText

// OcrStructuredPageText is the header/body/footer triple for one page,
// tagged with the source of the text it was derived from.
type OcrStructuredPageText = ocr.StructuredPageText

// PdfDocument is the full extraction result for one PDF buffer: all of
// PdfMeta's fields, plus totals and per-page arrays.
type PdfDocument = assemble.PdfDocument

// PdfReader is a handle over one parsed PDF buffer. It is immutable after
// construction and safe to share across goroutines; every extraction
// method borrows the parsed object graph by reference.
type PdfReader struct {
	doc *document.Document
}

// Open parses data into a PdfReader. The only error this module returns to
// a caller is a fatal structural parse failure on the whole document.
func Open(data []byte) (*PdfReader, error) {
	doc, err := document.New(data)
	if err != nil {
		return nil, err
	}
	return &PdfReader{doc: doc}, nil
}

// PageCount returns the number of pages in the document.
func (r *PdfReader) PageCount() int {
	return r.doc.PageCount()
}

// Text returns one plain-text string per page, in page order.
func (r *PdfReader) Text() []PageText {
	return textextract.Extract(r.doc)
}

// StructuredText returns the header/body/footer partition of every page's
// text.
func (r *PdfReader) StructuredText() []StructuredPageText {
	texts := textextract.Extract(r.doc)
	plain := make([]string, len(texts))
	for i, t := range texts {
		plain[i] = t.Text
	}
	return structext.Process(plain)
}

// Images returns every decoded image across every page, grouped by page
// ascending then image index ascending.
func (r *PdfReader) Images() []PageImage {
	images, _ := imageextract.Extract(r.doc)
	return images
}

// Annotations returns every normalized annotation across every page.
func (r *PdfReader) Annotations() []PageAnnotation {
	annotations, _ := annotextract.Extract(r.doc)
	return annotations
}

// Meta returns document-level metadata and deduplicated page-box geometry.
func (r *PdfReader) Meta() metaextract.Meta {
	return metaextract.Extract(r.doc)
}

// Extract runs the full pipeline: text, image, and annotation extraction in
// parallel, followed by metadata and the structured-text pass, producing a
// complete PdfDocument.
func (r *PdfReader) Extract() PdfDocument {
	return assemble.Run(r.doc)
}

// ExtractAsync runs Extract on a separate goroutine and returns a channel
// that receives the single result. The async and sync variants produce
// byte-identical results on the same buffer; this only moves the blocking
// computation off the caller's goroutine.
func (r *PdfReader) ExtractAsync() <-chan PdfDocument {
	ch := make(chan PdfDocument, 1)
	go func() {
		ch <- r.Extract()
		close(ch)
	}()
	return ch
}

// TextWithOcr runs the OCR fallback: pages whose native text is shorter
// than opts.MinTextLength are re-derived from Tesseract OCR over the
// page's images; the rest keep their native text. The only error returned
// is OCR engine initialization failure (the tesseract binary is missing).
func (r *PdfReader) TextWithOcr(ctx context.Context, opts OcrOptions) ([]OcrPageText, error) {
	return ocr.Run(ctx, r.doc, opts)
}

// StructuredTextWithOcr is TextWithOcr followed by the structured-text
// pass, preserving each page's OCR source tag.
func (r *PdfReader) StructuredTextWithOcr(ctx context.Context, opts OcrOptions) ([]OcrStructuredPageText, error) {
	return ocr.RunStructured(ctx, r.doc, opts)
}

// TextWithOcrAsync runs TextWithOcr on a separate goroutine, reporting its
// result (or error) on a buffered channel of size 1.
func (r *PdfReader) TextWithOcrAsync(ctx context.Context, opts OcrOptions) <-chan OcrTextResult {
	ch := make(chan OcrTextResult, 1)
	go func() {
		text, err := r.TextWithOcr(ctx, opts)
		ch <- OcrTextResult{Text: text, Err: err}
		close(ch)
	}()
	return ch
}

// OcrTextResult pairs an OCR text result with the error from its call.
type OcrTextResult struct {
	Text []OcrPageText
	Err  error
}
