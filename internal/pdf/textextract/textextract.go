// Package textextract produces one plain-text string per page by asking
// ledongthuc/pdf for its extracted-text representation of that page.
package textextract

import (
	"bytes"
	"context"
	"log"
	"os"
	"runtime"

	"github.com/a3tai/pdfextract/internal/pdf/document"
	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// PageText is the plain-text content of a single page.
type PageText struct {
	Page int
	Text string
}

var logger = log.New(os.Stderr, "[textextract] ", log.LstdFlags)

// Extract returns one PageText per page of doc, in page order. A page whose
// text cannot be extracted yields the empty string rather than aborting the
// run; only the logger hears about it.
func Extract(doc *document.Document) []PageText {
	out := make([]PageText, doc.PageCount())
	for i := range out {
		out[i].Page = i + 1
	}
	if doc.PageCount() == 0 {
		return out
	}

	reader, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		logger.Printf("failed to open document for text extraction: %v", err)
		return out
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range out {
		i := i
		g.Go(func() error {
			out[i].Text = extractPage(reader, i+1)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func extractPage(reader *pdf.Reader, pageNum int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("page %d: recovered from panic during text extraction: %v", pageNum, r)
			text = ""
		}
	}()

	if pageNum < 1 || pageNum > reader.NumPage() {
		return ""
	}
	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		logger.Printf("page %d: text extraction failed: %v", pageNum, err)
		return ""
	}
	return content
}
