// Package assemble runs the text, image, and annotation extractors
// concurrently over a shared document and assembles the full PdfDocument
// result.
package assemble

import (
	"context"
	"log"
	"os"
	"sort"

	"github.com/a3tai/pdfextract/internal/pdf/annotextract"
	"github.com/a3tai/pdfextract/internal/pdf/document"
	"github.com/a3tai/pdfextract/internal/pdf/imageextract"
	"github.com/a3tai/pdfextract/internal/pdf/metaextract"
	"github.com/a3tai/pdfextract/internal/pdf/perrors"
	"github.com/a3tai/pdfextract/internal/pdf/structext"
	"github.com/a3tai/pdfextract/internal/pdf/textextract"
	"golang.org/x/sync/errgroup"
)

var logger = log.New(os.Stderr, "[assemble] ", log.LstdFlags)

// PdfDocument is the fully assembled extraction result for one PDF buffer.
type PdfDocument struct {
	PageCount    int
	Version      string
	Linearized   bool
	Producer     string
	Creator      string
	CreationDate string
	ModDate      string
	PageBoxes    []metaextract.PageBox

	Text           []textextract.PageText
	StructuredText []structext.Page
	Images         []imageextract.Image
	Annotations    []annotextract.Annotation

	TotalImages      int
	TotalAnnotations int
	ImagePages       []int
	AnnotationPages  []int
}

// Run extracts text, images, and annotations in parallel over doc, then
// appends metadata and the structured-text pass. It never re-parses: every
// branch borrows the document's already-built object graph.
func Run(doc *document.Document) PdfDocument {
	var texts []textextract.PageText
	var images []imageextract.Image
	var annotations []annotextract.Annotation
	var imageErrs, annotationErrs *perrors.ErrorCollection

	g, _ := errgroup.WithContext(context.Background())

	g.Go(func() error {
		texts = textextract.Extract(doc)
		return nil
	})
	g.Go(func() error {
		images, imageErrs = imageextract.Extract(doc)
		return nil
	})
	g.Go(func() error {
		annotations, annotationErrs = annotextract.Extract(doc)
		return nil
	})

	_ = g.Wait()

	softFailures := perrors.NewErrorCollection()
	softFailures.Merge(imageErrs)
	softFailures.Merge(annotationErrs)
	if softFailures.Count() > 0 {
		logger.Printf("extraction completed with %s", softFailures.Summary())
	}

	meta := metaextract.Extract(doc)

	plainText := make([]string, len(texts))
	for i, t := range texts {
		plainText[i] = t.Text
	}
	structured := structext.Process(plainText)

	result := PdfDocument{
		PageCount:    meta.PageCount,
		Version:      meta.Version,
		Linearized:   meta.Linearized,
		Producer:     meta.Producer,
		Creator:      meta.Creator,
		CreationDate: meta.CreationDate,
		ModDate:      meta.ModDate,
		PageBoxes:    meta.PageBoxes,

		Text:           texts,
		StructuredText: structured,
		Images:         images,
		Annotations:    annotations,

		TotalImages:      len(images),
		TotalAnnotations: len(annotations),
		ImagePages:       uniqueSortedPages(images, func(i imageextract.Image) int { return i.Page }),
		AnnotationPages:  uniqueSortedPages(annotations, func(a annotextract.Annotation) int { return a.Page }),
	}

	return result
}

func uniqueSortedPages[T any](items []T, pageOf func(T) int) []int {
	seen := make(map[int]bool)
	for _, item := range items {
		seen[pageOf(item)] = true
	}
	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}
