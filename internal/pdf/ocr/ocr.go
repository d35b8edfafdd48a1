// Package ocr runs a dedicated, capacity-bounded Tesseract pass over pages
// whose native text layer is empty or too short.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode"

	"github.com/a3tai/pdfextract/internal/pdf/document"
	"github.com/a3tai/pdfextract/internal/pdf/imageextract"
	"github.com/a3tai/pdfextract/internal/pdf/structext"
	"github.com/a3tai/pdfextract/internal/pdf/textextract"
)

// Source tags which path produced a page's OCR-variant text.
type Source string

const (
	Native Source = "Native"
	Ocr    Source = "Ocr"
)

// Options configures the OCR fallback. Zero-value fields are replaced by
// DefaultOptions' defaults where a caller constructs one by hand.
type Options struct {
	Lang          string
	MinTextLength int
	MaxThreads    int
}

// DefaultOptions returns the fallback's documented defaults.
func DefaultOptions() Options {
	return Options{
		Lang:          "eng",
		MinTextLength: 1,
		MaxThreads:    4,
	}
}

func (o Options) withDefaults() Options {
	if o.Lang == "" {
		o.Lang = "eng"
	}
	if o.MinTextLength <= 0 {
		o.MinTextLength = 1
	}
	if o.MaxThreads <= 0 {
		o.MaxThreads = 4
	}
	return o
}

// PageText is one page's OCR-variant text, tagged with the path that
// produced it.
type PageText struct {
	Page   int
	Text   string
	Source Source
}

// StructuredPageText is the header/body/footer triple for one page, tagged
// with the path that produced the underlying text.
type StructuredPageText struct {
	Page   int
	Header string
	Body   string
	Footer string
	Source Source
}

var logger = log.New(os.Stderr, "[ocr] ", log.LstdFlags)

// pool is the process-wide OCR worker pool. Its size is fixed by whichever
// call to Run reaches the sync.Once first; a later call with a different
// MaxThreads does not resize it. This "first call wins" behavior is the
// chosen resolution of an open design question: the alternative (rebuild
// per call) would let a high-MaxThreads caller silently widen a pool another
// goroutine is already relying on being narrow.
var (
	poolOnce sync.Once
	poolSem  chan struct{}
)

func acquirePool(maxThreads int) chan struct{} {
	poolOnce.Do(func() {
		size := clamp(maxThreads, 1, runtime.NumCPU())
		poolSem = make(chan struct{}, size)
	})
	return poolSem
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Run produces one PageText per page of doc. Pages whose native text meets
// minTextLength keep their native text tagged Native; the rest are OCR'd
// page-image by page-image and concatenated in image-index order, tagged
// Ocr. Returns an error only if the Tesseract engine cannot be initialized
// at all (the binary is missing from PATH); per-page/per-image OCR
// failures are logged and contribute no text, never aborting the run.
func Run(ctx context.Context, doc *document.Document, opts Options) ([]PageText, error) {
	opts = opts.withDefaults()

	if _, err := exec.LookPath("tesseract"); err != nil {
		return nil, fmt.Errorf("tesseract engine not available: %w", err)
	}

	sem := acquirePool(opts.MaxThreads)
	native := textextract.Extract(doc)

	out := make([]PageText, doc.PageCount())
	var wg sync.WaitGroup

	for i, page := range doc.Pages {
		i, page := i, page
		nativeText := ""
		if i < len(native) {
			nativeText = native[i].Text
		}

		if countNonWhitespace(nativeText) >= opts.MinTextLength {
			out[i] = PageText{Page: page.Number, Text: nativeText, Source: Native}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out[i] = PageText{Page: page.Number, Text: ocrPage(ctx, doc, page, opts.Lang), Source: Ocr}
		}()
	}

	wg.Wait()
	return out, nil
}

// RunStructured runs Run and re-partitions the result into header/body/
// footer triples via the structured-text pass, preserving each page's
// source tag.
func RunStructured(ctx context.Context, doc *document.Document, opts Options) ([]StructuredPageText, error) {
	pages, err := Run(ctx, doc, opts)
	if err != nil {
		return nil, err
	}

	plain := make([]string, len(pages))
	for i, p := range pages {
		plain[i] = p.Text
	}
	structured := structext.Process(plain)

	out := make([]StructuredPageText, len(pages))
	for i, s := range structured {
		out[i] = StructuredPageText{
			Page:   s.Number,
			Header: s.Header,
			Body:   s.Body,
			Footer: s.Footer,
			Source: pages[i].Source,
		}
	}
	return out, nil
}

func countNonWhitespace(s string) int {
	count := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}

// ocrPage decodes every image on page (reusing the image extractor's PNG
// output, which Tesseract reads directly) and concatenates each image's
// OCR text in image-index order, separated by LF.
func ocrPage(ctx context.Context, doc *document.Document, page document.PageRef, lang string) string {
	images, _ := imageextract.ExtractPage(doc, page)
	if len(images) == 0 {
		return ""
	}

	tmpDir, err := os.MkdirTemp("", "pdfextract-ocr-*")
	if err != nil {
		logger.Printf("page %d: failed to create OCR temp dir: %v", page.Number, err)
		return ""
	}
	defer os.RemoveAll(tmpDir)

	var parts []string
	for _, img := range images {
		text, err := runTesseract(ctx, tmpDir, img.Index, img.Data, lang)
		if err != nil {
			logger.Printf("page %d image %d: tesseract failed: %v", page.Number, img.Index, err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func runTesseract(ctx context.Context, tmpDir string, index int, pngData []byte, lang string) (string, error) {
	imgPath := filepath.Join(tmpDir, fmt.Sprintf("image-%d.png", index))
	if err := os.WriteFile(imgPath, pngData, 0o600); err != nil {
		return "", fmt.Errorf("write temp image: %w", err)
	}

	args := []string{imgPath, "stdout"}
	if lang != "" {
		args = append(args, "-l", lang)
	}
	if prefix := tessdataPrefix(); prefix != "" {
		args = append(args, "--tessdata-dir", prefix)
	}

	cmd := exec.CommandContext(ctx, "tesseract", args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run tesseract: %w", err)
	}
	return stdout.String(), nil
}
