package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/a3tai/pdfextract"
)

var (
	version = "dev" // set by build flags
)

// summary is the JSON shape printed for one extracted PDF.
type summary struct {
	File             string `json:"file"`
	Version          string `json:"pdfVersion"`
	PageCount        int    `json:"pageCount"`
	TotalImages      int    `json:"totalImages"`
	TotalAnnotations int    `json:"totalAnnotations"`
	PageTextLengths  []int  `json:"pageTextLengths"`
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "print version and exit")
		ocrFlag     = flag.Bool("ocr", false, "fall back to OCR on pages with little or no native text")
		lang        = flag.String("lang", "eng", "Tesseract language code used when -ocr is set")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <pdf-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *ocrFlag, *lang); err != nil {
		log.Fatalf("pdfextract: %v", err)
	}
}

func run(path string, withOCR bool, lang string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	reader, err := pdfextract.Open(data)
	if err != nil {
		return fmt.Errorf("open PDF: %w", err)
	}

	doc := reader.Extract()

	out := summary{
		File:             path,
		Version:          doc.Version,
		PageCount:        doc.PageCount,
		TotalImages:      doc.TotalImages,
		TotalAnnotations: doc.TotalAnnotations,
		PageTextLengths:  make([]int, len(doc.Text)),
	}
	for i, t := range doc.Text {
		out.PageTextLengths[i] = len(t.Text)
	}

	if withOCR {
		opts := pdfextract.DefaultOcrOptions()
		opts.Lang = lang
		ocrPages, err := reader.TextWithOcr(context.Background(), opts)
		if err != nil {
			return fmt.Errorf("OCR: %w", err)
		}
		for i, p := range ocrPages {
			if i < len(out.PageTextLengths) {
				out.PageTextLengths[i] = len(p.Text)
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
