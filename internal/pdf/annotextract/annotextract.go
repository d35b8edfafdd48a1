// Package annotextract walks each page's /Annots array and resolves link
// targets through the action/destination pointer graph.
package annotextract

import (
	"log"
	"os"
	"strconv"

	"github.com/a3tai/pdfextract/internal/pdf/custom"
	"github.com/a3tai/pdfextract/internal/pdf/document"
	"github.com/a3tai/pdfextract/internal/pdf/perrors"
)

// maxDestDepth bounds recursion through a malformed or cyclic action/
// destination chain.
const maxDestDepth = 8

// Annotation is a single normalized annotation record.
type Annotation struct {
	Page        int
	Subtype     string
	Rect        []float64 // exactly 4 elements, or nil/empty if malformed
	URI         string
	Destination string
	Content     string
}

var logger = log.New(os.Stderr, "[annotextract] ", log.LstdFlags)

// Extract walks /Annots on every page of doc and returns the normalized
// records grouped by page ascending, in each page's own array order. A
// failure to resolve any single annotation (or the /Annots array itself) is
// logged, recorded in the returned collection, and the annotation is
// omitted; it never fails the page or the document.
func Extract(doc *document.Document) ([]Annotation, *perrors.ErrorCollection) {
	var out []Annotation
	errs := perrors.NewErrorCollection()
	for _, page := range doc.Pages {
		pageOut, pageErrs := ExtractPage(doc, page)
		out = append(out, pageOut...)
		errs.Merge(pageErrs)
	}
	return out, errs
}

// ExtractPage walks /Annots on a single page.
func ExtractPage(doc *document.Document, page document.PageRef) ([]Annotation, *perrors.ErrorCollection) {
	errs := perrors.NewErrorCollection()
	annotsObj := page.Dict.Get("Annots")
	if annotsObj.Type() == custom.TypeNull {
		return nil, errs
	}

	annots, ok := doc.ResolveArray(annotsObj)
	if !ok {
		logger.Printf("page %d: malformed /Annots", page.Number)
		errs.Add(perrors.NewPDFError(perrors.ErrorTypeInvalidAnnotation, "malformed /Annots").WithPage(page.Number))
		return nil, errs
	}

	var out []Annotation
	for _, ref := range annots.Elements {
		dict, ok := doc.ResolveDictionary(ref)
		if !ok {
			logger.Printf("page %d: skipping unresolved annotation", page.Number)
			errs.Add(perrors.NewPDFError(perrors.ErrorTypeInvalidAnnotation, "unresolved annotation reference").WithPage(page.Number))
			continue
		}
		out = append(out, buildAnnotation(doc, page.Number, dict))
	}
	return out, errs
}

func buildAnnotation(doc *document.Document, pageNum int, dict *custom.Dictionary) Annotation {
	ann := Annotation{
		Page:    pageNum,
		Subtype: "Unknown",
	}
	if subtype := dict.GetName("Subtype"); subtype != "" {
		ann.Subtype = subtype
	}

	ann.Rect = readRect(dict.Get("Rect"))
	ann.Content = dict.GetString("Contents")

	visited := make(map[custom.ObjectID]bool)

	if actionDict, ok := doc.ResolveDictionary(dict.Get("A")); ok {
		switch actionDict.GetName("S") {
		case "URI":
			ann.URI = actionDict.GetString("URI")
		case "GoTo":
			ann.Destination = resolveDestination(doc, actionDict.Get("D"), visited, 0)
		}
	}

	if ann.URI == "" && ann.Destination == "" {
		if destObj := dict.Get("Dest"); destObj.Type() != custom.TypeNull {
			ann.Destination = resolveDestination(doc, destObj, visited, 0)
		}
	}

	return ann
}

func readRect(obj custom.PDFObject) []float64 {
	arr, ok := obj.(*custom.Array)
	if !ok || arr.Len() != 4 {
		return nil
	}
	rect := make([]float64, 4)
	for i := 0; i < 4; i++ {
		num, ok := arr.Get(i).(*custom.Number)
		if !ok {
			return nil
		}
		rect[i] = num.Float()
	}
	return rect
}

// resolveDestination resolves a /Dest (or GoTo action's /D) entry to its
// textual form. Named destinations pass through as-is; explicit
// destination arrays whose first element is a page reference resolve to
// the one-based page number; anything else falls back to the object's own
// string form.
func resolveDestination(doc *document.Document, obj custom.PDFObject, visited map[custom.ObjectID]bool, depth int) string {
	if depth > maxDestDepth {
		return ""
	}

	resolved, err := doc.Resolve(obj)
	if err != nil || resolved == nil {
		return ""
	}

	switch resolved.Type() {
	case custom.TypeName:
		return resolved.(*custom.Name).Value
	case custom.TypeString:
		return resolved.(*custom.String).Value
	case custom.TypeArray:
		arr := resolved.(*custom.Array)
		if arr.Len() == 0 {
			return ""
		}
		first := arr.Get(0)
		if first.Type() == custom.TypeIndirectRef {
			id := first.(*custom.IndirectRef).ObjectID
			if visited[id] {
				return ""
			}
			visited[id] = true
			if pageNum, ok := doc.PageNumberForObject(id); ok {
				return strconv.Itoa(pageNum)
			}
		}
		return arr.String()
	default:
		return resolved.String()
	}
}
