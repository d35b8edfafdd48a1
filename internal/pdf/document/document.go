// Package document builds the shared, immutable PDF object graph that every
// extractor in this module borrows by reference.
package document

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/a3tai/pdfextract/internal/pdf/custom"
	"github.com/a3tai/pdfextract/internal/pdf/perrors"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// maxPageTreeDepth bounds recursion through a malformed or cyclic /Pages tree.
const maxPageTreeDepth = 32

// maxResolveChain bounds how many indirect references Resolve will follow
// for a single object. The custom parser only dereferences one level at a
// time, so an object whose value is itself another indirect reference (or a
// reference cycle introduced by a malformed file) needs this loop to fully
// resolve or to fail safely instead of returning a still-indirect result.
const maxResolveChain = 16

// PageRef is a (page number, page object) pair together with the page
// attributes it inherited from ancestor Pages nodes, resolved once so every
// extractor can read them without re-walking the tree.
type PageRef struct {
	Number    int
	ObjectID  custom.ObjectID
	Dict      *custom.Dictionary
	Resources *custom.Dictionary
	MediaBox  *custom.Array
	CropBox   *custom.Array
	Rotate    int64
}

// Document holds the parsed PDF object graph and the ordered page list.
// It is immutable after New returns; every extractor borrows it read-only
// and may be handed the same *Document from multiple goroutines.
type Document struct {
	Data       []byte
	Version    string
	Linearized bool
	Pages      []PageRef

	parser    *custom.CustomPDFParser
	pdfcpuCtx *model.Context
	logger    *log.Logger
}

// New parses a raw PDF buffer into a Document. Structural pre-validation
// runs through pdfcpu first, surfacing a clear fatal error before the
// custom parser walks the object graph; this is the only error value
// document construction returns to the caller.
func New(data []byte) (*Document, error) {
	logger := log.New(os.Stderr, "[document] ", log.LstdFlags)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, perrors.WrapError(perrors.ErrorTypeInvalidStructure,
			fmt.Errorf("pdfcpu structural validation failed: %w", err))
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, perrors.WrapError(perrors.ErrorTypeInvalidStructure,
			fmt.Errorf("pdfcpu page count check failed: %w", err))
	}

	parser := custom.NewCustomPDFParser(bytes.NewReader(data))
	if err := parser.Parse(); err != nil {
		return nil, perrors.WrapError(perrors.ErrorTypeMalformedObject,
			fmt.Errorf("parse PDF object graph: %w", err))
	}

	doc := &Document{
		Data:       data,
		Version:    normalizeVersion(parser.GetVersion()),
		Linearized: detectLinearized(data),
		parser:     parser,
		pdfcpuCtx:  ctx,
		logger:     logger,
	}

	if err := doc.buildPageTree(); err != nil {
		return nil, perrors.WrapError(perrors.ErrorTypeMalformedPage,
			fmt.Errorf("build page tree: %w", err))
	}

	if len(doc.Pages) != ctx.PageCount {
		logger.Printf("page count mismatch: custom parser found %d pages, pdfcpu found %d",
			len(doc.Pages), ctx.PageCount)
	}

	return doc, nil
}

// PageCount returns the number of pages in document order.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// RefObjectID extracts the ObjectID from an indirect reference, returning
// the zero (invalid) ObjectID for direct objects. Exposed so extractors can
// record which indirect object a decoded resource came from.
func (d *Document) RefObjectID(obj custom.PDFObject) custom.ObjectID {
	return refObjectID(obj)
}

// PageNumberForObject returns the one-based page number of the page whose
// object identity matches id, used to resolve GoTo destinations that point
// at a page by indirect reference.
func (d *Document) PageNumberForObject(id custom.ObjectID) (int, bool) {
	if !id.IsValid() {
		return 0, false
	}
	for _, p := range d.Pages {
		if p.ObjectID == id {
			return p.Number, true
		}
	}
	return 0, false
}

// Resolve dereferences obj, following indirect-reference chains until it
// lands on a direct object. It returns obj unchanged if it is already
// direct. Resolution failures and reference cycles are never fatal to the
// caller; they are reported so the caller's extractor can skip the
// affected item.
func (d *Document) Resolve(obj custom.PDFObject) (custom.PDFObject, error) {
	if obj == nil {
		return &custom.Null{}, nil
	}

	var visited map[custom.ObjectID]bool
	for i := 0; i < maxResolveChain; i++ {
		if obj.Type() != custom.TypeIndirectRef {
			return obj, nil
		}

		id := obj.(*custom.IndirectRef).ObjectID
		if visited == nil {
			visited = make(map[custom.ObjectID]bool)
		}
		if visited[id] {
			return nil, fmt.Errorf("resolve indirect object: reference cycle at %s", id)
		}
		visited[id] = true

		resolved, err := d.parser.ResolveIndirectObject(obj)
		if err != nil {
			return nil, fmt.Errorf("resolve indirect object: %w", err)
		}
		obj = resolved
	}
	return nil, fmt.Errorf("resolve indirect object: exceeded %d-link reference chain", maxResolveChain)
}

// ResolveDictionary resolves obj and type-asserts the result to a
// Dictionary, returning ok=false on any mismatch or resolution failure.
func (d *Document) ResolveDictionary(obj custom.PDFObject) (*custom.Dictionary, bool) {
	resolved, err := d.Resolve(obj)
	if err != nil || resolved == nil || resolved.Type() != custom.TypeDictionary {
		return nil, false
	}
	return resolved.(*custom.Dictionary), true
}

// ResolveArray resolves obj and type-asserts the result to an Array.
func (d *Document) ResolveArray(obj custom.PDFObject) (*custom.Array, bool) {
	resolved, err := d.Resolve(obj)
	if err != nil || resolved == nil || resolved.Type() != custom.TypeArray {
		return nil, false
	}
	return resolved.(*custom.Array), true
}

// ResolveStream resolves obj and type-asserts the result to a Stream.
func (d *Document) ResolveStream(obj custom.PDFObject) (*custom.Stream, bool) {
	resolved, err := d.Resolve(obj)
	if err != nil || resolved == nil || resolved.Type() != custom.TypeStream {
		return nil, false
	}
	return resolved.(*custom.Stream), true
}

// InfoDictionary returns the document-info dictionary from the trailer, if
// present.
func (d *Document) InfoDictionary() (*custom.Dictionary, bool) {
	if d.parser == nil {
		return nil, false
	}
	trailer := d.parser.GetTrailer()
	if trailer == nil {
		return nil, false
	}
	return d.ResolveDictionary(trailer.Get("Info"))
}

// buildPageTree walks /Root -> /Pages, flattening the Pages/Page tree into
// an ordered, one-based PageRef list and resolving inherited attributes
// (Resources, MediaBox, CropBox, Rotate) along the way.
func (d *Document) buildPageTree() error {
	catalog := d.parser.GetCatalog()
	if catalog == nil {
		return fmt.Errorf("missing document catalog")
	}

	rootDict, ok := d.ResolveDictionary(catalog.Get("Pages"))
	if !ok {
		return fmt.Errorf("catalog /Pages is missing or not a dictionary")
	}

	visited := make(map[custom.ObjectID]bool)
	pageNum := 0

	var walk func(dict *custom.Dictionary, id custom.ObjectID, inherited inherited, depth int) error
	walk = func(dict *custom.Dictionary, id custom.ObjectID, inherited inherited, depth int) error {
		if depth > maxPageTreeDepth {
			return fmt.Errorf("page tree exceeds max depth %d", maxPageTreeDepth)
		}
		if id.IsValid() {
			if visited[id] {
				d.logger.Printf("skipping cyclic page tree reference to object %s", id)
				return nil
			}
			visited[id] = true
		}

		merged := inherited.merge(dict)

		kidsObj := dict.Get("Kids")
		if kidsObj.Type() == custom.TypeNull {
			// Leaf node: a Page.
			pageNum++
			d.Pages = append(d.Pages, PageRef{
				Number:    pageNum,
				ObjectID:  id,
				Dict:      dict,
				Resources: merged.resources,
				MediaBox:  merged.mediaBox,
				CropBox:   merged.cropBox,
				Rotate:    merged.rotate,
			})
			return nil
		}

		kids, ok := d.ResolveArray(kidsObj)
		if !ok {
			d.logger.Printf("malformed /Kids on page tree node %s", id)
			return nil
		}

		for _, kidObj := range kids.Elements {
			kidID := refObjectID(kidObj)
			kidDict, ok := d.ResolveDictionary(kidObj)
			if !ok {
				d.logger.Printf("skipping unresolved page tree kid %s", kidID)
				continue
			}
			if err := walk(kidDict, kidID, merged, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	rootID := refObjectID(catalog.Get("Pages"))
	return walk(rootDict, rootID, inherited{}, 0)
}

// inherited carries the page attributes a /Pages node may pass down to its
// children per the PDF page-tree inheritance rules.
type inherited struct {
	resources *custom.Dictionary
	mediaBox  *custom.Array
	cropBox   *custom.Array
	rotate    int64
}

func (in inherited) merge(dict *custom.Dictionary) inherited {
	out := in
	if res := dict.Get("Resources"); res.Type() == custom.TypeDictionary {
		out.resources = res.(*custom.Dictionary)
	}
	if mb := dict.Get("MediaBox"); mb.Type() == custom.TypeArray {
		out.mediaBox = mb.(*custom.Array)
	}
	if cb := dict.Get("CropBox"); cb.Type() == custom.TypeArray {
		out.cropBox = cb.(*custom.Array)
	}
	if rot := dict.Get("Rotate"); rot.Type() == custom.TypeNumber {
		out.rotate = rot.(*custom.Number).Int()
	}
	return out
}

// refObjectID extracts the ObjectID from an indirect reference, returning
// the zero value (invalid) for direct objects.
func refObjectID(obj custom.PDFObject) custom.ObjectID {
	if obj == nil || obj.Type() != custom.TypeIndirectRef {
		return custom.ObjectID{}
	}
	return obj.(*custom.IndirectRef).ObjectID
}

// normalizeVersion reduces a raw header version string like "1.7" (or a
// trailing garbage-laden variant) to a clean "X.Y" form.
func normalizeVersion(raw string) string {
	raw = strings.TrimSpace(raw)
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 {
		return raw
	}
	major := strings.TrimSpace(parts[0])
	minor := strings.TrimSpace(parts[1])
	for i, r := range minor {
		if r < '0' || r > '9' {
			minor = minor[:i]
			break
		}
	}
	if major == "" || minor == "" {
		return raw
	}
	return major + "." + minor
}

// detectLinearized reports whether the document declares itself linearized,
// by scanning the first object of the file for a /Linearized key. Full
// pdfcpu-grade linearization dictionary parsing is not needed here: the
// PDF spec requires the linearization dictionary to be the very first
// object, so a bounded prefix scan is sufficient and avoids re-parsing.
func detectLinearized(data []byte) bool {
	const scanWindow = 2048
	end := scanWindow
	if end > len(data) {
		end = len(data)
	}
	return bytes.Contains(data[:end], []byte("/Linearized"))
}
