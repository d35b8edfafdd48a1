// Package metaextract reads the document-info dictionary and deduplicates
// per-page box geometry into a compact PageBox list.
package metaextract

import (
	"math"
	"sort"

	"github.com/a3tai/pdfextract/internal/pdf/custom"
	"github.com/a3tai/pdfextract/internal/pdf/document"
)

// boxEpsilon is the tolerance used when comparing page-box coordinates
// expressed in PDF user units.
const boxEpsilon = 0.01

// BoxType names which page attribute a PageBox's geometry came from.
type BoxType string

const (
	CropBox  BoxType = "CropBox"
	MediaBox BoxType = "MediaBox"
	Unknown  BoxType = "Unknown"
)

// Meta is the document-level metadata the extractor produces.
type Meta struct {
	PageCount    int
	Version      string
	Linearized   bool
	Producer     string
	Creator      string
	CreationDate string
	ModDate      string
	PageBoxes    []PageBox
}

// PageBox groups the pages sharing one geometry tuple.
type PageBox struct {
	PageCount int
	Left      float64
	Bottom    float64
	Right     float64
	Top       float64
	Width     float64
	Height    float64
	BoxType   BoxType
	Pages     []int // nil for the most frequent entry
}

// Extract reads document-info and page geometry from doc.
func Extract(doc *document.Document) Meta {
	meta := Meta{
		PageCount:  doc.PageCount(),
		Version:    doc.Version,
		Linearized: doc.Linearized,
	}

	if info, ok := doc.InfoDictionary(); ok {
		meta.Producer = info.GetString("Producer")
		meta.Creator = info.GetString("Creator")
		meta.CreationDate = info.GetString("CreationDate")
		meta.ModDate = info.GetString("ModDate")
	}

	meta.PageBoxes = buildPageBoxes(doc)
	return meta
}

type geometry struct {
	left, bottom, right, top float64
	boxType                  BoxType
}

func buildPageBoxes(doc *document.Document) []PageBox {
	var order []geometry
	pagesByGeom := make(map[int][]int) // index into order -> page numbers

	findOrAdd := func(g geometry) int {
		for i, existing := range order {
			if existing.boxType == g.boxType &&
				math.Abs(existing.left-g.left) < boxEpsilon &&
				math.Abs(existing.bottom-g.bottom) < boxEpsilon &&
				math.Abs(existing.right-g.right) < boxEpsilon &&
				math.Abs(existing.top-g.top) < boxEpsilon {
				return i
			}
		}
		order = append(order, g)
		return len(order) - 1
	}

	for _, page := range doc.Pages {
		g, ok := pageGeometry(page)
		if !ok {
			continue
		}
		idx := findOrAdd(g)
		pagesByGeom[idx] = append(pagesByGeom[idx], page.Number)
	}

	boxes := make([]PageBox, 0, len(order))
	for i, g := range order {
		pages := pagesByGeom[i]
		boxes = append(boxes, PageBox{
			PageCount: len(pages),
			Left:      g.left,
			Bottom:    g.bottom,
			Right:     g.right,
			Top:       g.top,
			Width:     g.right - g.left,
			Height:    g.top - g.bottom,
			BoxType:   g.boxType,
			Pages:     pages,
		})
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].PageCount > boxes[j].PageCount
	})
	if len(boxes) > 0 {
		boxes[0].Pages = nil
	}
	return boxes
}

func pageGeometry(page document.PageRef) (geometry, bool) {
	if arr, boxType, ok := selectBox(page); ok {
		if arr.Len() != 4 {
			return geometry{}, false
		}
		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			num, ok := arr.Get(i).(*custom.Number)
			if !ok {
				return geometry{}, false
			}
			vals[i] = num.Float()
		}
		return geometry{left: vals[0], bottom: vals[1], right: vals[2], top: vals[3], boxType: boxType}, true
	}
	return geometry{}, false
}

func selectBox(page document.PageRef) (*custom.Array, BoxType, bool) {
	if page.CropBox != nil {
		return page.CropBox, CropBox, true
	}
	if page.MediaBox != nil {
		return page.MediaBox, MediaBox, true
	}
	return nil, Unknown, false
}
