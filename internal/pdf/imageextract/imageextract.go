// Package imageextract walks each page's XObject resources and re-encodes
// every embedded raster image to PNG.
package imageextract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"runtime"

	"github.com/a3tai/pdfextract/internal/pdf/custom"
	"github.com/a3tai/pdfextract/internal/pdf/document"
	"github.com/a3tai/pdfextract/internal/pdf/perrors"
	"golang.org/x/sync/errgroup"
)

// Image is a single decoded, PNG-re-encoded raster pulled from a page's
// resource dictionary.
type Image struct {
	Page             int
	Index            int
	Width            int
	Height           int
	Data             []byte
	ColorSpace       string
	BitsPerComponent int
	Filter           string
	Resource         string
	ObjectID         string
}

var logger = log.New(os.Stderr, "[imageextract] ", log.LstdFlags)

// Extract decodes every image XObject referenced from every page of doc,
// grouped by page ascending then by image index ascending. A failure to
// decode any single image is logged, recorded in the returned collection,
// and the image is omitted; it never fails the page or the document.
func Extract(doc *document.Document) ([]Image, *perrors.ErrorCollection) {
	perPage := make([][]Image, doc.PageCount())
	perPageErrs := make([]*perrors.ErrorCollection, doc.PageCount())

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, page := range doc.Pages {
		i, page := i, page
		g.Go(func() error {
			perPage[i], perPageErrs[i] = ExtractPage(doc, page)
			return nil
		})
	}
	_ = g.Wait()

	var out []Image
	errs := perrors.NewErrorCollection()
	for i, imgs := range perPage {
		out = append(out, imgs...)
		errs.Merge(perPageErrs[i])
	}
	return out, errs
}

// ExtractPage decodes every image XObject on a single page, in the
// resource dictionary's own traversal order.
func ExtractPage(doc *document.Document, page document.PageRef) ([]Image, *perrors.ErrorCollection) {
	errs := perrors.NewErrorCollection()
	if page.Resources == nil {
		return nil, errs
	}

	xobjDict, ok := doc.ResolveDictionary(page.Resources.Get("XObject"))
	if !ok {
		return nil, errs
	}

	var images []Image
	idx := 0
	for _, key := range xobjDict.Keys {
		ref := xobjDict.Values[key.Value]
		stream, ok := doc.ResolveStream(ref)
		if !ok {
			continue
		}
		if stream.Dict.GetName("Subtype") != "Image" {
			continue
		}

		img, err := decodeImage(doc, stream, ref, key.Value)
		if err != nil {
			logger.Printf("page %d: skipping image %q: %v", page.Number, key.Value, err)
			errs.Add(perrors.WrapError(perrors.ErrorTypeInvalidImage, err).WithPage(page.Number))
			continue
		}
		img.Page = page.Number
		img.Index = idx
		images = append(images, img)
		idx++
	}
	return images, errs
}

func decodeImage(doc *document.Document, stream *custom.Stream, ref custom.PDFObject, resourceName string) (Image, error) {
	width := int(stream.Dict.GetInt("Width"))
	height := int(stream.Dict.GetInt("Height"))
	if width <= 0 || height <= 0 {
		return Image{}, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}

	bpc := int(stream.Dict.GetInt("BitsPerComponent"))
	if bpc == 0 {
		bpc = 8
	}
	if bpc != 8 && bpc != 16 {
		return Image{}, fmt.Errorf("unsupported bits-per-component %d", bpc)
	}

	filters := stream.GetFilter()
	filterClass := "None"
	if len(filters) > 0 {
		filterClass = filters[len(filters)-1]
	}

	objID := ""
	if id := doc.RefObjectID(ref); id.IsValid() {
		objID = id.String()
	}

	csLabel, channels, csOK := resolveColorSpace(doc, stream.Dict.Get("ColorSpace"))

	var img image.Image
	switch filterClass {
	case "DCTDecode":
		data, err := custom.DecodeStream(stream)
		if err != nil {
			return Image{}, fmt.Errorf("decode stream: %w", err)
		}
		decoded, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return Image{}, fmt.Errorf("JPEG decode: %w", err)
		}
		bounds := decoded.Bounds()
		rgba := image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, decoded, bounds.Min, draw.Src)
		img = rgba
		width, height = bounds.Dx(), bounds.Dy()
		if csLabel == "" {
			csLabel = "DeviceRGB"
		}

	case "JPXDecode":
		// No JPEG 2000 codec is available in this module's dependency
		// stack (see DESIGN.md); treat as an unsupported filter.
		return Image{}, fmt.Errorf("JPEG2000 (JPXDecode) decoding is not supported")

	case "CCITTFaxDecode", "JBIG2Decode":
		// Neither fax-group decompression nor JBIG2's arithmetic coding is
		// implemented (see custom.CCITTFaxDecoder/JBIG2Decoder); both
		// filters are 1-bit-per-component rasters this module never turns
		// into samples, so skip rather than emit a garbage image.
		return Image{}, fmt.Errorf("%s decoding is not supported", filterClass)

	case "FlateDecode", "LZWDecode", "ASCIIHexDecode", "ASCII85Decode", "RunLengthDecode", "None":
		if !csOK {
			return Image{}, fmt.Errorf("unsupported or unresolved color space")
		}
		data, err := custom.DecodeStream(stream)
		if err != nil {
			return Image{}, fmt.Errorf("decode stream: %w", err)
		}
		decoded, err := decodeRawSamples(data, width, height, bpc, channels)
		if err != nil {
			return Image{}, err
		}
		img = decoded

	default:
		return Image{}, fmt.Errorf("unsupported filter %q", filterClass)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Image{}, fmt.Errorf("PNG encode: %w", err)
	}

	return Image{
		Width:            width,
		Height:           height,
		Data:             buf.Bytes(),
		ColorSpace:       csLabel,
		BitsPerComponent: bpc,
		Filter:           filterClass,
		Resource:         resourceName,
		ObjectID:         objID,
	}, nil
}

// resolveColorSpace resolves a /ColorSpace entry to a label and channel
// count. ICCBased spaces fall back to their /N parameter (1/3/4 -> gray,
// RGB, CMYK). Anything else reports ok=false so the caller can skip the
// image per the spec's "unknown color space" soft-error policy.
func resolveColorSpace(doc *document.Document, obj custom.PDFObject) (label string, channels int, ok bool) {
	resolved, err := doc.Resolve(obj)
	if err != nil || resolved == nil {
		return "", 0, false
	}

	switch resolved.Type() {
	case custom.TypeName:
		name := resolved.(*custom.Name).Value
		switch name {
		case "DeviceGray":
			return name, 1, true
		case "DeviceRGB":
			return name, 3, true
		case "DeviceCMYK":
			return name, 4, true
		default:
			return name, 0, false
		}

	case custom.TypeArray:
		arr := resolved.(*custom.Array)
		if arr.Len() == 0 || arr.Get(0).Type() != custom.TypeName {
			return "", 0, false
		}
		name := arr.Get(0).(*custom.Name).Value
		if name == "ICCBased" && arr.Len() > 1 {
			iccStream, ok := doc.ResolveStream(arr.Get(1))
			if !ok {
				return "ICCBased", 0, false
			}
			switch iccStream.Dict.GetInt("N") {
			case 1:
				return "ICCBased", 1, true
			case 3:
				return "ICCBased", 3, true
			case 4:
				return "ICCBased", 4, true
			default:
				return "ICCBased", 0, false
			}
		}
		return name, 0, false

	default:
		return "", 0, false
	}
}

// decodeRawSamples interprets un-filtered (or Flate-decompressed) pixel
// samples per color space, downshifting 16-bit samples to 8-bit by taking
// the high byte of each sample. Grayscale rasters are preserved as Gray8;
// RGB and CMYK both produce an RGBA8 raster (CMYK converted with the naive
// R=(1-C)(1-K) formula).
func decodeRawSamples(data []byte, width, height, bpc, channels int) (image.Image, error) {
	bytesPerSample := 1
	if bpc == 16 {
		bytesPerSample = 2
	}
	rowBytes := width * channels * bytesPerSample
	needed := rowBytes * height
	if len(data) < needed {
		return nil, fmt.Errorf("raw sample data too short: need %d bytes, have %d", needed, len(data))
	}

	sample := func(row, col, ch int) byte {
		base := row*rowBytes + (col*channels+ch)*bytesPerSample
		return data[base] // high byte for 16-bit samples
	}

	switch channels {
	case 1:
		gray := image.NewGray(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				gray.SetGray(x, y, color.Gray{Y: sample(y, x, 0)})
			}
		}
		return gray, nil

	case 3:
		rgba := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				rgba.SetRGBA(x, y, color.RGBA{
					R: sample(y, x, 0),
					G: sample(y, x, 1),
					B: sample(y, x, 2),
					A: 255,
				})
			}
		}
		return rgba, nil

	case 4:
		rgba := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := float64(sample(y, x, 0)) / 255
				m := float64(sample(y, x, 1)) / 255
				ye := float64(sample(y, x, 2)) / 255
				k := float64(sample(y, x, 3)) / 255
				r := (1 - c) * (1 - k) * 255
				g := (1 - m) * (1 - k) * 255
				b := (1 - ye) * (1 - k) * 255
				rgba.SetRGBA(x, y, color.RGBA{
					R: uint8(r + 0.5),
					G: uint8(g + 0.5),
					B: uint8(b + 0.5),
					A: 255,
				})
			}
		}
		return rgba, nil

	default:
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
}
