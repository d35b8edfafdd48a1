package custom

import (
	"bytes"
	"compress/flate"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// TestDecodeStreamChainsHexThenFlate exercises the common producer of a
// binary stream embedded in a text-safe PDF body: deflate, then hex-encode.
func TestDecodeStreamChainsHexThenFlate(t *testing.T) {
	original := []byte("This is test data for PDF filter integration testing")
	hexEncoded := hex.EncodeToString(deflate(t, original)) + ">"

	dict := NewDictionary()
	filters := &Array{}
	filters.Add(&Name{Value: "ASCIIHexDecode"})
	filters.Add(&Name{Value: "FlateDecode"})
	dict.Set("Filter", filters)

	stream := &Stream{Dict: dict, Data: []byte(hexEncoded)}
	decoded, err := DecodeStream(stream)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeStreamHonorsNoPredictor(t *testing.T) {
	original := []byte("Test data with predictor")
	dict := NewDictionary()
	dict.Set("Filter", &Name{Value: "FlateDecode"})
	params := NewDictionary()
	params.Set("Predictor", &Number{Value: int64(1)})
	dict.Set("DecodeParms", params)

	stream := &Stream{Dict: dict, Data: deflate(t, original)}
	decoded, err := DecodeStream(stream)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

// TestDecodeStreamPerFilterParmsArray verifies that a DecodeParms array is
// matched positionally against a Filter array, including a Null entry for a
// filter that takes no parameters.
func TestDecodeStreamPerFilterParmsArray(t *testing.T) {
	original := []byte("Multi-filter test")
	hexEncoded := hex.EncodeToString(deflate(t, original)) + ">"

	dict := NewDictionary()
	filters := &Array{}
	filters.Add(&Name{Value: "ASCIIHexDecode"})
	filters.Add(&Name{Value: "FlateDecode"})
	dict.Set("Filter", filters)

	parms := &Array{}
	parms.Add(&Null{})
	flateParms := NewDictionary()
	flateParms.Set("Predictor", &Number{Value: int64(1)})
	parms.Add(flateParms)
	dict.Set("DecodeParms", parms)

	stream := &Stream{Dict: dict, Data: []byte(hexEncoded)}
	decoded, err := DecodeStream(stream)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	// The dictionary itself should also expose the extracted values directly.
	gotParms := dict.Get("DecodeParms").(*Array)
	require.Equal(t, 2, gotParms.Len())
	assert.Equal(t, TypeNull, gotParms.Get(0).Type())
	assert.Equal(t, int64(1), gotParms.Get(1).(*Dictionary).GetInt("Predictor"))
}

// CCITTFaxDecode has no real Group 3/4 decoder behind it (see filters.go);
// DecodeParms (K/Columns/Rows/BlackIs1) are accepted but have no effect,
// since the filter always echoes its input unchanged.
func TestDecodeStreamCCITTFaxIgnoresParms(t *testing.T) {
	dict := NewDictionary()
	dict.Set("Filter", &Name{Value: "CCITTFaxDecode"})
	params := NewDictionary()
	params.Set("K", &Number{Value: int64(0)})
	params.Set("Columns", &Number{Value: int64(8)})
	params.Set("Rows", &Number{Value: int64(1)})
	params.Set("BlackIs1", &Bool{Value: false})
	dict.Set("DecodeParms", params)

	faxData := []byte{0xFF, 0x00, 0xAB}
	stream := &Stream{Dict: dict, Data: faxData}

	decoded, err := DecodeStream(stream)
	require.NoError(t, err)
	assert.Equal(t, faxData, decoded)
}

func TestDecodeStreamRunLengthAndDCTPassthrough(t *testing.T) {
	rleDict := NewDictionary()
	rleDict.Set("Filter", &Name{Value: "RunLengthDecode"})
	rleStream := &Stream{Dict: rleDict, Data: []byte{252, 'A', 128}}
	decoded, err := DecodeStream(rleStream)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAAA"), decoded)

	jpegData := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	dctDict := NewDictionary()
	dctDict.Set("Filter", &Name{Value: "DCTDecode"})
	dctStream := &Stream{Dict: dctDict, Data: jpegData}
	decoded, err = DecodeStream(dctStream)
	require.NoError(t, err)
	assert.Equal(t, jpegData, decoded)
}

func TestDecodeStreamLZWSurvivesGarbageWithoutPanicking(t *testing.T) {
	dict := NewDictionary()
	dict.Set("Filter", &Name{Value: "LZWDecode"})
	params := NewDictionary()
	params.Set("EarlyChange", &Number{Value: int64(1)})
	dict.Set("DecodeParms", params)

	stream := &Stream{Dict: dict, Data: []byte{0x80, 0x0B, 0x60, 0x50, 0x22, 0x0C, 0x0C, 0x85, 0x01}}
	_, err := DecodeStream(stream)
	if err != nil {
		assert.Contains(t, err.Error(), "LZW decode error")
	}
}

func TestDecodeStreamErrorPaths(t *testing.T) {
	t.Run("unknownFilterName", func(t *testing.T) {
		dict := NewDictionary()
		dict.Set("Filter", &Name{Value: "UnsupportedFilterType"})
		stream := &Stream{Dict: dict, Data: []byte("test data")}

		_, err := DecodeStream(stream)
		assert.ErrorContains(t, err, "unsupported filter")
	})

	t.Run("unknownFilterMidChain", func(t *testing.T) {
		dict := NewDictionary()
		filters := &Array{}
		filters.Add(&Name{Value: "ASCIIHexDecode"})
		filters.Add(&Name{Value: "UnsupportedFilter"})
		dict.Set("Filter", filters)
		stream := &Stream{Dict: dict, Data: []byte("48656C6C6F>")}

		_, err := DecodeStream(stream)
		assert.ErrorContains(t, err, "unsupported filter")
	})

	t.Run("hexDataMissingEndMarker", func(t *testing.T) {
		dict := NewDictionary()
		dict.Set("Filter", &Name{Value: "ASCIIHexDecode"})
		stream := &Stream{Dict: dict, Data: []byte("invalid hex data without end marker")}

		decoded, err := DecodeStream(stream)
		require.NoError(t, err)
		assert.NotNil(t, decoded)
	})

	t.Run("runLengthClaimsMoreThanAvailable", func(t *testing.T) {
		dict := NewDictionary()
		dict.Set("Filter", &Name{Value: "RunLengthDecode"})
		stream := &Stream{Dict: dict, Data: []byte{5, 'H', 'i'}}

		_, err := DecodeStream(stream)
		assert.ErrorContains(t, err, "insufficient data")
	})
}

func TestDecodeStreamHandlesLargeFlateInput(t *testing.T) {
	original := bytes.Repeat([]byte("Large data test for filter performance. "), 1000)
	dict := NewDictionary()
	dict.Set("Filter", &Name{Value: "FlateDecode"})
	stream := &Stream{Dict: dict, Data: deflate(t, original)}

	decoded, err := DecodeStream(stream)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
	assert.Greater(t, len(decoded), 10000)
}
