package custom

import (
	"bytes"
	"compress/flate"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterRegistryCoversEveryDeclaredName(t *testing.T) {
	for _, name := range []string{
		"FlateDecode", "ASCIIHexDecode", "ASCII85Decode", "LZWDecode",
		"RunLengthDecode", "CCITTFaxDecode", "JBIG2Decode", "DCTDecode", "JPXDecode",
	} {
		decoder := GetFilterDecoder(name)
		require.NotNil(t, decoder, "filter %s should be registered", name)
		assert.Equal(t, name, decoder.Name())
	}

	assert.Nil(t, GetFilterDecoder("NoSuchFilter"))
}

func flateCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestFlateDecoderRoundTrip(t *testing.T) {
	decoder := &FlateDecoder{}
	original := []byte("the quick brown fox jumps over the lazy dog")

	decoded, err := decoder.Decode(flateCompress(t, original), nil)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestFlateDecoderEmptyData(t *testing.T) {
	decoded, err := (&FlateDecoder{}).Decode(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestFlateDecoderAppliesPNGAveragePredictor(t *testing.T) {
	decoder := &FlateDecoder{}
	params := NewDictionary()
	params.Set("Predictor", &Number{Value: int64(12)})
	params.Set("Columns", &Number{Value: int64(4)})
	params.Set("BitsPerComponent", &Number{Value: int64(8)})
	params.Set("Colors", &Number{Value: int64(1)})

	raw := []byte{3, 1, 2, 3, 4} // Average predictor tag byte + one row of 4 samples
	decoded, err := decoder.Decode(flateCompress(t, raw), params)
	require.NoError(t, err)
	// Each byte adds floor((left+up)/2); the first row has no "up" row.
	assert.Equal(t, []byte{1, 2, 4, 6}, decoded)
}

func TestASCIIHexDecoder(t *testing.T) {
	decoder := &ASCIIHexDecoder{}

	cases := map[string]struct {
		in, want []byte
	}{
		"plain":      {[]byte("48656C6C6F>"), []byte("Hello")},
		"whitespace": {[]byte("48 65 6C 6C 6F>"), []byte("Hello")},
		"oddLength":  {[]byte("48656C6C6>"), []byte("Hell`")}, // trailing nibble padded with 0
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			decoded, err := decoder.Decode(tc.in, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, decoded)
		})
	}

	decoded, err := decoder.Decode(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestASCII85Decoder(t *testing.T) {
	decoder := &ASCII85Decoder{}

	cases := map[string]struct {
		in, want []byte
	}{
		"withMarkers":    {[]byte("<~87cURD]~>"), []byte("Hello")},
		"withoutMarkers": {[]byte("87cURD]"), []byte("Hello")},
		"zeroGroup":      {[]byte("<~z~>"), []byte{0, 0, 0, 0}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			decoded, err := decoder.Decode(tc.in, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, decoded)
		})
	}

	decoded, err := decoder.Decode(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestLZWDecoderDoesNotPanicOnShortInput(t *testing.T) {
	decoder := &LZWDecoder{}

	_, err := decoder.Decode([]byte{0x80, 0x0B, 0x60, 0x50, 0x22, 0x0C, 0x0C, 0x85, 0x01}, nil)
	if err != nil {
		assert.Contains(t, err.Error(), "LZW decode error")
	}

	decoded, err := decoder.Decode(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestRunLengthDecoder(t *testing.T) {
	decoder := &RunLengthDecoder{}

	cases := map[string]struct {
		in   []byte
		want []byte
	}{
		"literalRun":   {[]byte{4, 'H', 'e', 'l', 'l', 'o', 128}, []byte("Hello")},
		"replicateRun": {[]byte{252, 'A', 128}, []byte("AAAAA")},
		"mixedRuns":    {[]byte{1, 'H', 'i', 254, '!', 128}, []byte("Hi!!!")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			decoded, err := decoder.Decode(tc.in, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, decoded)
		})
	}

	_, err := decoder.Decode([]byte{5, 'H', 'i'}, nil) // claims 6 bytes, has 2
	assert.ErrorContains(t, err, "insufficient data")

	decoded, err := decoder.Decode(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

// CCITTFaxDecode and JBIG2Decode have no real decompressor behind them (see
// filters.go); both must be honest identity passthroughs so imageextract's
// explicit "unsupported, skip" handling for these two filters never sees
// decoded-looking garbage.
func TestCCITTFaxAndJBIG2ArePassthroughs(t *testing.T) {
	data := []byte{0xFF, 0x00, 0x97, 0x4A, 0x42, 0x32}

	ccitt, err := (&CCITTFaxDecoder{}).Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, data, ccitt)

	jbig2, err := (&JBIG2Decoder{}).Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, data, jbig2)
}

func TestDCTAndJPXPassThroughRawBytes(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	decoded, err := (&DCTDecoder{}).Decode(jpeg, nil)
	require.NoError(t, err)
	assert.Equal(t, jpeg, decoded)

	jpx := []byte{0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20}
	decoded, err = (&JPXDecoder{}).Decode(jpx, nil)
	require.NoError(t, err)
	assert.Equal(t, jpx, decoded)
}

func TestDecodeStreamNoFilter(t *testing.T) {
	stream := &Stream{Dict: NewDictionary(), Data: []byte("Hello, World!")}
	decoded, err := DecodeStream(stream)
	require.NoError(t, err)
	assert.Equal(t, stream.Data, decoded)
}

func TestDecodeStreamSingleNamedFilter(t *testing.T) {
	dict := NewDictionary()
	dict.Set("Filter", &Name{Value: "ASCIIHexDecode"})
	stream := &Stream{Dict: dict, Data: []byte("48656C6C6F>")}

	decoded, err := DecodeStream(stream)
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello"), decoded)
}

func TestDecodeStreamRejectsUnregisteredFilter(t *testing.T) {
	dict := NewDictionary()
	dict.Set("Filter", &Name{Value: "NoSuchFilter"})
	stream := &Stream{Dict: dict, Data: []byte("data")}

	_, err := DecodeStream(stream)
	assert.ErrorContains(t, err, "unsupported filter")
}

func TestDecodeStreamPerFilterDecodeParms(t *testing.T) {
	dict := NewDictionary()
	dict.Set("Filter", &Name{Value: "FlateDecode"})
	params := NewDictionary()
	params.Set("Predictor", &Number{Value: int64(12)})
	dict.Set("DecodeParms", params)

	original := []byte("Test data for FlateDecode with parameters")
	// Columns defaults to 1, so each PNG-predicted row is a tag byte
	// (0 = None) followed by a single sample.
	var predicted []byte
	for _, b := range original {
		predicted = append(predicted, 0, b)
	}
	stream := &Stream{Dict: dict, Data: flateCompress(t, predicted)}

	decoded, err := DecodeStream(stream)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeStreamAppliesFilterChainInOrder(t *testing.T) {
	// "AAAAA" run-length encoded, then hex-encoded on top: the chain must
	// undo ASCIIHexDecode first and RunLengthDecode second.
	runLength := []byte{252, 'A', 128}
	hexData := hex.EncodeToString(runLength) + ">"

	dict := NewDictionary()
	filters := &Array{}
	filters.Add(&Name{Value: "ASCIIHexDecode"})
	filters.Add(&Name{Value: "RunLengthDecode"})
	dict.Set("Filter", filters)

	stream := &Stream{Dict: dict, Data: []byte(hexData)}
	decoded, err := DecodeStream(stream)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAAA"), decoded)
}
