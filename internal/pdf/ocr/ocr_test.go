package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, clamp(0, 1, 8))
	assert.Equal(t, 8, clamp(100, 1, 8))
	assert.Equal(t, 4, clamp(4, 1, 8))
}

func TestCountNonWhitespace(t *testing.T) {
	assert.Equal(t, 0, countNonWhitespace("   \n\t"))
	assert.Equal(t, 5, countNonWhitespace("hello"))
	assert.Equal(t, 5, countNonWhitespace(" h e l l o "))
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, "eng", opts.Lang)
	assert.Equal(t, 1, opts.MinTextLength)
	assert.Equal(t, 4, opts.MaxThreads)

	custom := Options{Lang: "fra", MinTextLength: 10, MaxThreads: 2}.withDefaults()
	assert.Equal(t, "fra", custom.Lang)
	assert.Equal(t, 10, custom.MinTextLength)
	assert.Equal(t, 2, custom.MaxThreads)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, "eng", opts.Lang)
	assert.Equal(t, 1, opts.MinTextLength)
	assert.Equal(t, 4, opts.MaxThreads)
}

func TestParseTessdataPath(t *testing.T) {
	output := "List of available languages in \"/usr/share/tessdata/\" (3):\neng\nfra\nosd\n"
	assert.Equal(t, "/usr/share/tessdata/", parseTessdataPath(output))

	assert.Equal(t, "", parseTessdataPath("tesseract: command not found"))
}
