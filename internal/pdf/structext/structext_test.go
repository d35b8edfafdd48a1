package structext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessFewerThanThreePages(t *testing.T) {
	texts := []string{"Page 1 of 2\nbody one\nFooter", "Page 2 of 2\nbody two\nFooter"}
	out := Process(texts)
	require.Len(t, out, 2)
	for i, p := range out {
		assert.Empty(t, p.Header)
		assert.Empty(t, p.Footer)
		assert.Equal(t, texts[i], p.Body)
	}
}

func TestProcessDetectsRepeatedHeaderFooter(t *testing.T) {
	texts := []string{
		"Acme Corp Report\nPage 1 of 5\ncontent one\nConfidential",
		"Acme Corp Report\nPage 2 of 5\ncontent two\nConfidential",
		"Acme Corp Report\nPage 3 of 5\ncontent three\nConfidential",
		"Acme Corp Report\nPage 4 of 5\ncontent four\nConfidential",
	}

	out := Process(texts)
	require.Len(t, out, 4)

	for i, p := range out {
		assert.Contains(t, p.Header, "Acme Corp Report")
		assert.Contains(t, p.Header, "Page")
		assert.Equal(t, "Confidential", p.Footer)
		assert.NotContains(t, p.Body, "Acme Corp Report")
		assert.NotContains(t, p.Body, "Confidential")

		// every line of the original appears exactly once across header+body+footer
		rejoined := p.Header + "\n" + p.Body + "\n" + p.Footer
		for _, line := range strings.Split(texts[i], "\n") {
			assert.Equal(t, 1, strings.Count(rejoined, line))
		}
	}
}

func TestNormalizeDigitSentinel(t *testing.T) {
	assert.Equal(t, "Page # of #", normalize("Page 1 of 12"))
	assert.Equal(t, "Page # of #", normalize("Page 7 of 12"))
	assert.Equal(t, "plain text", normalize("  plain   text  "))
}

func TestProcessNoRepeatedLines(t *testing.T) {
	texts := []string{
		"alpha one\nbody a",
		"beta two\nbody b",
		"gamma three\nbody c",
	}
	out := Process(texts)
	require.Len(t, out, 3)
	for i, p := range out {
		assert.Empty(t, p.Header)
		assert.Empty(t, p.Footer)
		assert.Equal(t, texts[i], p.Body)
	}
}
