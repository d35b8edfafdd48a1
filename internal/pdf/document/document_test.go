package document

import (
	"testing"

	"github.com/a3tai/pdfextract/internal/pdf/custom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVersion(t *testing.T) {
	cases := map[string]string{
		"1.7":       "1.7",
		" 1.4 ":     "1.4",
		"1.7garbage": "1.7",
		"2":         "2",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeVersion(in), "input %q", in)
	}
}

func TestDetectLinearized(t *testing.T) {
	assert.True(t, detectLinearized([]byte("%PDF-1.4\n1 0 obj<</Linearized 1>>endobj")))
	assert.False(t, detectLinearized([]byte("%PDF-1.4\n1 0 obj<</Type/Catalog>>endobj")))
}

func TestInheritedMerge(t *testing.T) {
	parentResources := custom.NewDictionary()
	parentResources.Set("Font", &custom.Name{Value: "F1"})

	parent := custom.NewDictionary()
	parent.Set("Resources", parentResources)
	parent.Set("Rotate", &custom.Number{Value: int64(90)})

	child := custom.NewDictionary()
	child.Set("MediaBox", &custom.Array{Elements: []custom.PDFObject{
		&custom.Number{Value: int64(0)}, &custom.Number{Value: int64(0)},
		&custom.Number{Value: int64(612)}, &custom.Number{Value: int64(792)},
	}})

	merged := inherited{}.merge(parent)
	merged = merged.merge(child)

	require.NotNil(t, merged.resources)
	assert.Equal(t, parentResources, merged.resources)
	assert.Equal(t, int64(90), merged.rotate)
	require.NotNil(t, merged.mediaBox)
	assert.Equal(t, 4, merged.mediaBox.Len())
}

func TestRefObjectID(t *testing.T) {
	ref := &custom.IndirectRef{ObjectID: custom.ObjectID{Number: 7, Generation: 0}}
	assert.Equal(t, custom.ObjectID{Number: 7, Generation: 0}, refObjectID(ref))

	direct := &custom.Number{Value: int64(1)}
	assert.False(t, refObjectID(direct).IsValid())
}

func TestPageNumberForObject(t *testing.T) {
	doc := &Document{
		Pages: []PageRef{
			{Number: 1, ObjectID: custom.ObjectID{Number: 5, Generation: 0}},
			{Number: 2, ObjectID: custom.ObjectID{Number: 6, Generation: 0}},
		},
	}

	n, ok := doc.PageNumberForObject(custom.ObjectID{Number: 6, Generation: 0})
	require.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = doc.PageNumberForObject(custom.ObjectID{Number: 99, Generation: 0})
	assert.False(t, ok)

	_, ok = doc.PageNumberForObject(custom.ObjectID{})
	assert.False(t, ok)
}

func TestResolveDirectObjects(t *testing.T) {
	doc := &Document{}

	dict := custom.NewDictionary()
	resolved, ok := doc.ResolveDictionary(dict)
	require.True(t, ok)
	assert.Same(t, dict, resolved)

	arr := &custom.Array{}
	_, ok = doc.ResolveArray(&custom.Null{})
	assert.False(t, ok)
	resolvedArr, ok := doc.ResolveArray(arr)
	require.True(t, ok)
	assert.Same(t, arr, resolvedArr)
}
