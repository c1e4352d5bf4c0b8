package bog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_KeepsOrderAndRefs(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	in := Of(
		Entry{"zulu", "last-alpha"},
		Entry{"alpha", true},
		Entry{"ref", Ref("zulu")},
		Entry{"nested", map[string]any{"k": "v"}},
		Entry{"list", []any{"a", "b"}},
	)

	// --- Act ---
	data, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, in.Keys(), out.Keys())
	v, _ := out.Get("ref")
	assert.Equal(t, "@zulu", v)
	resolved, err := out.Deref(v)
	require.NoError(t, err)
	assert.Equal(t, "last-alpha", resolved)
	nested, _ := out.Get("nested")
	assert.Equal(t, map[string]any{"k": "v"}, nested)
	list, _ := out.Get("list")
	assert.Equal(t, []any{"a", "b"}, list)
}

func TestEncode_RejectsUnserialisableValues(t *testing.T) {
	t.Parallel()
	_, err := Encode(Of(Entry{"fn", func() {}}))
	assert.Error(t, err)
}
