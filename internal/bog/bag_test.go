package bog

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith_IsCopyOnExtend(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	base := Of(Entry{"a", 1}, Entry{"b", 2})

	// --- Act ---
	left := base.With("c", 3)
	right := base.With("c", 4).With("a", 10)

	// --- Assert ---
	assert.Equal(t, []string{"a", "b"}, base.Keys(), "base must not change")
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "c": 3}, left.Map())
	assert.Equal(t, map[string]any{"a": 10, "b": 2, "c": 4}, right.Map())
	assert.Equal(t, []string{"a", "b", "c"}, right.Keys(), "overwrite keeps position")
}

func TestMerge_LastWriterWins(t *testing.T) {
	t.Parallel()
	a := Of(Entry{"x", "old"}, Entry{"y", 1})
	b := Of(Entry{"z", true}, Entry{"x", "new"})

	merged := a.Merge(b)

	want := []Entry{{"x", "new"}, {"y", 1}, {"z", true}}
	if diff := cmp.Diff(want, merged.Entries()); diff != "" {
		t.Errorf("merged entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "old", a.Map()["x"])
}

func TestNew_SortsMapKeys(t *testing.T) {
	t.Parallel()
	b := New(map[string]any{"zeta": 1, "alpha": 2, "mid": 3})
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, b.Keys())
}

func TestZeroBagIsUsable(t *testing.T) {
	t.Parallel()
	var b Bag
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.Has("x"))
	assert.Equal(t, "{}", b.String())
	assert.Equal(t, 1, b.With("x", 1).Len())
}

func TestLookup_MissingKey(t *testing.T) {
	t.Parallel()
	b := Of(Entry{"present", 1})

	_, err := b.Lookup("absent")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingBogKey))
	var mk *MissingKeyError
	require.ErrorAs(t, err, &mk)
	assert.Equal(t, "absent", mk.Key)
	assert.Equal(t, []string{"present"}, mk.Available)
}

func TestSelectAndValues(t *testing.T) {
	t.Parallel()
	b := Of(Entry{"a", 1}, Entry{"b", 2}, Entry{"c", 3})

	sel, err := b.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Keys())

	vals, err := b.Values("b", "c")
	require.NoError(t, err)
	assert.Equal(t, []any{2, 3}, vals)

	_, err = b.Values("b", "nope")
	assert.ErrorIs(t, err, ErrMissingBogKey)
}

func TestWithout(t *testing.T) {
	t.Parallel()
	b := Of(Entry{"a", 1}, Entry{"b", 2}, Entry{"c", 3})
	assert.Equal(t, []string{"a", "c"}, b.Without("b", "zzz").Keys())
	assert.Equal(t, 3, b.Len())
}

func TestAsRefAndDeref(t *testing.T) {
	t.Parallel()
	b := Of(Entry{"final", "pass"})

	tests := []struct {
		name    string
		in      any
		want    any
		wantErr error
	}{
		{name: "plain value", in: 42, want: 42},
		{name: "at string", in: "@final", want: "pass"},
		{name: "typed ref", in: Ref("final"), want: "pass"},
		{name: "bare at is literal", in: "@", want: "@"},
		{name: "missing target", in: "@gone", wantErr: ErrMissingBogKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Deref(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "@final", Ref("final").String())
}
