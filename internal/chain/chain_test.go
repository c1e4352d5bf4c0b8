package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PreservesOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a, b, c := Sig("a", nil), Sig("b", nil), Sig("c", nil)
	ab := Must(Append(a, b))

	// --- Act ---
	abc, err := ab.Then(c)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []*Signature{a, b, c}, abc.Signatures())
	assert.Equal(t, 2, ab.Len(), "composition must not mutate its operands")
	assert.Equal(t, "a|b|c", Label(abc))
}

func TestNew_AssociativeComposition(t *testing.T) {
	t.Parallel()
	a, b, c := Sig("a", nil), Sig("b", nil), Sig("c", nil)

	left := Must(New(Must(New(a, b)), c))
	right := Must(New(a, Must(New(b, c))))

	assert.Equal(t, left.Elements(), right.Elements())
}

func TestNew_InjectArgsMustLead(t *testing.T) {
	t.Parallel()

	t.Run("leading inject is kept", func(t *testing.T) {
		c, err := New(Inject(map[string]any{"x": 1}), Sig("f", nil))
		require.NoError(t, err)
		require.Equal(t, 2, c.Len())
		_, ok := c.Elements()[0].(InjectArgs)
		assert.True(t, ok)
	})

	t.Run("inject after a signature is rejected", func(t *testing.T) {
		_, err := New(Sig("f", nil), Inject(map[string]any{"x": 1}))
		assert.ErrorIs(t, err, ErrInvalidChain)
	})

	t.Run("consecutive injects merge with the right side winning", func(t *testing.T) {
		c, err := New(Inject(map[string]any{"x": 1, "y": 1}), Inject(map[string]any{"y": 2}), Sig("f", nil))
		require.NoError(t, err)
		require.Equal(t, 2, c.Len())
		inj := c.Elements()[0].(InjectArgs)
		assert.Equal(t, map[string]any{"x": 1, "y": 2}, inj.Values().Map())
	})

	t.Run("chain starting with inject cannot be appended", func(t *testing.T) {
		head := Must(New(Sig("a", nil)))
		tail := Must(New(Inject(map[string]any{"x": 1}), Sig("b", nil)))
		_, err := Append(head, tail)
		assert.ErrorIs(t, err, ErrInvalidChain)
	})
}

func TestSignature_WithArgs(t *testing.T) {
	t.Parallel()
	s := Sig("svc", Args{"a": 1, "b": "@x"})

	s2 := s.WithArgs(Args{"a": 2})

	assert.Equal(t, 1, s.Args().Map()["a"])
	assert.Equal(t, 2, s2.Args().Map()["a"])
	assert.Equal(t, "svc(a=2, b=@x)", s2.String())
}

func TestSplitList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, SplitList(" a,b;c|d  e,,"))
	assert.Empty(t, SplitList(""))
}

func TestFromList(t *testing.T) {
	t.Parallel()
	c, err := FromList([]string{"nop", "sleep"}, map[string]any{"sleep": 1})
	require.NoError(t, err)
	assert.Equal(t, "InjectArgs(sleep) | nop | sleep", c.String())
}
