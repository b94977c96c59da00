package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocIsLowestAddressFirst(t *testing.T) {
	b := New(10)
	for i := int64(0); i < 10; i++ {
		idx, err := b.Alloc()
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}
	_, err := b.Alloc()
	assert.ErrorIs(t, err, ErrNoSpace)
}

func TestFreeThenRealloc(t *testing.T) {
	b := New(4)
	for i := 0; i < 4; i++ {
		_, err := b.Alloc()
		require.NoError(t, err)
	}
	b.Free(1)
	idx, err := b.Alloc()
	require.NoError(t, err)
	assert.Equal(t, int64(1), idx)
}

func TestTailBitsPreMarkedSet(t *testing.T) {
	b := New(3) // one word of 64 bits, bits [3,64) pre-set
	assert.True(t, b.IsSet(2) == false)
	for i := int64(0); i < 3; i++ {
		_, err := b.Alloc()
		require.NoError(t, err)
	}
	_, err := b.Alloc()
	assert.ErrorIs(t, err, ErrNoSpace)
}

func TestFreeOfUnallocatedPanics(t *testing.T) {
	b := New(5)
	assert.Panics(t, func() { b.Free(0) })
}

func TestPopcountZero(t *testing.T) {
	b := New(8)
	assert.Equal(t, int64(8), b.PopcountZero())
	_, _ = b.Alloc()
	_, _ = b.Alloc()
	assert.Equal(t, int64(6), b.PopcountZero())
}

func TestSpansMultipleWords(t *testing.T) {
	b := New(130)
	for i := int64(0); i < 130; i++ {
		idx, err := b.Alloc()
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}
	_, err := b.Alloc()
	assert.ErrorIs(t, err, ErrNoSpace)
}
