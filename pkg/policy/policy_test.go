package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeView is a mutable in-test implementation of View.
type fakeView struct {
	free     []int64
	capacity []int64
}

func (v *fakeView) NumNodes() int          { return len(v.free) }
func (v *fakeView) BlocksFree() []int64    { return v.free }
func (v *fakeView) BlocksPerNode() []int64 { return v.capacity }

func newFakeView(capacityPerNode ...int64) *fakeView {
	free := append([]int64(nil), capacityPerNode...)
	return &fakeView{free: free, capacity: capacityPerNode}
}

func TestRegistryHasAllMandatoryPolicies(t *testing.T) {
	for _, name := range []string{"rand", "roundrobin", "sequential", "leastloaded", "weightedroundrobin", "fileaware"} {
		p, err := New(name)
		require.NoError(t, err)
		assert.NotNil(t, p)
	}
}

func TestUnknownPolicyErrors(t *testing.T) {
	_, err := New("nonexistent")
	assert.Error(t, err)
}

func TestRoundRobinStartsAtZero(t *testing.T) {
	p, _ := New("roundrobin")
	view := newFakeView(3, 3, 3)
	require.NoError(t, p.Init(view))

	w, err := p.Allocate(Context{})
	require.NoError(t, err)
	assert.Equal(t, 0, w)

	w, err = p.Allocate(Context{})
	require.NoError(t, err)
	assert.Equal(t, 1, w)
}

func TestRoundRobinSkipsFullWorkers(t *testing.T) {
	p, _ := New("roundrobin")
	view := newFakeView(0, 2, 0)
	require.NoError(t, p.Init(view))

	w, err := p.Allocate(Context{})
	require.NoError(t, err)
	assert.Equal(t, 1, w)
}

func TestRoundRobinFailsWhenAllFull(t *testing.T) {
	p, _ := New("roundrobin")
	view := newFakeView(0, 0)
	require.NoError(t, p.Init(view))

	_, err := p.Allocate(Context{})
	assert.ErrorIs(t, err, ErrNoCapacity)
}

func TestSequentialFillsInOrder(t *testing.T) {
	p, _ := New("sequential")
	view := newFakeView(2, 2)
	require.NoError(t, p.Init(view))

	w, err := p.Allocate(Context{})
	require.NoError(t, err)
	require.Equal(t, 0, w)
	view.free[0]--

	// free[0] is now 1 (<=1), so sequential advances past worker 0 and
	// strands its last block, matching the preserved off-by-one behavior.
	w, err = p.Allocate(Context{})
	require.NoError(t, err)
	assert.Equal(t, 1, w)
}

func TestLeastLoadedPicksMostFree(t *testing.T) {
	p, _ := New("leastloaded")
	view := newFakeView(1, 5, 3)
	require.NoError(t, p.Init(view))

	w, err := p.Allocate(Context{})
	require.NoError(t, err)
	assert.Equal(t, 1, w)
}

func TestLeastLoadedFailsWhenAllFull(t *testing.T) {
	p, _ := New("leastloaded")
	view := newFakeView(0, 0, 0)
	require.NoError(t, p.Init(view))

	_, err := p.Allocate(Context{})
	assert.ErrorIs(t, err, ErrNoCapacity)
}

func TestFileAwareUsesRandForSmallFiles(t *testing.T) {
	p := NewFileAware(4)
	view := newFakeView(5, 5)
	require.NoError(t, p.Init(view))

	w, err := p.Allocate(Context{ExpectedBlocks: 1})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, w, 0)
}

func TestFileAwareUsesLeastLoadedForLargeFiles(t *testing.T) {
	p := NewFileAware(4)
	view := newFakeView(1, 9)
	require.NoError(t, p.Init(view))

	w, err := p.Allocate(Context{ExpectedBlocks: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, w)
}

func TestWeightedRoundRobinPrefersHighestWeight(t *testing.T) {
	p, _ := New("weightedroundrobin")
	view := newFakeView(10, 10)
	view.free[0] = 2
	view.free[1] = 8
	require.NoError(t, p.Init(view))

	w, err := p.Allocate(Context{})
	require.NoError(t, err)
	assert.Equal(t, 1, w)
}

func TestWeightedRoundRobinFailsWhenAllZero(t *testing.T) {
	p, _ := New("weightedroundrobin")
	view := newFakeView(0, 0)
	require.NoError(t, p.Init(view))

	_, err := p.Allocate(Context{})
	assert.ErrorIs(t, err, ErrNoCapacity)
}

func TestNeverReturnsFullWorkerOnSuccess(t *testing.T) {
	for _, name := range Names() {
		p, err := New(name)
		require.NoError(t, err)
		view := newFakeView(0, 3, 0)
		require.NoError(t, p.Init(view))

		w, err := p.Allocate(Context{ExpectedBlocks: 10})
		if err == nil {
			assert.Greater(t, view.free[w], int64(0), "policy %s returned a full worker", name)
		}
	}
}
