package alloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocSequential(t *testing.T) {
	a := New(48)
	assert.Equal(t, uint64(48), a.Alloc(100, KindHeader))
	assert.Equal(t, uint64(152), a.Alloc(10, KindData), "aligned up from 148")
	assert.Equal(t, uint64(162), a.EOF())
	require.NoError(t, a.Validate())
}

func TestAllocZeroSize(t *testing.T) {
	a := New(64)
	assert.Equal(t, uint64(64), a.Alloc(0, KindData))
	assert.Equal(t, uint64(64), a.EOF())
	assert.Zero(t, a.Stats().Allocations)
}

func TestStatsByKind(t *testing.T) {
	a := New(0)
	a.Alloc(16, KindHeader)
	a.Alloc(4096, KindHeap)
	a.Alloc(40, KindData)
	a.Abandon(0, 16)

	s := a.Stats()
	assert.Equal(t, uint64(3), s.Allocations)
	assert.Equal(t, uint64(16), s.Bytes[KindHeader])
	assert.Equal(t, uint64(4096), s.Bytes[KindHeap])
	assert.Equal(t, uint64(40), s.Bytes[KindData])
	assert.Equal(t, uint64(4152), s.Total())
	assert.Equal(t, uint64(16), s.Abandoned)
	assert.Equal(t, "heap", KindHeap.String())
}

func TestConcurrentAllocNoOverlap(t *testing.T) {
	a := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				a.Alloc(uint64(j%13+1), KindData)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, a.Validate())
	assert.Equal(t, uint64(800), a.Stats().Allocations)
}
