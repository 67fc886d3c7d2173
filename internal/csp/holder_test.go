package csp

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderReplace(t *testing.T) {
	first, err := NewBuilder().DefaultSrc(Self).Build()
	require.NoError(t, err)
	second, err := NewBuilder().DefaultSrc(None).ReportOnly(true).Build()
	require.NoError(t, err)

	h, err := NewHolder(first)
	require.NoError(t, err)
	assert.Same(t, first, h.Load())

	var calls atomic.Int32
	var seenOld, seenNew *Policy
	id := h.AddListener(func(old, cur *Policy) {
		calls.Add(1)
		seenOld, seenNew = old, cur
	})

	require.NoError(t, h.Replace(second))
	assert.Same(t, second, h.Load())
	assert.Equal(t, uint64(1), h.Updates())
	assert.Equal(t, int32(1), calls.Load())
	assert.Same(t, first, seenOld)
	assert.Same(t, second, seenNew)

	assert.True(t, h.RemoveListener(id))
	assert.False(t, h.RemoveListener(id))
	require.NoError(t, h.Replace(first))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(2), h.Updates())
}

func TestHolderRejectsInvalidPolicy(t *testing.T) {
	good, err := NewBuilder().DefaultSrc(Self).Build()
	require.NoError(t, err)
	h, err := NewHolder(good)
	require.NoError(t, err)

	bad := NewBuilder().ObjectSrc(None, Self).BuildUnchecked()
	err = h.Replace(bad)
	assert.ErrorIs(t, err, ErrConflictingSources)
	assert.ErrorIs(t, h.Replace(nil), ErrNilPolicy)
	assert.Same(t, good, h.Load())
	assert.Zero(t, h.Updates())

	_, err = NewHolder(bad)
	assert.Error(t, err)
	_, err = NewHolder(nil)
	assert.ErrorIs(t, err, ErrNilPolicy)
}

func TestHolderConcurrentReadersSeeWholePolicy(t *testing.T) {
	a, err := NewBuilder().DefaultSrc(Self).ScriptSrc(Self).Build()
	require.NoError(t, err)
	b, err := NewBuilder().DefaultSrc(None).ImgSrc(Self).ReportOnly(true).Build()
	require.NoError(t, err)
	h, err := NewHolder(a)
	require.NoError(t, err)

	want := map[string]string{
		a.HeaderName(): a.String(),
		b.HeaderName(): b.String(),
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			next := b
			if i%2 == 1 {
				next = a
			}
			_ = h.Replace(next)
		}
		close(stop)
	}()

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				p := h.Load()
				assert.Equal(t, want[p.HeaderName()], p.String())
			}
		}()
	}
	wg.Wait()
}
