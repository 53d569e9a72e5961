package workpool

import (
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapRunsEveryJob(t *testing.T) {
	jobs := make([]int, 50)
	for i := range jobs {
		jobs[i] = i
	}
	out := Map(4, jobs, func(n int) int { return n * n })
	sort.Ints(out)
	assert.Len(t, out, 50)
	assert.Equal(t, 49*49, out[49])
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var live, peak int32
	jobs := make([]int, 20)
	Map(3, jobs, func(int) struct{} {
		n := atomic.AddInt32(&live, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		atomic.AddInt32(&live, -1)
		return struct{}{}
	})
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestNewSizing(t *testing.T) {
	assert.Equal(t, 2, New[int, int](8, 2).Workers())
	assert.Positive(t, New[int, int](0, 0).Workers())
}

func TestMapEmpty(t *testing.T) {
	assert.Empty(t, Map(2, nil, func(int) int { return 0 }))
}
