package locks_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkitektio/rekuest-next/locks"
)

func TestAcquireSet_DisjointSetsRunConcurrently(t *testing.T) {
	m := locks.New()
	var running int32
	var maxConcurrent int32

	var wg sync.WaitGroup
	for i, name := range []string{"db", "gpu"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			release, err := m.AcquireSet(context.Background(), []string{name})
			require.NoError(t, err)
			defer release()

			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&maxConcurrent)
				if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		}(name)
		_ = i
	}
	wg.Wait()

	assert.Equal(t, int32(2), maxConcurrent, "disjoint lock-sets must be able to run in parallel")
}

func TestAcquireSet_OverlappingSetsSerialize(t *testing.T) {
	m := locks.New()
	var order []int
	var inside, maxInside int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release, err := m.AcquireSet(context.Background(), []string{"shared"})
			require.NoError(t, err)
			defer release()
			mu.Lock()
			order = append(order, i)
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, order, 3, "every waiter must eventually acquire the shared lock")
	assert.Equal(t, 1, maxInside, "overlapping lock-sets must never hold the shared lock at the same time")
}

func TestAcquireSet_SortedOrderAvoidsDeadlock(t *testing.T) {
	m := locks.New()
	var wg sync.WaitGroup
	errs := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.AcquireSet(context.Background(), []string{"b", "a"})
			if err != nil {
				errs <- err
				return
			}
			time.Sleep(5 * time.Millisecond)
			release()
			errs <- nil
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestAcquireSet_ContextCancelReleasesPartialAcquisitions(t *testing.T) {
	m := locks.New()

	release, err := m.AcquireSet(context.Background(), []string{"y"})
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// "x" sorts first and is acquired, then "y" blocks until ctx times out.
	_, err = m.AcquireSet(ctx, []string{"x", "y"})
	assert.Error(t, err, "acquiring an already-held lock must time out via ctx, not deadlock")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	releaseX, err := m.AcquireSet(ctx2, []string{"x"})
	require.NoError(t, err, "the partially acquired \"x\" must have been released")
	releaseX()
}
