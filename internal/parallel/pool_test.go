package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -3} {
		pool := NewWorkerPool(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want GOMAXPROCS", n, pool.Workers())
		}
		pool.Close()
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(work)

	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

func TestWorkerPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	var ran atomic.Int32
	pool.ExecuteAll([]func(){func() { ran.Add(1) }, func() { ran.Add(1) }})
	if ran.Load() != 2 {
		t.Errorf("closed pool ran %d of 2 items", ran.Load())
	}
}

func TestWorkerPool_Chunks(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	tests := []struct {
		n, want int
	}{
		{0, 0},
		{1, 1},
		{minChunk, 1},
		{minChunk + 1, 2},
		{4096, 4},
		{1 << 20, 4},
	}
	for _, tt := range tests {
		if got := pool.Chunks(tt.n); got != tt.want {
			t.Errorf("Chunks(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestWorkerPool_ForRangeCoversRange(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	for _, n := range []int{0, 1, 255, 1000, 4096, 10001} {
		hits := make([]int32, n)
		var mu sync.Mutex
		seen := map[int]bool{}

		pool.ForRange(n, func(chunk, lo, hi int) {
			mu.Lock()
			if seen[chunk] {
				t.Errorf("n=%d: chunk %d ran twice", n, chunk)
			}
			seen[chunk] = true
			mu.Unlock()
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})

		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
		if len(seen) > pool.Chunks(n) {
			t.Errorf("n=%d: %d chunks, Chunks reported %d", n, len(seen), pool.Chunks(n))
		}
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("pool should not be running after Close")
	}
}

func TestWorkerPool_Concurrent(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var total atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.ForRange(2048, func(_, lo, hi int) {
				total.Add(int64(hi - lo))
			})
		}()
	}
	wg.Wait()

	if total.Load() != 8*2048 {
		t.Errorf("total = %d, want %d", total.Load(), 8*2048)
	}
}

func BenchmarkWorkerPool_ForRange(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	data := make([]float32, 1<<16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.ForRange(len(data), func(_, lo, hi int) {
			for j := lo; j < hi; j++ {
				data[j] = data[j]*0.5 + 1
			}
		})
	}
}
