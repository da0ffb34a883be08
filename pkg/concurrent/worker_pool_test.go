package concurrent

import (
	"sync"
	"testing"
	"time"
)

func TestPoolRunsScheduledWork(t *testing.T) {
	pool := NewPool(4, 8, 2)
	defer pool.Close()

	var (
		mu    sync.Mutex
		count int
		wg    sync.WaitGroup
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		pool.Schedule(func() {
			defer wg.Done()
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	wg.Wait()

	if count != 32 {
		t.Errorf("ran %d tasks, want 32", count)
	}
}

func TestPoolScheduleTimeout(t *testing.T) {
	pool := NewPool(1, 0, 1)
	defer pool.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	pool.Schedule(func() {
		close(started)
		<-release
	})
	<-started

	// the only worker is busy and there is no queue, so this cannot start.
	err := pool.ScheduleTimeout(10*time.Millisecond, func() {})
	if err != ErrScheduleTimeout {
		t.Errorf("err = %v, want ErrScheduleTimeout", err)
	}
	close(release)
}
