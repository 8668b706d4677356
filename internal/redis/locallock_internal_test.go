package redisclient

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalLocker_ReapsIdleKeys(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []string{"a", "b", "c", "d"}[i%4]
			for j := 0; j < 50; j++ {
				err := locker.WithLock(ctx, key, func(context.Context) error { return nil })
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Empty(t, locker.locks, "all key entries are dropped once unused")
}
