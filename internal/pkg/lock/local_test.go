package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesKey(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Obtain(ctx, "ledger:b1:2024-01-01")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.size())
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Obtain(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Obtain(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op
	assert.Equal(t, 0, l.size())
}

func TestObtainAllDedupesAndReleases(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := ObtainAll(ctx, l, "settlement:b:1", "ledger:b:2024-01-01", "settlement:b:1")
	require.NoError(t, err)
	assert.Equal(t, 2, l.size())
	release()
	assert.Equal(t, 0, l.size())
}

func TestObtainAllReleasesOnFailure(t *testing.T) {
	l := NewLocalLocker()
	held, err := l.Obtain(context.Background(), "b")
	require.NoError(t, err)
	defer held()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = ObtainAll(ctx, l, "b", "a")
	require.Error(t, err)

	// "a" was acquired first and must have been released.
	release, err := l.Obtain(context.Background(), "a")
	require.NoError(t, err)
	release()
}
