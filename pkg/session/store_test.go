package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		UserID:    "user-" + id,
		Transport: &fakeTransport{},
		CreatedAt: now,
		ExpiresAt: now.Add(testTTL),
	}
}

func TestStore_SetAndGet(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Set(testSess1, newStoreSession(testSess1)))

	sess, ok := store.Get(testSess1)
	require.True(t, ok)
	assert.Equal(t, testSess1, sess.ID)
}

func TestStore_SetValidation(t *testing.T) {
	store := NewStore()

	assert.ErrorIs(t, store.Set("", newStoreSession(testSess1)), ErrInvalidArgument)
	assert.ErrorIs(t, store.Set(testSess1, nil), ErrInvalidArgument)
	assert.Equal(t, 0, store.Count())
}

func TestStore_GetNotFound(t *testing.T) {
	store := NewStore()

	_, ok := store.Get("nonexistent")
	assert.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Set(testSess1, newStoreSession(testSess1)))

	assert.True(t, store.Delete(testSess1))
	assert.False(t, store.Delete(testSess1), "second delete reports absence")
	assert.False(t, store.Has(testSess1))
}

func TestStore_AllReturnsSnapshot(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Set("a", newStoreSession("a")))
	require.NoError(t, store.Set("b", newStoreSession("b")))

	snapshot := store.All()
	assert.Len(t, snapshot, 2)

	// Mutating the store must not affect the snapshot.
	store.Delete("a")
	assert.Len(t, snapshot, 2)
	assert.Equal(t, 1, store.Count())
}

func TestStore_Clear(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Set("a", newStoreSession("a")))
	require.NoError(t, store.Set("b", newStoreSession("b")))

	store.Clear()
	assert.Equal(t, 0, store.Count())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for range testGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = store.Set(testSess1, newStoreSession(testSess1))
				_, _ = store.Get(testSess1)
				_ = store.Has(testSess1)
				_ = store.All()
				_ = store.Count()
				_ = store.Delete(testSess1)
			}
		}()
	}
	wg.Wait()
}
