package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// detailRepo serves thread detail fetches with optional blocking and failure.
type detailRepo struct {
	mu      sync.Mutex
	fetches int
	err     error
	gate    chan struct{}
}

func (d *detailRepo) FetchThreadPage(ctx context.Context, folder Folder, query string, pageSize int64, pageToken string) (*ThreadPage, error) {
	return &ThreadPage{}, nil
}

func (d *detailRepo) FetchThreadDetail(ctx context.Context, userID, threadID, connectionID string) (*ThreadContent, error) {
	d.mu.Lock()
	d.fetches++
	gate := d.gate
	err := d.err
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &ThreadContent{
		ThreadID: threadID,
		Subject:  "subject of " + threadID,
		Bodies:   []string{"body of " + threadID},
	}, nil
}

func (d *detailRepo) SetReadState(ctx context.Context, ids []string, unread bool) error {
	return nil
}

func (d *detailRepo) fetchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fetches
}

// mapStore is an in-memory ContentStore with optional failure injection.
type mapStore struct {
	mu      sync.Mutex
	data    map[string]string
	saveErr error
	loads   int
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string]string)}
}

func storeKey(accountEmail, threadID string) string {
	return accountEmail + "/" + threadID
}

func (m *mapStore) SaveThreadContent(ctx context.Context, accountEmail, threadID, subject, content string, updatedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[storeKey(accountEmail, threadID)] = content
	return nil
}

func (m *mapStore) LoadThreadContent(ctx context.Context, accountEmail, threadID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	content, ok := m.data[storeKey(accountEmail, threadID)]
	return content, ok, nil
}

var testIdentity = &Identity{UserID: "user@example.com", ConnectionID: "42"}

func TestPrefetchService_CachesFetchedContent(t *testing.T) {
	repo := &detailRepo{}
	service := NewPrefetchService(repo, nil, 10)
	ctx := context.Background()

	require.NoError(t, service.PrefetchThread(ctx, testIdentity, "thr-1"))
	content, ok := service.CachedThread(ctx, testIdentity.UserID, "thr-1")
	require.True(t, ok)
	assert.Equal(t, "body of thr-1", content)
	assert.Equal(t, 1, repo.fetchCount())

	// A repeated prefetch of a cached conversation is a no-op.
	require.NoError(t, service.PrefetchThread(ctx, testIdentity, "thr-1"))
	assert.Equal(t, 1, repo.fetchCount())
}

func TestPrefetchService_ValidationErrors(t *testing.T) {
	service := NewPrefetchService(&detailRepo{}, nil, 10)
	ctx := context.Background()

	err := service.PrefetchThread(ctx, nil, "thr-1")
	assert.ErrorIs(t, err, ErrNoIdentity)

	err = service.PrefetchThread(ctx, testIdentity, "  ")
	assert.ErrorIs(t, err, ErrInvalidThread)
}

func TestPrefetchService_FetchFailure(t *testing.T) {
	repo := &detailRepo{err: errors.New("boom")}
	service := NewPrefetchService(repo, nil, 10)
	ctx := context.Background()

	err := service.PrefetchThread(ctx, testIdentity, "thr-1")
	assert.ErrorIs(t, err, ErrPrefetchFailed)
	_, ok := service.CachedThread(ctx, testIdentity.UserID, "thr-1")
	assert.False(t, ok)

	// The failure does not poison the conversation; a retry fetches again.
	repo.mu.Lock()
	repo.err = nil
	repo.mu.Unlock()
	require.NoError(t, service.PrefetchThread(ctx, testIdentity, "thr-1"))
	assert.Equal(t, 2, repo.fetchCount())
}

func TestPrefetchService_SingleFlightPerConversation(t *testing.T) {
	repo := &detailRepo{gate: make(chan struct{})}
	service := NewPrefetchService(repo, nil, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = service.PrefetchThread(ctx, testIdentity, "thr-1")
	}()
	for repo.fetchCount() < 1 {
		time.Sleep(time.Millisecond)
	}

	// A concurrent prefetch of the same conversation returns immediately
	// without a second fetch.
	require.NoError(t, service.PrefetchThread(ctx, testIdentity, "thr-1"))
	assert.Equal(t, 1, repo.fetchCount())

	close(repo.gate)
	wg.Wait()
	_, ok := service.CachedThread(ctx, testIdentity.UserID, "thr-1")
	assert.True(t, ok)
}

func TestPrefetchService_EvictsLeastRecentlyUsed(t *testing.T) {
	repo := &detailRepo{}
	service := NewPrefetchService(repo, nil, 2)
	ctx := context.Background()

	require.NoError(t, service.PrefetchThread(ctx, testIdentity, "thr-1"))
	require.NoError(t, service.PrefetchThread(ctx, testIdentity, "thr-2"))

	// Touch thr-1 so thr-2 is the eviction candidate.
	_, ok := service.CachedThread(ctx, testIdentity.UserID, "thr-1")
	require.True(t, ok)

	require.NoError(t, service.PrefetchThread(ctx, testIdentity, "thr-3"))
	_, ok = service.CachedThread(ctx, testIdentity.UserID, "thr-2")
	assert.False(t, ok, "the least recently used conversation is evicted")
	_, ok = service.CachedThread(ctx, testIdentity.UserID, "thr-1")
	assert.True(t, ok)
	_, ok = service.CachedThread(ctx, testIdentity.UserID, "thr-3")
	assert.True(t, ok)
}

func TestPrefetchService_PersistsToStore(t *testing.T) {
	repo := &detailRepo{}
	store := newMapStore()
	service := NewPrefetchService(repo, store, 10)
	ctx := context.Background()

	require.NoError(t, service.PrefetchThread(ctx, testIdentity, "thr-1"))
	content, ok, err := store.LoadThreadContent(ctx, testIdentity.UserID, "thr-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "body of thr-1", content)
}

func TestPrefetchService_StoreFailureIsBestEffort(t *testing.T) {
	repo := &detailRepo{}
	store := newMapStore()
	store.saveErr = errors.New("disk full")
	service := NewPrefetchService(repo, store, 10)
	ctx := context.Background()

	require.NoError(t, service.PrefetchThread(ctx, testIdentity, "thr-1"))
	_, ok := service.CachedThread(ctx, testIdentity.UserID, "thr-1")
	assert.True(t, ok, "the memory cache serves even when persistence fails")
}

func TestPrefetchService_CachedThreadFallsBackToStore(t *testing.T) {
	store := newMapStore()
	ctx := context.Background()
	require.NoError(t, store.SaveThreadContent(ctx, testIdentity.UserID, "thr-1", "subject", "persisted body", time.Now().Unix()))

	service := NewPrefetchService(&detailRepo{}, store, 10)
	content, ok := service.CachedThread(ctx, testIdentity.UserID, "thr-1")
	require.True(t, ok)
	assert.Equal(t, "persisted body", content)

	// The hit promotes the content to memory; the store is not asked twice.
	loadsAfterFirst := store.loads
	_, ok = service.CachedThread(ctx, testIdentity.UserID, "thr-1")
	require.True(t, ok)
	assert.Equal(t, loadsAfterFirst, store.loads)
}

func TestPrefetchService_ShutdownDropsMemory(t *testing.T) {
	repo := &detailRepo{}
	service := NewPrefetchService(repo, nil, 10)
	ctx := context.Background()

	require.NoError(t, service.PrefetchThread(ctx, testIdentity, "thr-1"))
	service.Shutdown()
	_, ok := service.CachedThread(ctx, testIdentity.UserID, "thr-1")
	assert.False(t, ok)

	// Shutdown is idempotent.
	service.Shutdown()
}

func TestPrefetchService_IndependentConversations(t *testing.T) {
	repo := &detailRepo{}
	service := NewPrefetchService(repo, nil, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = service.PrefetchThread(ctx, testIdentity, fmt.Sprintf("thr-%d", i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, repo.fetchCount())
	for i := 0; i < 5; i++ {
		_, ok := service.CachedThread(ctx, testIdentity.UserID, fmt.Sprintf("thr-%d", i))
		assert.True(t, ok)
	}
}
