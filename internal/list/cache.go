package list

import (
	"context"
	"fmt"
	"sync"

	"github.com/mailgrid/mailgrid/internal/services"
)

// Cache holds the paginated, mutable thread sequence for one mailbox view
// (folder + query). Pages are appended in server order; a folder or query
// change discards the sequence. At most one continuation fetch is in flight
// at a time; extra triggers are dropped.
type Cache struct {
	mu       sync.Mutex
	repo     services.ThreadRepository
	folder   services.Folder
	query    string
	pageSize int64

	threads       []services.ThreadSummary
	nextPageToken string
	loaded        bool // first page fetched at least once
	loading       bool
	// revalidateQueued records a Revalidate requested while another fetch
	// was in flight; the fetch reruns it on completion so the merge is
	// never lost to the race.
	revalidateQueued bool
	lastErr          error
}

// NewCache creates a cache for the given view.
func NewCache(repo services.ThreadRepository, folder services.Folder, query string, pageSize int64) *Cache {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Cache{repo: repo, folder: folder, query: query, pageSize: pageSize}
}

// Reset switches the view to a new folder/query and discards the sequence.
func (c *Cache) Reset(folder services.Folder, query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.folder = folder
	c.query = query
	c.threads = nil
	c.nextPageToken = ""
	c.loaded = false
	c.revalidateQueued = false
	c.lastErr = nil
}

// LoadFirst fetches the first page, replacing any prior sequence.
// A failed fetch leaves the sequence unchanged and sets the error flag.
func (c *Cache) LoadFirst(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	folder, query, size := c.folder, c.query, c.pageSize
	c.mu.Unlock()

	page, err := c.repo.FetchThreadPage(ctx, folder, query, size, "")

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.lastErr = fmt.Errorf("%w: %v", services.ErrFetchFailed, err)
		retErr := c.lastErr
		c.mu.Unlock()
		c.drainRevalidate(ctx)
		return retErr
	}
	c.threads = append([]services.ThreadSummary(nil), page.Threads...)
	c.nextPageToken = page.NextPageToken
	c.loaded = true
	c.lastErr = nil
	c.mu.Unlock()
	c.drainRevalidate(ctx)
	return nil
}

// LoadMore appends the next page using the continuation token. It is a no-op
// when the collection is exhausted or a fetch is already in flight.
func (c *Cache) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || !c.loaded || c.nextPageToken == "" {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	folder, query, size, token := c.folder, c.query, c.pageSize, c.nextPageToken
	c.mu.Unlock()

	page, err := c.repo.FetchThreadPage(ctx, folder, query, size, token)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		// No partial page is appended; the sequence stays as it was.
		c.lastErr = fmt.Errorf("%w: %v", services.ErrFetchFailed, err)
		retErr := c.lastErr
		c.mu.Unlock()
		c.drainRevalidate(ctx)
		return retErr
	}
	c.threads = append(c.threads, page.Threads...)
	c.nextPageToken = page.NextPageToken
	c.lastErr = nil
	c.mu.Unlock()
	c.drainRevalidate(ctx)
	return nil
}

// Revalidate refetches the first page and merges it into the sequence by id:
// rows returned again are refreshed in place at their new positions, rows
// paginated in beyond the first page are kept after them. The continuation
// token is only adopted when the cache held a single page, since the existing
// token continues the tail. A revalidation requested while another fetch is
// in flight is queued and runs when that fetch completes.
func (c *Cache) Revalidate(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.revalidateQueued = true
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	folder, query, size := c.folder, c.query, c.pageSize
	singlePage := int64(len(c.threads)) <= c.pageSize
	c.mu.Unlock()

	page, err := c.repo.FetchThreadPage(ctx, folder, query, size, "")

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.lastErr = fmt.Errorf("%w: %v", services.ErrFetchFailed, err)
		retErr := c.lastErr
		c.mu.Unlock()
		c.drainRevalidate(ctx)
		return retErr
	}

	fresh := make(map[string]struct{}, len(page.Threads))
	for _, t := range page.Threads {
		fresh[t.ID] = struct{}{}
	}
	merged := append([]services.ThreadSummary(nil), page.Threads...)
	for _, t := range c.threads {
		if _, ok := fresh[t.ID]; !ok {
			merged = append(merged, t)
		}
	}
	c.threads = merged
	if singlePage {
		c.nextPageToken = page.NextPageToken
	}
	c.loaded = true
	c.lastErr = nil
	c.mu.Unlock()
	c.drainRevalidate(ctx)
	return nil
}

// drainRevalidate runs a revalidation that was queued behind the fetch that
// just completed. A failure is recorded in the error flag like any other
// revalidation failure.
func (c *Cache) drainRevalidate(ctx context.Context) {
	c.mu.Lock()
	queued := c.revalidateQueued
	c.revalidateQueued = false
	c.mu.Unlock()
	if queued {
		_ = c.Revalidate(ctx)
	}
}

// Snapshot returns a copy of the currently loaded sequence.
func (c *Cache) Snapshot() []services.ThreadSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]services.ThreadSummary(nil), c.threads...)
}

// ThreadAt returns the row at the given index of the loaded sequence.
func (c *Cache) ThreadAt(i int) (services.ThreadSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.threads) {
		return services.ThreadSummary{}, false
	}
	return c.threads[i], true
}

// Len returns the number of loaded rows.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.threads)
}

// HasMore reports whether a continuation token is available.
func (c *Cache) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextPageToken != ""
}

// Loading reports whether a fetch is currently in flight.
func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error flag from the most recent fetch, if any.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Folder returns the active folder of the view.
func (c *Cache) Folder() services.Folder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.folder
}
