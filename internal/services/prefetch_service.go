package services

import (
	"container/list"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// ContentStore persists prefetched thread content across runs.
type ContentStore interface {
	SaveThreadContent(ctx context.Context, accountEmail, threadID, subject, content string, updatedAt int64) error
	LoadThreadContent(ctx context.Context, accountEmail, threadID string) (string, bool, error)
}

// memEntry is one cached conversation body with its LRU handle.
type memEntry struct {
	content string
	element *list.Element
}

// PrefetchServiceImpl implements PrefetchService: it fetches full thread
// content, keeps it in a bounded in-memory LRU and mirrors it to the content
// store. Concurrent prefetches of the same conversation collapse to one
// fetch; prefetches of different conversations run independently.
type PrefetchServiceImpl struct {
	repo   ThreadRepository
	store  ContentStore // optional
	logger *log.Logger

	maxEntries int
	mu         sync.Mutex
	inflight   map[string]struct{}
	memory     map[string]*memEntry
	eviction   *list.List

	shutdownOnce sync.Once
}

// NewPrefetchService creates a prefetch service holding up to maxEntries
// conversations in memory.
func NewPrefetchService(repo ThreadRepository, store ContentStore, maxEntries int) *PrefetchServiceImpl {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &PrefetchServiceImpl{
		repo:       repo,
		store:      store,
		maxEntries: maxEntries,
		inflight:   make(map[string]struct{}),
		memory:     make(map[string]*memEntry),
		eviction:   list.New(),
	}
}

// SetLogger sets the logger for debug output.
func (p *PrefetchServiceImpl) SetLogger(logger *log.Logger) {
	p.logger = logger
}

// PrefetchThread fetches and caches the full content of one conversation.
func (p *PrefetchServiceImpl) PrefetchThread(ctx context.Context, identity *Identity, threadID string) error {
	if identity == nil {
		return ErrNoIdentity
	}
	if strings.TrimSpace(threadID) == "" {
		return fmt.Errorf("%w: empty thread id", ErrInvalidThread)
	}

	p.mu.Lock()
	if _, cached := p.memory[threadID]; cached {
		p.mu.Unlock()
		return nil
	}
	if _, busy := p.inflight[threadID]; busy {
		p.mu.Unlock()
		return nil
	}
	p.inflight[threadID] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inflight, threadID)
		p.mu.Unlock()
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	content, err := p.repo.FetchThreadDetail(fetchCtx, identity.UserID, threadID, identity.ConnectionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrefetchFailed, err)
	}

	body := strings.Join(content.Bodies, "\n\n---\n\n")
	p.cacheContent(threadID, body)

	if p.store != nil {
		if err := p.store.SaveThreadContent(ctx, identity.UserID, threadID, content.Subject, body, time.Now().Unix()); err != nil {
			// Persistence is best effort; the memory cache already has it.
			if p.logger != nil {
				p.logger.Printf("persist prefetched thread %s: %v", threadID, err)
			}
		}
	}
	return nil
}

// CachedThread returns prefetched content for a conversation if available.
func (p *PrefetchServiceImpl) CachedThread(ctx context.Context, accountEmail, threadID string) (string, bool) {
	p.mu.Lock()
	if entry, ok := p.memory[threadID]; ok {
		p.eviction.MoveToFront(entry.element)
		content := entry.content
		p.mu.Unlock()
		return content, true
	}
	p.mu.Unlock()

	if p.store == nil {
		return "", false
	}
	content, found, err := p.store.LoadThreadContent(ctx, accountEmail, threadID)
	if err != nil || !found {
		return "", false
	}
	p.cacheContent(threadID, content)
	return content, true
}

// Shutdown drops the in-memory cache.
func (p *PrefetchServiceImpl) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.memory = make(map[string]*memEntry)
		p.eviction = list.New()
	})
}

func (p *PrefetchServiceImpl) cacheContent(threadID, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.memory[threadID]; ok {
		entry.content = content
		p.eviction.MoveToFront(entry.element)
		return
	}
	for len(p.memory) >= p.maxEntries && p.eviction.Len() > 0 {
		back := p.eviction.Back()
		p.eviction.Remove(back)
		delete(p.memory, back.Value.(string))
	}
	entry := &memEntry{content: content}
	entry.element = p.eviction.PushFront(threadID)
	p.memory[threadID] = entry
}
