package list

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mailgrid/mailgrid/internal/services"
)

// Options configures a Controller.
type Options struct {
	Repo       services.ThreadRepository
	Reader     services.ReadStateService
	Prefetcher services.PrefetchService
	Identity   services.IdentityService
	Notifier   services.Notifier
	Logger     *log.Logger

	Folder   services.Folder
	Query    string
	PageSize int64

	RowHeight  int // estimated row height class (compact or normal)
	Overscan   int
	HoverDelay time.Duration

	// OnUpdate is invoked after the loaded sequence changed, so the view can
	// re-derive its window. May be nil.
	OnUpdate func()

	// Run executes deferred work; defaults to spawning a goroutine. Tests
	// inject a synchronous runner.
	Run func(func())
}

// Controller owns the view state for one mailbox list: the thread cache, the
// selection machine, the mode reducer, the hover prefetcher and the virtual
// window. All mutations funnel through it, giving the single-writer ordering
// the view relies on.
type Controller struct {
	cache      *Cache
	sel        *Selection
	modes      *ModeReducer
	hover      *HoverController
	virt       *Virtualizer
	reader     services.ReadStateService
	prefetcher services.PrefetchService
	idsvc      services.IdentityService
	notifier   services.Notifier
	logger     *log.Logger
	onUpdate   func()
	run        func(func())

	identity *services.Identity
}

// NewController wires the list subsystem together.
func NewController(opts Options) *Controller {
	c := &Controller{
		cache:      NewCache(opts.Repo, opts.Folder, opts.Query, opts.PageSize),
		sel:        NewSelection(),
		modes:      NewModeReducer(nil),
		virt:       NewVirtualizer(0, opts.RowHeight, opts.Overscan),
		reader:     opts.Reader,
		prefetcher: opts.Prefetcher,
		idsvc:      opts.Identity,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		onUpdate:   opts.OnUpdate,
		run:        opts.Run,
	}
	if c.run == nil {
		c.run = func(f func()) { go f() }
	}
	c.hover = NewHoverController(opts.HoverDelay, c.prefetchThread)
	return c
}

// Init resolves the identity and loads the first page.
func (c *Controller) Init(ctx context.Context) error {
	if c.idsvc != nil {
		if id, err := c.idsvc.CurrentIdentity(ctx); err == nil {
			c.identity = id
		} else if c.logger != nil {
			c.logger.Printf("identity unavailable: %v", err)
		}
	}
	err := c.cache.LoadFirst(ctx)
	c.refresh()
	return err
}

// Cache exposes the thread cache for read access.
func (c *Controller) Cache() *Cache { return c.cache }

// Selection exposes the selection state for read access.
func (c *Controller) Selection() *Selection { return c.sel }

// Modes exposes the mode reducer for the key-event source.
func (c *Controller) Modes() *ModeReducer { return c.modes }

// Virtualizer exposes the window computation for the renderer.
func (c *Controller) Virtualizer() *Virtualizer { return c.virt }

// Identity returns the cached identity, or nil when unauthenticated.
func (c *Controller) Identity() *services.Identity { return c.identity }

// ClickRow applies the active mode's click semantics to the row at index.
// Opening an unread row in single mode additionally fires a one-shot
// auto-mark-read; its failure never blocks the selection itself.
func (c *Controller) ClickRow(ctx context.Context, index int) ClickResult {
	rows := c.cache.Snapshot()
	if index < 0 || index >= len(rows) {
		return ClickResult{}
	}
	row := rows[index]
	res := c.sel.Click(c.modes.Mode(), index, rows)

	if res.Opened != "" && row.Unread && c.reader != nil {
		c.run(func() {
			if err := c.reader.MarkRead(ctx, []string{row.ID}); err != nil {
				if c.logger != nil {
					c.logger.Printf("auto mark-as-read failed for %s: %v", row.ID, err)
				}
				return
			}
			c.revalidate(ctx)
		})
	}
	return res
}

// HoverEnter starts the prefetch timer for the row at index.
func (c *Controller) HoverEnter(index int) {
	row, ok := c.cache.ThreadAt(index)
	if !ok {
		return
	}
	c.hover.Enter(c.modes.Mode(), row, c.identity != nil)
}

// HoverLeave cancels the row's prefetch timer.
func (c *Controller) HoverLeave(rowID string) {
	c.hover.Leave(rowID)
}

// Scrolled re-evaluates the viewport after a scroll and requests the next
// page when the view is near the bottom. A trigger while a fetch is pending
// is dropped.
func (c *Controller) Scrolled(ctx context.Context) {
	if !c.virt.NearBottom() || !c.cache.HasMore() || c.cache.Loading() {
		return
	}
	c.run(func() {
		if err := c.cache.LoadMore(ctx); err != nil {
			if c.notifier != nil {
				c.notifier.ShowError(ctx, "Failed to load more threads")
			}
			return
		}
		c.refresh()
	})
}

// ToggleSelectAll toggles between selecting every loaded row and clearing the
// selection, reporting the resulting count. It is a no-op with a distinct
// notice when nothing is loaded.
func (c *Controller) ToggleSelectAll(ctx context.Context) {
	rows := c.cache.Snapshot()
	if len(rows) == 0 {
		if c.notifier != nil {
			c.notifier.ShowInfo(ctx, "No threads to select")
		}
		return
	}
	count, selected := c.sel.ToggleAll(rows)
	if c.notifier == nil {
		return
	}
	if selected {
		c.notifier.ShowSuccess(ctx, fmt.Sprintf("Selected %d thread(s)", count))
	} else {
		c.notifier.ShowInfo(ctx, "Selection cleared")
	}
}

// MarkSelectedRead marks the bulk selection as read. On success the bulk set
// is cleared and the cache revalidated; on failure both are left unchanged.
func (c *Controller) MarkSelectedRead(ctx context.Context) {
	c.mutateSelected(ctx, false)
}

// MarkSelectedUnread marks the bulk selection as unread, with the same
// success and failure semantics as MarkSelectedRead.
func (c *Controller) MarkSelectedUnread(ctx context.Context) {
	c.mutateSelected(ctx, true)
}

func (c *Controller) mutateSelected(ctx context.Context, unread bool) {
	ids := c.sel.Bulk()
	if len(ids) == 0 {
		if c.notifier != nil {
			c.notifier.ShowInfo(ctx, "No threads selected")
		}
		return
	}
	state := "read"
	if unread {
		state = "unread"
	}
	c.run(func() {
		var err error
		if unread {
			err = c.reader.MarkUnread(ctx, ids)
		} else {
			err = c.reader.MarkRead(ctx, ids)
		}
		if err != nil {
			if c.logger != nil {
				c.logger.Printf("bulk mark as %s failed: %v", state, err)
			}
			if c.notifier != nil {
				c.notifier.ShowError(ctx, fmt.Sprintf("Failed to mark as %s", state))
			}
			return
		}
		c.sel.ClearBulk()
		c.revalidate(ctx)
		if c.notifier != nil {
			c.notifier.ShowSuccess(ctx, fmt.Sprintf("Marked %d thread(s) as %s", len(ids), state))
		}
	})
}

// SwitchView resets the cache, selection, prefetch marks and scroll position
// for a new folder/query, then loads its first page.
func (c *Controller) SwitchView(ctx context.Context, folder services.Folder, query string) error {
	c.cache.Reset(folder, query)
	c.sel.Clear()
	c.hover.Reset()
	c.virt.SetRowCount(0)
	c.virt.ScrollTo(0)
	err := c.cache.LoadFirst(ctx)
	c.refresh()
	return err
}

// Teardown releases the per-row timers.
func (c *Controller) Teardown() {
	c.hover.Teardown()
}

func (c *Controller) revalidate(ctx context.Context) {
	if err := c.cache.Revalidate(ctx); err != nil && c.logger != nil {
		c.logger.Printf("revalidate failed: %v", err)
	}
	c.refresh()
}

func (c *Controller) refresh() {
	c.virt.SetRowCount(c.cache.Len())
	if c.onUpdate != nil {
		c.onUpdate()
	}
}

// prefetchThread is the hover timer target: fetch and cache the conversation
// content. Errors are logged only and never retried automatically.
func (c *Controller) prefetchThread(threadKey string) {
	if c.prefetcher == nil || c.identity == nil {
		return
	}
	if err := c.prefetcher.PrefetchThread(context.Background(), c.identity, threadKey); err != nil {
		if c.logger != nil {
			c.logger.Printf("prefetch %s: %v", threadKey, err)
		}
	}
}
