package list

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailgrid/mailgrid/internal/services"
)

type fakeReader struct {
	mu       sync.Mutex
	read     [][]string
	unread   [][]string
	fail     bool
}

func (f *fakeReader) MarkRead(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return services.ErrMutationFailed
	}
	f.read = append(f.read, append([]string(nil), ids...))
	return nil
}

func (f *fakeReader) MarkUnread(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return services.ErrMutationFailed
	}
	f.unread = append(f.unread, append([]string(nil), ids...))
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) record(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeNotifier) ShowSuccess(ctx context.Context, msg string) { f.record("success: " + msg) }
func (f *fakeNotifier) ShowError(ctx context.Context, msg string)   { f.record("error: " + msg) }
func (f *fakeNotifier) ShowWarning(ctx context.Context, msg string) { f.record("warning: " + msg) }
func (f *fakeNotifier) ShowInfo(ctx context.Context, msg string)    { f.record("info: " + msg) }

func (f *fakeNotifier) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

type fakeIdentityService struct {
	identity *services.Identity
	err      error
}

func (f *fakeIdentityService) CurrentIdentity(ctx context.Context) (*services.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func syncRunner(f func()) { f() }

func newTestController(t *testing.T, repo *fakeRepo, reader *fakeReader, notifier *fakeNotifier) *Controller {
	t.Helper()
	c := NewController(Options{
		Repo:     repo,
		Reader:   reader,
		Identity: &fakeIdentityService{identity: &services.Identity{UserID: "user@example.com"}},
		Notifier: notifier,
		Folder:   services.FolderInbox,
		PageSize: 10,
		Overscan: 0,
		Run:      syncRunner,
	})
	require.NoError(t, c.Init(context.Background()))
	return c
}

func unreadPage(n int) map[string]*services.ThreadPage {
	threads := mkThreads("p1", n)
	for i := range threads {
		threads[i].Unread = true
	}
	return map[string]*services.ThreadPage{
		"": {Threads: threads, NextPageToken: ""},
	}
}

func TestController_Init_LoadsFirstPageAndIdentity(t *testing.T) {
	repo := newFakeRepo(unreadPage(5))
	c := newTestController(t, repo, &fakeReader{}, &fakeNotifier{})

	assert.Equal(t, 5, c.Cache().Len())
	require.NotNil(t, c.Identity())
	assert.Equal(t, "user@example.com", c.Identity().UserID)
}

func TestController_Init_ToleratesMissingIdentity(t *testing.T) {
	repo := newFakeRepo(unreadPage(2))
	c := NewController(Options{
		Repo:     repo,
		Identity: &fakeIdentityService{err: services.ErrNoIdentity},
		Folder:   services.FolderInbox,
		PageSize: 10,
		Run:      syncRunner,
	})
	require.NoError(t, c.Init(context.Background()))
	assert.Nil(t, c.Identity())
	assert.Equal(t, 2, c.Cache().Len())
}

func TestController_ClickRow_OpensAndAutoMarksRead(t *testing.T) {
	repo := newFakeRepo(unreadPage(3))
	reader := &fakeReader{}
	c := newTestController(t, repo, reader, &fakeNotifier{})
	before := repo.fetchCount()

	res := c.ClickRow(context.Background(), 1)
	assert.Equal(t, "p1-thr-1", res.Opened)
	require.Len(t, reader.read, 1)
	assert.Equal(t, []string{"p1-msg-1"}, reader.read[0])
	assert.Greater(t, repo.fetchCount(), before, "a successful mutation revalidates the cache")
}

func TestController_ClickRow_ReadRowSkipsMutation(t *testing.T) {
	repo := newFakeRepo(map[string]*services.ThreadPage{
		"": {Threads: mkThreads("p1", 3)},
	})
	reader := &fakeReader{}
	c := newTestController(t, repo, reader, &fakeNotifier{})

	res := c.ClickRow(context.Background(), 0)
	assert.Equal(t, "p1-thr-0", res.Opened)
	assert.Empty(t, reader.read)
}

func TestController_ClickRow_MutationFailureKeepsSelection(t *testing.T) {
	repo := newFakeRepo(unreadPage(3))
	reader := &fakeReader{fail: true}
	c := newTestController(t, repo, reader, &fakeNotifier{})
	before := repo.fetchCount()

	res := c.ClickRow(context.Background(), 0)
	assert.Equal(t, "p1-thr-0", res.Opened, "the row opens regardless of the mark-read outcome")
	assert.Equal(t, "p1-thr-0", c.Selection().Selected())
	assert.Equal(t, before, repo.fetchCount(), "a failed mutation must not revalidate")
}

func TestController_ClickRow_OutOfRange(t *testing.T) {
	repo := newFakeRepo(unreadPage(2))
	c := newTestController(t, repo, &fakeReader{}, &fakeNotifier{})

	res := c.ClickRow(context.Background(), 7)
	assert.Empty(t, res.Opened)
	assert.True(t, c.Selection().IsEmpty())
}

func TestController_Scrolled_LoadsMoreNearBottom(t *testing.T) {
	repo := newFakeRepo(map[string]*services.ThreadPage{
		"":   {Threads: mkThreads("p1", 5), NextPageToken: "t2"},
		"t2": {Threads: mkThreads("p2", 5), NextPageToken: ""},
	})
	c := newTestController(t, repo, &fakeReader{}, &fakeNotifier{})

	// Everything fits in the viewport, so the view counts as near-bottom.
	c.Virtualizer().SetViewport(20)
	c.Scrolled(context.Background())
	assert.Equal(t, 10, c.Cache().Len())

	// Exhausted: further triggers stay no-ops.
	fetches := repo.fetchCount()
	c.Scrolled(context.Background())
	assert.Equal(t, fetches, repo.fetchCount())
}

func TestController_Scrolled_FarFromBottomDoesNothing(t *testing.T) {
	repo := newFakeRepo(map[string]*services.ThreadPage{
		"":   {Threads: mkThreads("p1", 50), NextPageToken: "t2"},
		"t2": {Threads: mkThreads("p2", 50), NextPageToken: ""},
	})
	c := newTestController(t, repo, &fakeReader{}, &fakeNotifier{})
	c.Virtualizer().SetViewport(10)
	c.Virtualizer().ScrollTo(0)

	c.Scrolled(context.Background())
	assert.Equal(t, 50, c.Cache().Len())
}

func TestController_Scrolled_ErrorNotifies(t *testing.T) {
	repo := newFakeRepo(map[string]*services.ThreadPage{
		"": {Threads: mkThreads("p1", 3), NextPageToken: "t2"},
	})
	notifier := &fakeNotifier{}
	c := newTestController(t, repo, &fakeReader{}, notifier)
	c.Virtualizer().SetViewport(20)
	repo.setErr(errors.New("boom"))

	c.Scrolled(context.Background())
	assert.Equal(t, "error: Failed to load more threads", notifier.last())
	assert.Equal(t, 3, c.Cache().Len())
}

func TestController_ToggleSelectAll(t *testing.T) {
	repo := newFakeRepo(unreadPage(3))
	notifier := &fakeNotifier{}
	c := newTestController(t, repo, &fakeReader{}, notifier)
	ctx := context.Background()

	c.ToggleSelectAll(ctx)
	assert.Equal(t, "success: Selected 3 thread(s)", notifier.last())
	assert.Len(t, c.Selection().Bulk(), 3)

	c.ToggleSelectAll(ctx)
	assert.Equal(t, "info: Selection cleared", notifier.last())
	assert.True(t, c.Selection().IsEmpty())
}

func TestController_ToggleSelectAll_EmptyView(t *testing.T) {
	repo := newFakeRepo(map[string]*services.ThreadPage{"": {}})
	notifier := &fakeNotifier{}
	c := newTestController(t, repo, &fakeReader{}, notifier)

	c.ToggleSelectAll(context.Background())
	assert.Equal(t, "info: No threads to select", notifier.last())
}

func TestController_MarkSelectedRead_Success(t *testing.T) {
	repo := newFakeRepo(unreadPage(3))
	reader := &fakeReader{}
	notifier := &fakeNotifier{}
	c := newTestController(t, repo, reader, notifier)
	ctx := context.Background()

	c.ToggleSelectAll(ctx)
	c.MarkSelectedRead(ctx)

	require.Len(t, reader.read, 1)
	assert.Equal(t, []string{"p1-msg-0", "p1-msg-1", "p1-msg-2"}, reader.read[0])
	assert.Empty(t, c.Selection().Bulk(), "the bulk set clears after a successful mutation")
	assert.Equal(t, "success: Marked 3 thread(s) as read", notifier.last())
}

func TestController_MarkSelectedUnread_Success(t *testing.T) {
	repo := newFakeRepo(unreadPage(2))
	reader := &fakeReader{}
	notifier := &fakeNotifier{}
	c := newTestController(t, repo, reader, notifier)
	ctx := context.Background()

	c.ToggleSelectAll(ctx)
	c.MarkSelectedUnread(ctx)

	require.Len(t, reader.unread, 1)
	assert.Equal(t, "success: Marked 2 thread(s) as unread", notifier.last())
}

func TestController_MarkSelectedRead_FailureKeepsBulk(t *testing.T) {
	repo := newFakeRepo(unreadPage(3))
	reader := &fakeReader{fail: true}
	notifier := &fakeNotifier{}
	c := newTestController(t, repo, reader, notifier)
	ctx := context.Background()

	c.ToggleSelectAll(ctx)
	c.MarkSelectedRead(ctx)

	assert.Equal(t, "error: Failed to mark as read", notifier.last())
	assert.Len(t, c.Selection().Bulk(), 3, "a failed mutation leaves the selection for a retry")
}

func TestController_MarkSelectedRead_NothingSelected(t *testing.T) {
	repo := newFakeRepo(unreadPage(3))
	notifier := &fakeNotifier{}
	c := newTestController(t, repo, &fakeReader{}, notifier)

	c.MarkSelectedRead(context.Background())
	assert.Equal(t, "info: No threads selected", notifier.last())
}

func TestController_SwitchView_ResetsEverything(t *testing.T) {
	repo := newFakeRepo(map[string]*services.ThreadPage{
		"": {Threads: mkThreads("p1", 5), NextPageToken: ""},
	})
	c := newTestController(t, repo, &fakeReader{}, &fakeNotifier{})
	ctx := context.Background()

	c.ToggleSelectAll(ctx)
	c.Virtualizer().SetViewport(4)
	c.Virtualizer().ScrollTo(6)
	require.NotEmpty(t, c.Selection().Bulk())

	require.NoError(t, c.SwitchView(ctx, services.FolderArchive, "from:alice"))
	assert.True(t, c.Selection().IsEmpty())
	assert.Equal(t, 0, c.Virtualizer().ScrollTop())
	assert.Equal(t, services.FolderArchive, c.Cache().Folder())
}

func TestController_OnUpdateFiresAfterSequenceChanges(t *testing.T) {
	repo := newFakeRepo(unreadPage(3))
	updates := 0
	c := NewController(Options{
		Repo:     repo,
		Folder:   services.FolderInbox,
		PageSize: 10,
		Run:      syncRunner,
		OnUpdate: func() { updates++ },
	})
	require.NoError(t, c.Init(context.Background()))
	assert.Equal(t, 1, updates)
	assert.Equal(t, 3, c.Virtualizer().TotalHeight()/RowHeightNormal)
}
