package services

import (
	"context"
	"strings"
)

// ThreadSummary is one row of a mailbox view.
type ThreadSummary struct {
	ID           string // newest message id, unique within one page fetch
	ThreadID     string // owning conversation id; equals ID for single-message threads
	SenderName   string
	SenderEmail  string
	Title        string
	Tags         []string // label ids, drive folder membership and badges
	Unread       bool
	TotalReplies int
	ReceivedOn   string
}

// SelectionKey returns the identifier a row collapses to when opened:
// conversations select as a single unit.
func (t ThreadSummary) SelectionKey() string {
	if t.ThreadID != "" {
		return t.ThreadID
	}
	return t.ID
}

// HasTag reports whether the thread carries the given label id.
func (t ThreadSummary) HasTag(tag string) bool {
	for _, l := range t.Tags {
		if strings.EqualFold(l, tag) {
			return true
		}
	}
	return false
}

// ThreadPage is one page of thread summaries in server order.
type ThreadPage struct {
	Threads       []ThreadSummary
	NextPageToken string // empty when the collection is exhausted
}

// Folder is a named view filter mapped to required label membership.
type Folder string

const (
	FolderInbox   Folder = "inbox"
	FolderSent    Folder = "sent"
	FolderSpam    Folder = "spam"
	FolderArchive Folder = "archive"
	FolderDraft   Folder = "draft"
	FolderTrash   Folder = "trash"
)

// LabelIDs returns the Gmail label ids a folder filters on. Archive is the
// absence of INBOX and is expressed through the query instead.
func (f Folder) LabelIDs() []string {
	switch f {
	case FolderInbox:
		return []string{"INBOX"}
	case FolderSent:
		return []string{"SENT"}
	case FolderSpam:
		return []string{"SPAM"}
	case FolderDraft:
		return []string{"DRAFT"}
	case FolderTrash:
		return []string{"TRASH"}
	default:
		return nil
	}
}

// Query returns the extra search expression a folder requires beyond labels.
func (f Folder) Query() string {
	if f == FolderArchive {
		return "-in:inbox -in:spam -in:trash"
	}
	return ""
}

// Identity describes the authenticated account a view operates on behalf of.
type Identity struct {
	UserID       string // account email
	ConnectionID string // provider connection handle (history id for Gmail)
}

// ThreadContent is the full content of a conversation, used by prefetch and
// the reading pane.
type ThreadContent struct {
	ThreadID string
	Subject  string
	Bodies   []string // plain-text message bodies, oldest first
}

// ThreadRepository handles thread data operations against the mail provider.
type ThreadRepository interface {
	FetchThreadPage(ctx context.Context, folder Folder, query string, pageSize int64, pageToken string) (*ThreadPage, error)
	FetchThreadDetail(ctx context.Context, userID, threadID, connectionID string) (*ThreadContent, error)
	SetReadState(ctx context.Context, ids []string, unread bool) error
}

// IdentityService resolves the current authenticated identity, if any.
type IdentityService interface {
	CurrentIdentity(ctx context.Context) (*Identity, error)
}

// ReadStateService issues read/unread mutations against the provider.
type ReadStateService interface {
	MarkRead(ctx context.Context, ids []string) error
	MarkUnread(ctx context.Context, ids []string) error
}

// PrefetchService eagerly fetches and caches full thread content ahead of an
// explicit open.
type PrefetchService interface {
	PrefetchThread(ctx context.Context, identity *Identity, threadID string) error
	CachedThread(ctx context.Context, accountEmail, threadID string) (string, bool)
	Shutdown()
}

// Notifier delivers user-facing notices for selection and mutation outcomes.
type Notifier interface {
	ShowSuccess(ctx context.Context, msg string)
	ShowError(ctx context.Context, msg string)
	ShowWarning(ctx context.Context, msg string)
	ShowInfo(ctx context.Context, msg string)
}
