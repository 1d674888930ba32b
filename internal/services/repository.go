package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/mailgrid/mailgrid/internal/gmail"
	"github.com/mailgrid/mailgrid/internal/render"
)

// GmailThreadRepository implements ThreadRepository and IdentityService on
// top of the Gmail API client.
type GmailThreadRepository struct {
	client  *gmail.Client
	workers int // parallelism for per-thread metadata fetches
	logger  *log.Logger
}

// NewGmailThreadRepository creates a repository with the given metadata fetch
// parallelism.
func NewGmailThreadRepository(client *gmail.Client, workers int) *GmailThreadRepository {
	if workers <= 0 {
		workers = 5
	}
	return &GmailThreadRepository{client: client, workers: workers}
}

// SetLogger sets the logger for debug output.
func (r *GmailThreadRepository) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// FetchThreadPage returns one page of thread summaries for a folder/query
// view. A failed fetch returns no partial page.
func (r *GmailThreadRepository) FetchThreadPage(ctx context.Context, folder Folder, query string, pageSize int64, pageToken string) (*ThreadPage, error) {
	if r.client == nil {
		return nil, fmt.Errorf("%w: gmail client not initialized", ErrServiceUnavailable)
	}
	q := strings.TrimSpace(strings.Join([]string{folder.Query(), query}, " "))
	stubs, nextToken, err := r.client.ListThreadsPage(ctx, folder.LabelIDs(), q, pageSize, pageToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if len(stubs) == 0 {
		return &ThreadPage{NextPageToken: nextToken}, nil
	}

	ids := make([]string, len(stubs))
	for i, s := range stubs {
		ids[i] = s.Id
	}
	threads, err := r.client.GetThreadsMetadataParallel(ctx, ids, r.workers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	page := &ThreadPage{NextPageToken: nextToken}
	for _, t := range threads {
		if t == nil || len(t.Messages) == 0 {
			continue
		}
		page.Threads = append(page.Threads, summarize(t))
	}
	return page, nil
}

// FetchThreadDetail fetches and renders the full content of a conversation.
func (r *GmailThreadRepository) FetchThreadDetail(ctx context.Context, userID, threadID, connectionID string) (*ThreadContent, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("%w: empty thread id", ErrInvalidThread)
	}
	thread, err := r.client.GetThreadWithContent(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	content := &ThreadContent{ThreadID: thread.ID, Subject: thread.Subject}
	for _, m := range thread.Messages {
		body := m.PlainText
		if body == "" && m.HTML != "" {
			body = render.HTMLToText(m.HTML)
		}
		content.Bodies = append(content.Bodies,
			fmt.Sprintf("From: %s\nDate: %s\n\n%s", m.From, m.Date, strings.TrimSpace(body)))
	}
	return content, nil
}

// SetReadState adds or removes the UNREAD label on the given row ids.
func (r *GmailThreadRepository) SetReadState(ctx context.Context, ids []string, unread bool) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no ids provided", ErrInvalidInput)
	}
	var add, remove []string
	if unread {
		add = []string{"UNREAD"}
	} else {
		remove = []string{"UNREAD"}
	}
	if err := r.client.ModifyMessages(ctx, ids, add, remove); err != nil {
		return fmt.Errorf("%w: %v", ErrMutationFailed, err)
	}
	return nil
}

// CurrentIdentity resolves the authenticated account.
func (r *GmailThreadRepository) CurrentIdentity(ctx context.Context) (*Identity, error) {
	profile, err := r.client.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	return &Identity{
		UserID:       profile.EmailAddress,
		ConnectionID: fmt.Sprintf("%d", profile.HistoryId),
	}, nil
}

// summarize maps a metadata-format Gmail thread onto a list row.
func summarize(t *gmailapi.Thread) ThreadSummary {
	newest := t.Messages[len(t.Messages)-1]
	name, email := parseAddress(gmail.ExtractHeader(newest, "From"))

	seen := make(map[string]struct{})
	var tags []string
	unread := false
	for _, m := range t.Messages {
		for _, l := range m.LabelIds {
			if l == "UNREAD" {
				unread = true
			}
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				tags = append(tags, l)
			}
		}
	}

	return ThreadSummary{
		ID:           newest.Id,
		ThreadID:     t.Id,
		SenderName:   name,
		SenderEmail:  email,
		Title:        gmail.ExtractHeader(newest, "Subject"),
		Tags:         tags,
		Unread:       unread,
		TotalReplies: len(t.Messages) - 1,
		ReceivedOn:   gmail.ExtractHeader(newest, "Date"),
	}
}

// parseAddress splits an RFC 5322 style "Name <addr>" header value.
func parseAddress(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if i := strings.LastIndex(from, "<"); i >= 0 {
		name = strings.Trim(strings.TrimSpace(from[:i]), `"`)
		email = strings.TrimSuffix(strings.TrimSpace(from[i+1:]), ">")
		if name == "" {
			name = email
		}
		return name, email
	}
	return from, from
}
