package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Client wraps the Gmail API service for thread listing, content fetch and
// label mutation.
type Client struct {
	Service *gmailapi.Service
}

// Message is a simplified Gmail message with decoded bodies.
type Message struct {
	ID        string
	ThreadID  string
	From      string
	Subject   string
	Date      string
	LabelIDs  []string
	PlainText string
	HTML      string
}

// Thread is a conversation with its decoded messages, oldest first.
type Thread struct {
	ID       string
	Subject  string
	Messages []Message
}

// NewClient creates a Gmail client from an initialized API service.
func NewClient(service *gmailapi.Service) *Client {
	return &Client{Service: service}
}

// NewClientFromHTTP creates a Gmail client from an authorized HTTP client.
func NewClientFromHTTP(ctx context.Context, httpClient *http.Client) (*Client, error) {
	service, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("could not create Gmail service: %w", err)
	}
	return &Client{Service: service}, nil
}

// ListThreadsPage returns one page of thread stubs plus the nextPageToken.
// The stubs carry ids and snippets only; use GetThreadsMetadataParallel for
// list-row metadata.
func (c *Client) ListThreadsPage(ctx context.Context, labelIDs []string, query string, maxResults int64, pageToken string) ([]*gmailapi.Thread, string, error) {
	if c.Service == nil {
		return nil, "", fmt.Errorf("gmail client not initialized")
	}
	call := c.Service.Users.Threads.List("me").Context(ctx)
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}
	if len(labelIDs) > 0 {
		call = call.LabelIds(labelIDs...)
	}
	if query != "" {
		call = call.Q(query)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("could not list threads: %w", err)
	}
	return resp.Threads, resp.NextPageToken, nil
}

// GetThreadMetadata fetches a thread with per-message headers but no bodies.
func (c *Client) GetThreadMetadata(ctx context.Context, threadID string) (*gmailapi.Thread, error) {
	if c.Service == nil {
		return nil, fmt.Errorf("gmail client not initialized")
	}
	thread, err := c.Service.Users.Threads.Get("me", threadID).
		Format("metadata").
		MetadataHeaders("From", "Subject", "Date").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("could not get thread %s: %w", threadID, err)
	}
	return thread, nil
}

// GetThreadsMetadataParallel fetches metadata for multiple threads using a
// bounded worker pool, preserving input order. Individual failures surface
// as nil entries plus a joined error.
func (c *Client) GetThreadsMetadataParallel(ctx context.Context, threadIDs []string, workers int) ([]*gmailapi.Thread, error) {
	if workers <= 0 {
		workers = 3
	}
	if workers > len(threadIDs) {
		workers = len(threadIDs)
	}

	results := make([]*gmailapi.Thread, len(threadIDs))
	errs := make([]string, 0)
	var errMu sync.Mutex

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, id := range threadIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			thread, err := c.GetThreadMetadata(ctx, id)
			if err != nil {
				errMu.Lock()
				errs = append(errs, err.Error())
				errMu.Unlock()
				return
			}
			results[i] = thread
		}(i, id)
	}
	wg.Wait()

	if len(errs) > 0 {
		return results, fmt.Errorf("thread metadata errors: %s", strings.Join(errs, "; "))
	}
	return results, nil
}

// GetThreadWithContent fetches the full thread and decodes message bodies.
func (c *Client) GetThreadWithContent(ctx context.Context, threadID string) (*Thread, error) {
	if c.Service == nil {
		return nil, fmt.Errorf("gmail client not initialized")
	}
	raw, err := c.Service.Users.Threads.Get("me", threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("could not get thread content %s: %w", threadID, err)
	}

	t := &Thread{ID: raw.Id}
	for _, m := range raw.Messages {
		msg := Message{
			ID:       m.Id,
			ThreadID: m.ThreadId,
			From:     ExtractHeader(m, "From"),
			Subject:  ExtractHeader(m, "Subject"),
			Date:     ExtractHeader(m, "Date"),
			LabelIDs: m.LabelIds,
		}
		msg.PlainText, msg.HTML = extractBodies(m.Payload)
		t.Messages = append(t.Messages, msg)
		if t.Subject == "" && msg.Subject != "" {
			t.Subject = msg.Subject
		}
	}
	return t, nil
}

// ModifyMessages adds/removes labels on each message id. Failures are
// collected so one bad id does not abort the rest.
func (c *Client) ModifyMessages(ctx context.Context, messageIDs []string, addLabelIDs, removeLabelIDs []string) error {
	if c.Service == nil {
		return fmt.Errorf("gmail client not initialized")
	}
	req := &gmailapi.ModifyMessageRequest{
		AddLabelIds:    addLabelIDs,
		RemoveLabelIds: removeLabelIDs,
	}
	var errs []string
	for _, id := range messageIDs {
		if _, err := c.Service.Users.Messages.Modify("me", id, req).Context(ctx).Do(); err != nil {
			errs = append(errs, fmt.Sprintf("modify %s: %v", id, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("message modify errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Profile returns the authenticated account's profile.
func (c *Client) Profile(ctx context.Context) (*gmailapi.Profile, error) {
	if c.Service == nil {
		return nil, fmt.Errorf("gmail client not initialized")
	}
	profile, err := c.Service.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("could not get profile: %w", err)
	}
	return profile, nil
}

// ExtractHeader returns a header value from a message, or "".
func ExtractHeader(msg *gmailapi.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// extractBodies walks the MIME tree collecting the first text/plain and
// text/html bodies.
func extractBodies(part *gmailapi.MessagePart) (plain, html string) {
	if part == nil {
		return "", ""
	}
	switch {
	case strings.HasPrefix(part.MimeType, "text/plain") && plainData(part) != "":
		plain = plainData(part)
	case strings.HasPrefix(part.MimeType, "text/html") && plainData(part) != "":
		html = plainData(part)
	}
	for _, child := range part.Parts {
		p, h := extractBodies(child)
		if plain == "" {
			plain = p
		}
		if html == "" {
			html = h
		}
	}
	return plain, html
}

func plainData(part *gmailapi.MessagePart) string {
	if part.Body == nil || part.Body.Data == "" {
		return ""
	}
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(part.Body.Data)
	if err != nil {
		return ""
	}
	return string(decoded)
}
