package gmail

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	gmailapi "google.golang.org/api/gmail/v1"
)

func TestExtractHeader(t *testing.T) {
	msg := &gmailapi.Message{
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "alice@example.com"},
				{Name: "Subject", Value: "Hello"},
			},
		},
	}

	assert.Equal(t, "alice@example.com", ExtractHeader(msg, "From"))
	assert.Equal(t, "Hello", ExtractHeader(msg, "subject"), "header names match case-insensitively")
	assert.Empty(t, ExtractHeader(msg, "Date"))
	assert.Empty(t, ExtractHeader(nil, "From"))
	assert.Empty(t, ExtractHeader(&gmailapi.Message{}, "From"))
}

func encodeBody(s string) *gmailapi.MessagePartBody {
	return &gmailapi.MessagePartBody{
		Data: base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s)),
	}
}

func TestExtractBodies(t *testing.T) {
	// multipart/alternative with both representations.
	part := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/plain; charset=utf-8", Body: encodeBody("plain body")},
			{MimeType: "text/html; charset=utf-8", Body: encodeBody("<p>html body</p>")},
		},
	}
	plain, html := extractBodies(part)
	assert.Equal(t, "plain body", plain)
	assert.Equal(t, "<p>html body</p>", html)
}

func TestExtractBodies_NestedMultipart(t *testing.T) {
	part := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain", Body: encodeBody("nested plain")},
				},
			},
			{MimeType: "application/pdf", Body: encodeBody("%PDF")},
		},
	}
	plain, html := extractBodies(part)
	assert.Equal(t, "nested plain", plain)
	assert.Empty(t, html)
}

func TestExtractBodies_FirstBodyWins(t *testing.T) {
	part := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/plain", Body: encodeBody("first")},
			{MimeType: "text/plain", Body: encodeBody("second")},
		},
	}
	plain, _ := extractBodies(part)
	assert.Equal(t, "first", plain)
}

func TestExtractBodies_Degenerate(t *testing.T) {
	plain, html := extractBodies(nil)
	assert.Empty(t, plain)
	assert.Empty(t, html)

	plain, html = extractBodies(&gmailapi.MessagePart{MimeType: "text/plain"})
	assert.Empty(t, plain)
	assert.Empty(t, html)

	// Undecodable base64 is treated as no body.
	plain, _ = extractBodies(&gmailapi.MessagePart{
		MimeType: "text/plain",
		Body:     &gmailapi.MessagePartBody{Data: "!!not-base64!!"},
	})
	assert.Empty(t, plain)
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{}
	ctx := context.Background()

	_, _, err := c.ListThreadsPage(ctx, nil, "", 50, "")
	assert.Error(t, err)
	_, err = c.GetThreadMetadata(ctx, "thr-1")
	assert.Error(t, err)
	_, err = c.GetThreadWithContent(ctx, "thr-1")
	assert.Error(t, err)
	err = c.ModifyMessages(ctx, []string{"m1"}, nil, []string{"UNREAD"})
	assert.Error(t, err)
	_, err = c.Profile(ctx)
	assert.Error(t, err)
}
