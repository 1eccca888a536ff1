package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/samiuddin-code/datportal-sub005/internal/chat"
)

// MaxFilesPerBatch is the most files one upload call may carry.
const MaxFilesPerBatch = 10

// ErrTooManyFiles rejects an upload batch above MaxFilesPerBatch.
var ErrTooManyFiles = fmt.Errorf("at most %d files per upload", MaxFilesPerBatch)

// ErrNoFiles rejects an empty upload batch.
var ErrNoFiles = errors.New("no files to upload")

// ThreadQuery selects one page of a project's conversation.
type ThreadQuery struct {
	ProjectID int64
	PerPage   int
	// Before requests messages older than this id; zero for the newest page.
	Before int64
}

// ThreadPage is a newest-first page of messages.
type ThreadPage struct {
	Items []chat.Message `json:"data"`
	Meta  chat.PageMeta  `json:"meta"`
}

// ProjectPage is a page of sidebar summaries.
type ProjectPage struct {
	Items []chat.Summary `json:"data"`
	Meta  chat.PageMeta  `json:"meta"`
}

// SendRequest is the body of a new conversation message.
type SendRequest struct {
	ProjectID   int64  `json:"projectId"`
	Message     string `json:"message"`
	ClientToken string `json:"clientToken,omitempty"`
}

// File is one attachment to upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ListConversations fetches GET conversations.
func (c *Client) ListConversations(ctx context.Context, q ThreadQuery) (*ThreadPage, error) {
	params := url.Values{}
	params.Set("projectId", strconv.FormatInt(q.ProjectID, 10))
	if q.PerPage > 0 {
		params.Set("perPage", strconv.Itoa(q.PerPage))
	}
	if q.Before > 0 {
		params.Set("before", strconv.FormatInt(q.Before, 10))
	}
	var page ThreadPage
	if err := c.doJSON(ctx, http.MethodGet, "conversations", params, nil, &page); err != nil {
		return nil, fmt.Errorf("list conversations for project %d: %w", q.ProjectID, err)
	}
	return &page, nil
}

// ListProjects fetches one page of the sidebar project list.
func (c *Client) ListProjects(ctx context.Context, page, perPage int) (*ProjectPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(max(page, 1)))
	if perPage > 0 {
		params.Set("perPage", strconv.Itoa(perPage))
	}
	var out ProjectPage
	if err := c.doJSON(ctx, http.MethodGet, "conversations/projects", params, nil, &out); err != nil {
		return nil, fmt.Errorf("list projects page %d: %w", page, err)
	}
	return &out, nil
}

// SendMessage posts a new message and returns the created entry.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (*chat.Message, error) {
	var out struct {
		Data chat.Message `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "conversation", nil, req, &out); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &out.Data, nil
}

// DeleteMessage removes a message and returns the server's confirmation text.
func (c *Client) DeleteMessage(ctx context.Context, id int64) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "conversation/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return "", fmt.Errorf("delete message %d: %w", id, err)
	}
	return out.Message, nil
}

// Upload posts files as multipart files[] to upload/{projectId}.
func (c *Client) Upload(ctx context.Context, projectID int64, files []File) ([]chat.MediaRef, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if len(files) > MaxFilesPerBatch {
		return nil, ErrTooManyFiles
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[]"; filename=%q`, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write file data: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var out struct {
		Data []chat.MediaRef `json:"data"`
	}
	path := "upload/" + strconv.FormatInt(projectID, 10)
	if err := c.do(ctx, http.MethodPost, path, nil, &buf, w.FormDataContentType(), &out); err != nil {
		return nil, fmt.Errorf("upload %d files: %w", len(files), err)
	}
	return out.Data, nil
}
