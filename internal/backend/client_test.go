package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samiuddin-code/datportal-sub005/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithToken("tok"), WithRateLimit(0, 0))
}

func TestListConversations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("projectId"))
		assert.Equal(t, "10", r.URL.Query().Get("perPage"))
		assert.Equal(t, "16", r.URL.Query().Get("before"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data":[{"id":15,"projectId":42,"body":"a"},{"id":14,"projectId":42,"body":"b"}],"meta":{"total":25,"page":2,"pageCount":3}}`)
	})

	page, err := c.ListConversations(context.Background(), ThreadQuery{ProjectID: 42, PerPage: 10, Before: 16})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(15), page.Items[0].ID)
	assert.Equal(t, 25, page.Meta.Total)
}

func TestListConversationsOmitsZeroBefore(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("before"))
		_, _ = io.WriteString(w, `{"data":[],"meta":{"total":0}}`)
	})
	_, err := c.ListConversations(context.Background(), ThreadQuery{ProjectID: 1})
	require.NoError(t, err)
}

func TestSendMessageCarriesClientToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/conversation", r.URL.Path)
		var req SendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, SendRequest{ProjectID: 42, Message: "Hello", ClientToken: "t-1"}, req)
		_, _ = io.WriteString(w, `{"data":{"id":501,"projectId":42,"authorUserId":7,"body":"Hello","clientToken":"t-1"}}`)
	})

	msg, err := c.SendMessage(context.Background(), SendRequest{ProjectID: 42, Message: "Hello", ClientToken: "t-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(501), msg.ID)
	assert.Equal(t, "t-1", msg.ClientToken)
}

func TestDeleteMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/conversation/9", r.URL.Path)
		_, _ = io.WriteString(w, `{"message":"Conversation deleted"}`)
	})
	text, err := c.DeleteMessage(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "Conversation deleted", text)
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string message", 404, `{"message":"Not found"}`, "Not found"},
		{"validation list", 400, `{"message":["message should not be empty","projectId must be a number"]}`, "message should not be empty; projectId must be a number"},
		{"plain body", 502, `bad gateway`, "bad gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.DeleteMessage(context.Background(), 1)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.ListProjects(context.Background(), 1, 20)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsForbidden(err))
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/42", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["files[]"]
		require.Len(t, files, 2)
		assert.Equal(t, "plan.pdf", files[0].Filename)
		assert.Equal(t, "application/pdf", files[0].Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"data":[{"id":1,"path":"a/plan.pdf","category":"document"}]}`)
	})

	refs, err := c.Upload(context.Background(), 42, []File{
		{Name: "plan.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
		{Name: "site.jpg", Data: []byte{0xff, 0xd8}},
	})
	require.NoError(t, err)
	assert.Equal(t, []chat.MediaRef{{ID: 1, Path: "a/plan.pdf", Category: chat.MediaDocument}}, refs)
}

func TestUploadCapRejectedBeforeNetwork(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	files := make([]File, MaxFilesPerBatch+1)
	_, err := c.Upload(context.Background(), 42, files)
	assert.ErrorIs(t, err, ErrTooManyFiles)

	_, err = c.Upload(context.Background(), 42, nil)
	assert.ErrorIs(t, err, ErrNoFiles)
	assert.False(t, called)
}

func TestListProjects(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations/projects", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = io.WriteString(w, `{"data":[{"projectId":7,"title":"Villa","referenceNumber":"DP-7","unreadCount":4}],"meta":{"total":21,"page":2,"pageCount":2}}`)
	})
	page, err := c.ListProjects(context.Background(), 2, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 4, page.Items[0].UnreadCount)
	assert.Equal(t, 2, page.Meta.PageCount)
}

func TestRateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, WithRateLimit(0.001, 1))

	_, err := c.DeleteMessage(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.DeleteMessage(ctx, 2)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "rate limit"))
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestParseIdentity(t *testing.T) {
	tok := signed(t, jwt.MapClaims{
		"userId": 7,
		"name":   "Sara",
		"permissions": map[string]any{
			"conversation:add":    true,
			"conversation:delete": false,
		},
		"exp": 1900000000,
	})

	id, err := ParseIdentity(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id.UserID)
	assert.Equal(t, "Sara", id.Name)
	assert.True(t, id.Permissions["conversation:add"])
	assert.False(t, id.Permissions["conversation:delete"])
	assert.Equal(t, int64(1900000000), id.ExpiresAt)
}

func TestParseIdentityFallsBackToSubject(t *testing.T) {
	id, err := ParseIdentity(signed(t, jwt.MapClaims{"sub": "12"}))
	require.NoError(t, err)
	assert.Equal(t, int64(12), id.UserID)

	_, err = ParseIdentity(signed(t, jwt.MapClaims{"name": "x"}))
	assert.Error(t, err)

	_, err = ParseIdentity("not-a-token")
	assert.Error(t, err)
}
