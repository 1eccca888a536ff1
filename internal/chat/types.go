package chat

import (
	"mime"
	"strconv"
	"strings"
	"time"
)

// MediaCategory groups attachments by what the UI can do with them.
type MediaCategory string

const (
	MediaImage    MediaCategory = "image"
	MediaVideo    MediaCategory = "video"
	MediaAudio    MediaCategory = "audio"
	MediaDocument MediaCategory = "document"
	MediaOther    MediaCategory = "other"
)

// MediaRef describes one attachment of a message.
type MediaRef struct {
	ID       int64         `json:"id"`
	Path     string        `json:"path"`
	Category MediaCategory `json:"category"`
}

// Project is the minimal project payload embedded in feed events.
type Project struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	ReferenceNumber string `json:"referenceNumber"`
}

// Member is a project member used for mentions and avatars.
type Member struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Message is one conversation entry.
// ID is zero for a provisional entry that the server has not confirmed yet.
type Message struct {
	ID           int64      `json:"id"`
	ProjectID    int64      `json:"projectId"`
	AuthorUserID int64      `json:"authorUserId"`
	Body         string     `json:"body"`
	Media        []MediaRef `json:"media"`
	AddedAt      time.Time  `json:"addedAt"`
	ClientToken  string     `json:"clientToken,omitempty"`
	Removed      bool       `json:"removed,omitempty"`

	Project *Project `json:"project,omitempty"`
	Members []Member `json:"members,omitempty"`
}

// Provisional reports whether the message still waits for a server id.
func (m *Message) Provisional() bool {
	return m.ID == 0
}

// Key is the identity key used for de-duplication.
func (m *Message) Key() string {
	if m.ID != 0 {
		return "id:" + strconv.FormatInt(m.ID, 10)
	}
	return "tmp:" + m.ClientToken
}

// KeyForID returns the identity key of a confirmed message id.
func KeyForID(id int64) string {
	return "id:" + strconv.FormatInt(id, 10)
}

// Preview is the last-message excerpt shown in the sidebar.
type Preview struct {
	Body       string    `json:"body"`
	AddedAt    time.Time `json:"addedAt"`
	MediaCount int       `json:"mediaCount"`
}

// PreviewOf builds the sidebar preview of a message.
func PreviewOf(m *Message) *Preview {
	return &Preview{
		Body:       truncate(m.Body, 100),
		AddedAt:    m.AddedAt,
		MediaCount: len(m.Media),
	}
}

// Summary is one sidebar row.
type Summary struct {
	ProjectID       int64    `json:"projectId"`
	Title           string   `json:"title"`
	ReferenceNumber string   `json:"referenceNumber"`
	LastMessage     *Preview `json:"lastMessage,omitempty"`
	UnreadCount     int      `json:"unreadCount"`
	Members         []Member `json:"members,omitempty"`
}

// PageMeta is the pagination block returned by list endpoints.
type PageMeta struct {
	Total     int `json:"total"`
	Page      int `json:"page"`
	PageCount int `json:"pageCount"`
}

// CategoryForMIME maps a MIME type to a media category.
func CategoryForMIME(mimeType string) MediaCategory {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch {
	case strings.HasPrefix(base, "image/"):
		return MediaImage
	case strings.HasPrefix(base, "video/"):
		return MediaVideo
	case strings.HasPrefix(base, "audio/"):
		return MediaAudio
	case base == "application/pdf",
		strings.HasPrefix(base, "text/"),
		strings.Contains(base, "officedocument"),
		strings.Contains(base, "msword"),
		strings.Contains(base, "ms-excel"):
		return MediaDocument
	default:
		return MediaOther
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
