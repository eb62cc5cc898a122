package domain

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// MediaKind is the type of an attachment
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaVoice    MediaKind = "voice"
)

// Attachment is one media item of an inbound message
type Attachment struct {
	FileID    string
	MessageID int
	Kind      MediaKind
	FileName  string
	MimeType  string
	Size      int64
}

// Extension returns the lower-cased file extension without the dot
func (a *Attachment) Extension() string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(a.FileName), "."))
}

// Button is a URL button attached to an outgoing message
type Button struct {
	Text string
	URL  string
}

// InboundMessage represents a message received from a source chat.
// A media group is delivered as one InboundMessage with several attachments.
type InboundMessage struct {
	ChatID         int64
	ChatUsername   string
	MessageID      int
	MediaGroupID   string
	Text           string
	SenderName     string
	SenderUsername string
	Date           time.Time
	Attachments    []Attachment
	// Buttons are the URL buttons of the source message, carried to the target
	Buttons [][]Button
}

// IsMediaGroup reports whether the message came from a multi-attachment group
func (m *InboundMessage) IsMediaGroup() bool {
	return m.MediaGroupID != ""
}

// HasMedia reports whether the source message carried any attachment
func (m *InboundMessage) HasMedia() bool {
	return len(m.Attachments) > 0
}

// Link returns the deep link to the source message
func (m *InboundMessage) Link() string {
	if m.ChatUsername != "" {
		return fmt.Sprintf("https://t.me/%s/%d", m.ChatUsername, m.MessageID)
	}
	// private supergroups and channels use the -100 prefixed id
	id := strconv.FormatInt(m.ChatID, 10)
	id = strings.TrimPrefix(id, "-100")
	id = strings.TrimPrefix(id, "-")
	return fmt.Sprintf("https://t.me/c/%s/%d", id, m.MessageID)
}
