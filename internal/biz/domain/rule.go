package domain

import "fmt"

// MessageMode is the parse mode used for outgoing text
type MessageMode string

const (
	MessageModePlain    MessageMode = "plain"
	MessageModeMarkdown MessageMode = "markdown"
	MessageModeHTML     MessageMode = "html"
)

// ParseMessageMode parses a mode name, defaulting to plain for empty input
func ParseMessageMode(s string) (MessageMode, error) {
	switch MessageMode(s) {
	case "", MessageModePlain:
		return MessageModePlain, nil
	case MessageModeMarkdown, MessageModeHTML:
		return MessageMode(s), nil
	}
	return "", fmt.Errorf("unknown message mode %q", s)
}

// PreviewMode controls the link preview of forwarded messages
type PreviewMode string

const (
	PreviewOn     PreviewMode = "on"
	PreviewOff    PreviewMode = "off"
	PreviewFollow PreviewMode = "follow"
)

// ParsePreviewMode parses a preview mode name, defaulting to follow for empty input
func ParsePreviewMode(s string) (PreviewMode, error) {
	switch PreviewMode(s) {
	case "", PreviewFollow:
		return PreviewFollow, nil
	case PreviewOn, PreviewOff:
		return PreviewMode(s), nil
	}
	return "", fmt.Errorf("unknown preview mode %q", s)
}

// ForwardRule is a configured source -> target forwarding policy
type ForwardRule struct {
	ID           int64
	Name         string
	SourceChatID int64
	TargetChatID string // numeric chat id, @username or a Feishu chat_id
	Enabled      bool

	MessageMode    MessageMode
	PreviewMode    PreviewMode
	OriginalLink   bool
	OriginalSender bool
	OriginalTime   bool

	MaxMediaSizeMB         int // 0 disables the size limit
	MediaTypeFilterOn      bool
	MediaExtensionFilterOn bool

	SyncEnabled bool
	SyncDomain  string
	SyncItem    SyncItem
}

// MaxMediaBytes returns the size ceiling in bytes, 0 when unlimited
func (r *ForwardRule) MaxMediaBytes() int64 {
	if r.MaxMediaSizeMB <= 0 {
		return 0
	}
	return int64(r.MaxMediaSizeMB) * 1024 * 1024
}

// CanSync reports whether keyword mutations of this rule are pushed to the sync peer
func (r *ForwardRule) CanSync() bool {
	return r.SyncEnabled && r.SyncDomain != ""
}

// Keyword is a whitelist or blacklist pattern of a rule
type Keyword struct {
	ID          int64
	RuleID      int64
	Pattern     string
	IsRegex     bool
	IsBlacklist bool
}

// ReplaceRule substitutes Pattern with Content; empty Content deletes the match
type ReplaceRule struct {
	ID      int64
	RuleID  int64
	Pattern string
	Content string
}

// MediaTypeSettings lists the media types blocked for a rule
type MediaTypeSettings struct {
	RuleID   int64
	Photo    bool
	Document bool
	Video    bool
	Audio    bool
	Voice    bool
}

// Blocks reports whether the given media kind is blocked
func (s *MediaTypeSettings) Blocks(kind MediaKind) bool {
	switch kind {
	case MediaPhoto:
		return s.Photo
	case MediaDocument:
		return s.Document
	case MediaVideo:
		return s.Video
	case MediaAudio:
		return s.Audio
	case MediaVoice:
		return s.Voice
	}
	return false
}

// Toggle flips the flag of one media kind and returns the new value
func (s *MediaTypeSettings) Toggle(kind MediaKind) (bool, error) {
	switch kind {
	case MediaPhoto:
		s.Photo = !s.Photo
		return s.Photo, nil
	case MediaDocument:
		s.Document = !s.Document
		return s.Document, nil
	case MediaVideo:
		s.Video = !s.Video
		return s.Video, nil
	case MediaAudio:
		s.Audio = !s.Audio
		return s.Audio, nil
	case MediaVoice:
		s.Voice = !s.Voice
		return s.Voice, nil
	}
	return false, fmt.Errorf("invalid media type: %s", kind)
}

// MediaExtension is an allowed file extension, stored without the leading dot
type MediaExtension struct {
	ID        int64
	RuleID    int64
	Extension string
}
