package repo

import (
	"context"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

// SendOptions carries the per-message presentation settings
type SendOptions struct {
	Mode    domain.MessageMode
	Preview bool
	Buttons [][]domain.Button
}

// TransportRepo is the chat transport used for delivery.
// It receives already-authenticated clients and never creates sessions itself.
type TransportRepo interface {
	// SendText sends a text message
	SendText(ctx context.Context, chatID, text string, opts SendOptions) error

	// SendSingleMedia sends one staged file with a caption
	SendSingleMedia(ctx context.Context, chatID, path, caption string, opts SendOptions) error

	// SendMediaGroup sends several staged files as one grouped message with one caption
	SendMediaGroup(ctx context.Context, chatID string, paths []string, caption string, opts SendOptions) error

	// DownloadAttachment downloads an attachment into destDir and returns the local path
	DownloadAttachment(ctx context.Context, att domain.Attachment, destDir string) (string, error)
}
