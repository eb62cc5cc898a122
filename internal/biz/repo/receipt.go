package repo

import (
	"context"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

// ReceiptRepo publishes forwarding outcomes
type ReceiptRepo interface {
	Publish(ctx context.Context, receipt *domain.Receipt) error
}
