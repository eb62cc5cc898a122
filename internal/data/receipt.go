package data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
	"github.com/devricklin/chat-forwarder/internal/infra/amqp"
)

// receiptRepo publishes receipts to the broker, or nowhere when no broker is configured
type receiptRepo struct {
	publisher *amqp.Publisher
}

// NewReceiptRepo creates the receipt repository. publisher may be nil.
func NewReceiptRepo(publisher *amqp.Publisher) repo.ReceiptRepo {
	return &receiptRepo{publisher: publisher}
}

// Publish sends one receipt
func (r *receiptRepo) Publish(ctx context.Context, receipt *domain.Receipt) error {
	if r.publisher == nil {
		return nil
	}
	body, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}
	return r.publisher.Publish(ctx, receipt.RoutingKey(), body)
}
