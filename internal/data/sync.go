package data

import (
	"context"

	"github.com/devricklin/chat-forwarder/internal/biz/repo"
	"github.com/devricklin/chat-forwarder/internal/infra/ufb"
)

// syncSocketRepo adapts the sync client. A nil client is never connected.
type syncSocketRepo struct {
	client *ufb.Client
}

// NewSyncSocketRepo creates the socket repository
func NewSyncSocketRepo(client *ufb.Client) repo.SyncSocketRepo {
	return &syncSocketRepo{client: client}
}

// IsConnected reports whether a push can be attempted
func (r *syncSocketRepo) IsConnected() bool {
	return r.client != nil && r.client.IsConnected()
}

// PushUpdate sends the document
func (r *syncSocketRepo) PushUpdate(ctx context.Context, doc []byte) error {
	if r.client == nil {
		return ufb.ErrNotConnected
	}
	return r.client.PushUpdate(ctx, doc)
}
