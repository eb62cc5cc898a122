package repo

import (
	"context"
	"time"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

// MirrorRepo is the local JSON mirror of the remote configuration document
type MirrorRepo interface {
	// UpdateSlot replaces one keyword slot of a domain and bumps lastSyncTime.
	// Returns the persisted document, ErrDomainNotFound when the domain is absent.
	UpdateSlot(ctx context.Context, domainName string, item domain.SyncItem, set domain.KeywordSet, now time.Time) ([]byte, error)

	// Merge folds a remote document into the mirror.
	// applied is false when the incoming document is older than the mirror.
	Merge(ctx context.Context, payload []byte) (doc *domain.SyncDocument, applied bool, err error)
}

// SyncSocketRepo is the persistent connection to the sync peer
type SyncSocketRepo interface {
	// IsConnected reports whether a push can be attempted right now
	IsConnected() bool

	// PushUpdate sends the full document as an update frame
	PushUpdate(ctx context.Context, doc []byte) error
}
