package data

import (
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
	"github.com/devricklin/chat-forwarder/internal/infra/amqp"
	"github.com/devricklin/chat-forwarder/internal/infra/ufb"
)

// Repositories contains all repositories
type Repositories struct {
	Rule      repo.RuleRepo
	Transport repo.TransportRepo
	Mirror    repo.MirrorRepo
	Socket    repo.SyncSocketRepo
	Receipt   repo.ReceiptRepo
}

// NewRepositories creates all repositories.
// syncClient and publisher are optional and may be nil.
func NewRepositories(
	rulesDBPath string,
	mirrorPath string,
	transport repo.TransportRepo,
	syncClient *ufb.Client,
	publisher *amqp.Publisher,
) (*Repositories, error) {
	ruleRepo, err := NewRuleRepo(rulesDBPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Rule:      ruleRepo,
		Transport: transport,
		Mirror:    NewMirrorRepo(mirrorPath),
		Socket:    NewSyncSocketRepo(syncClient),
		Receipt:   NewReceiptRepo(publisher),
	}, nil
}

// Close releases the stores
func (r *Repositories) Close() error {
	return r.Rule.Close()
}
