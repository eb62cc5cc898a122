package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/usecase"
	"github.com/devricklin/chat-forwarder/internal/infra/ufb"
)

// SyncService runs the sync socket and feeds remote pushes into the sync usecase
type SyncService struct {
	client *ufb.Client
	syncUC *usecase.SyncUsecase
	log    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncService creates a new sync service
func NewSyncService(client *ufb.Client, syncUC *usecase.SyncUsecase, log *zap.Logger) *SyncService {
	return &SyncService{
		client: client,
		syncUC: syncUC,
		log:    log.Named("sync"),
	}
}

// HandlePush applies one pushed document
func (s *SyncService) HandlePush(ctx context.Context, payload []byte) {
	n, err := s.syncUC.ApplyRemote(ctx, payload)
	if err != nil {
		s.log.Error("failed to apply remote document", zap.Error(err))
		return
	}
	s.log.Info("remote document applied", zap.Int("rules_updated", n))
}

// HandleConnect pushes every sync rule so edits made while offline reach the peer
func (s *SyncService) HandleConnect(ctx context.Context) {
	if err := s.syncUC.PushAll(ctx); err != nil {
		s.log.Error("failed to push rules on connect", zap.Error(err))
		return
	}
	s.log.Info("rules pushed on connect")
}

// Start connects in the background
func (s *SyncService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.client.OnPush(s.HandlePush)
	s.client.OnConnect(s.HandleConnect)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.client.Start(ctx); err != nil {
			s.log.Error("sync client stopped", zap.Error(err))
		}
	}()
	s.log.Info("started")
}

// Stop closes the socket and waits for the client loop
func (s *SyncService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.client.Stop()
	s.wg.Wait()
	s.log.Info("stopped")
}
