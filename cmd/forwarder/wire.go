package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
	"github.com/devricklin/chat-forwarder/internal/biz/usecase"
	"github.com/devricklin/chat-forwarder/internal/conf"
	"github.com/devricklin/chat-forwarder/internal/data"
	"github.com/devricklin/chat-forwarder/internal/infra/amqp"
	"github.com/devricklin/chat-forwarder/internal/infra/ufb"
)

const connectWait = 10 * time.Second

func newUsecases(cfg *conf.Config, repos *data.Repositories, log *zap.Logger) *biz.Usecases {
	syncUC := usecase.NewSyncUsecase(repos.Rule, repos.Mirror, repos.Socket, log)

	var chain *usecase.FilterChain
	if repos.Transport != nil {
		assembler := usecase.NewMediaAssembler(repos.Transport, cfg.Media.TempDir, cfg.Media.DownloadConcurrency, log)
		chain = usecase.NewFilterChain(log,
			usecase.NewKeywordFilter(repos.Rule, log),
			usecase.NewReplaceFilter(repos.Rule, log),
			usecase.NewMediaFilter(repos.Rule, log),
			usecase.NewInfoFilter(time.Local),
			usecase.NewSenderFilter(repos.Transport, assembler, log),
		)
	}

	return &biz.Usecases{
		Chain: chain,
		Rules: usecase.NewRuleUsecase(repos.Rule, syncUC, log),
		Sync:  syncUC,
	}
}

// newSyncClient returns nil when keyword sync is disabled
func newSyncClient(cfg *conf.Config, log *zap.Logger) *ufb.Client {
	if !cfg.UFB.Enabled {
		return nil
	}
	return ufb.NewClient(cfg.UFB.ServerURL, cfg.UFB.Token, log, ufb.WithReconnectDelay(cfg.UFB.ReconnectDelay))
}

// newPublisher returns nil when no broker is configured
func newPublisher(ctx context.Context, cfg *conf.Config, log *zap.Logger) (*amqp.Publisher, error) {
	if cfg.AMQP.URL == "" {
		return nil, nil
	}
	conn, err := amqp.DialWithRetry(ctx, amqp.DialOptions{URL: cfg.AMQP.URL, RetryAttempts: 5, Delay: time.Second}, log)
	if err != nil {
		return nil, err
	}
	return amqp.NewPublisher(conn, cfg.AMQP.Exchange, log)
}

// management opens the stores for a one-shot command. When sync is enabled the
// socket is connected in the background so keyword changes reach the peer.
type management struct {
	repos *data.Repositories
	uc    *biz.Usecases
	stop  func()
}

func openManagement(ctx context.Context, a *app) (*management, error) {
	client := newSyncClient(a.cfg, a.log)
	repos, err := data.NewRepositories(a.cfg.Rules.DBPath, a.cfg.UFB.ConfigPath, nil, client, nil)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	if client != nil {
		go func() {
			defer close(done)
			_ = client.Start(ctx)
		}()
		waitConnected(ctx, repos.Socket, connectWait)
	} else {
		close(done)
	}

	return &management{
		repos: repos,
		uc:    newUsecases(a.cfg, repos, a.log),
		stop: func() {
			cancel()
			if client != nil {
				client.Stop()
			}
			<-done
			repos.Close()
		},
	}, nil
}

func waitConnected(ctx context.Context, socket repo.SyncSocketRepo, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for !socket.IsConnected() {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-tick.C:
		}
	}
	return true
}
