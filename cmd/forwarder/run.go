package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/repo"
	"github.com/devricklin/chat-forwarder/internal/conf"
	"github.com/devricklin/chat-forwarder/internal/data"
	"github.com/devricklin/chat-forwarder/internal/infra/feishu"
	"github.com/devricklin/chat-forwarder/internal/infra/telegram"
	"github.com/devricklin/chat-forwarder/internal/server"
	"github.com/devricklin/chat-forwarder/internal/service"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start forwarding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, a.cfg, a.log)
		},
	}
}

func run(ctx context.Context, cfg *conf.Config, log *zap.Logger) error {
	tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APIURL, log)
	if err != nil {
		return err
	}

	var transport repo.TransportRepo
	switch cfg.Transport {
	case conf.TransportFeishu:
		transport = data.NewFeishuRepo(feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, log), tg)
	default:
		transport = data.NewTelegramRepo(tg)
	}

	publisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
		log.Info("delivery receipts enabled", zap.String("exchange", cfg.AMQP.Exchange))
	}

	syncClient := newSyncClient(cfg, log)
	repos, err := data.NewRepositories(cfg.Rules.DBPath, cfg.UFB.ConfigPath, transport, syncClient, publisher)
	if err != nil {
		return err
	}
	defer repos.Close()
	log.Info("rule store opened", zap.String("path", cfg.Rules.DBPath))

	uc := newUsecases(cfg, repos, log)

	if syncClient != nil {
		syncSvc := service.NewSyncService(syncClient, uc.Sync, log)
		syncSvc.Start(ctx)
		defer syncSvc.Stop()
	}

	sweeper := service.NewTempSweeper(cfg.Media.TempDir, time.Hour, 30*time.Minute, log)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	forwardSvc := service.NewForwardService(repos.Rule, uc.Chain, repos.Receipt, log)
	srv := server.NewTelegramServer(tg, forwardSvc, cfg.Media.GroupWindow, log)

	log.Info("forwarder started", zap.String("transport", cfg.Transport), zap.Bool("sync", syncClient != nil))
	err = srv.Run(ctx)
	log.Info("shutting down")
	return err
}
