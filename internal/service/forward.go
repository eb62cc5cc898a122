package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
	"github.com/devricklin/chat-forwarder/internal/biz/usecase"
)

// ForwardService runs every enabled rule of the source chat over an inbound message
type ForwardService struct {
	rules    repo.RuleRepo
	chain    *usecase.FilterChain
	receipts repo.ReceiptRepo
	log      *zap.Logger
	now      func() time.Time
}

// NewForwardService creates a new forward service
func NewForwardService(rules repo.RuleRepo, chain *usecase.FilterChain, receipts repo.ReceiptRepo, log *zap.Logger) *ForwardService {
	return &ForwardService{
		rules:    rules,
		chain:    chain,
		receipts: receipts,
		log:      log.Named("forward"),
		now:      time.Now,
	}
}

// HandleMessage forwards msg under each matching rule and returns how many rules delivered it.
// Rules are independent: a failure under one rule never affects another.
func (s *ForwardService) HandleMessage(ctx context.Context, msg *domain.InboundMessage) int {
	rules, err := s.rules.ListRulesBySource(ctx, msg.ChatID)
	if err != nil {
		s.log.Error("failed to load rules", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		return 0
	}
	if len(rules) == 0 {
		return 0
	}

	forwarded := 0
	for _, rule := range rules {
		mc := domain.NewMessageContext(rule, msg)
		ok := s.chain.Process(ctx, mc)
		if ok {
			forwarded++
		}

		s.log.Info("message processed",
			zap.Int64("rule_id", rule.ID),
			zap.Int64("chat_id", msg.ChatID),
			zap.Int("message_id", msg.MessageID),
			zap.Bool("forwarded", ok),
			zap.Int("attachments", len(msg.Attachments)),
			zap.Int("skipped", len(mc.SkippedMedia)),
			zap.Strings("errors", mc.Errors))

		if s.receipts == nil {
			continue
		}
		if err := s.receipts.Publish(ctx, domain.NewReceipt(mc, ok, s.now())); err != nil {
			s.log.Warn("failed to publish receipt", zap.Int64("rule_id", rule.ID), zap.Error(err))
		}
	}
	return forwarded
}
