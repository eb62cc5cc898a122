package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
)

// SyncUsecase keeps rule keywords and the remote configuration document consistent.
// Concurrent edits of the same slot on both sides resolve by document timestamp,
// the older side is lost.
type SyncUsecase struct {
	rules  repo.RuleRepo
	mirror repo.MirrorRepo
	socket repo.SyncSocketRepo
	log    *zap.Logger
	now    func() time.Time
}

// NewSyncUsecase creates a new sync usecase
func NewSyncUsecase(rules repo.RuleRepo, mirror repo.MirrorRepo, socket repo.SyncSocketRepo, log *zap.Logger) *SyncUsecase {
	return &SyncUsecase{
		rules:  rules,
		mirror: mirror,
		socket: socket,
		log:    log.Named("sync"),
		now:    time.Now,
	}
}

// PushRule writes the rule's keywords into its slot of the mirror and sends the
// document when the socket is up. Misconfigured rules are logged and skipped.
func (uc *SyncUsecase) PushRule(ctx context.Context, rule *domain.ForwardRule) error {
	if !rule.CanSync() {
		return nil
	}

	keywords, err := uc.rules.ListKeywords(ctx, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to load keywords: %w", err)
	}

	doc, err := uc.mirror.UpdateSlot(ctx, rule.SyncDomain, rule.SyncItem, domain.KeywordsFor(keywords), uc.now())
	switch {
	case errors.Is(err, repo.ErrItemUnset):
		uc.log.Warn("sync item not set, skipping push", zap.Int64("rule_id", rule.ID))
		return nil
	case errors.Is(err, repo.ErrDomainNotFound):
		uc.log.Error("sync domain not found in mirror", zap.Int64("rule_id", rule.ID), zap.String("domain", rule.SyncDomain))
		return nil
	case err != nil:
		return fmt.Errorf("failed to update mirror: %w", err)
	}

	if !uc.socket.IsConnected() {
		uc.log.Info("sync peer offline, mirror updated locally", zap.Int64("rule_id", rule.ID))
		return nil
	}
	if err := uc.socket.PushUpdate(ctx, doc); err != nil {
		uc.log.Warn("push failed", zap.Int64("rule_id", rule.ID), zap.Error(err))
		return nil
	}
	uc.log.Info("keywords pushed",
		zap.Int64("rule_id", rule.ID),
		zap.String("domain", rule.SyncDomain),
		zap.String("item", string(rule.SyncItem)),
		zap.Int("keywords", len(keywords)))
	return nil
}

// PushAll pushes every sync-enabled rule
func (uc *SyncUsecase) PushAll(ctx context.Context) error {
	rules, err := uc.rules.ListSyncRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sync rules: %w", err)
	}
	for _, rule := range rules {
		if err := uc.PushRule(ctx, rule); err != nil {
			return err
		}
	}
	return nil
}

// ApplyRemote merges a pushed document into the mirror and rewrites the keywords
// of every sync-enabled rule whose domain it carries. Returns the number of rules updated.
func (uc *SyncUsecase) ApplyRemote(ctx context.Context, payload []byte) (int, error) {
	doc, applied, err := uc.mirror.Merge(ctx, payload)
	if err != nil {
		return 0, fmt.Errorf("failed to merge remote document: %w", err)
	}
	if !applied {
		uc.log.Info("ignoring stale remote document", zap.Int64("last_sync_time", doc.LastSyncTime))
		return 0, nil
	}

	rules, err := uc.rules.ListSyncRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sync rules: %w", err)
	}

	updated := 0
	for _, rule := range rules {
		if _, ok := rule.SyncItem.SlotKey(); !ok {
			uc.log.Warn("sync item not set, skipping rule", zap.Int64("rule_id", rule.ID))
			continue
		}
		dc, ok := doc.Find(rule.SyncDomain)
		if !ok {
			uc.log.Warn("sync domain not in remote document", zap.Int64("rule_id", rule.ID), zap.String("domain", rule.SyncDomain))
			continue
		}

		// an absent slot is an empty slot
		set := dc.Slots[rule.SyncItem]
		keywords := make([]domain.Keyword, 0, len(set.Keywords)+len(set.RegexPatterns))
		for _, k := range set.Keywords {
			keywords = append(keywords, domain.Keyword{RuleID: rule.ID, Pattern: k, IsBlacklist: true})
		}
		for _, p := range set.RegexPatterns {
			keywords = append(keywords, domain.Keyword{RuleID: rule.ID, Pattern: p, IsRegex: true, IsBlacklist: true})
		}

		n, err := uc.rules.ReplaceKeywords(ctx, rule.ID, keywords)
		if err != nil {
			uc.log.Error("failed to store remote keywords", zap.Int64("rule_id", rule.ID), zap.Error(err))
			continue
		}
		uc.log.Info("keywords synced from remote", zap.Int64("rule_id", rule.ID), zap.Int("keywords", n))
		updated++
	}
	return updated, nil
}
