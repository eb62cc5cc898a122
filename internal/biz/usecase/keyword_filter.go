package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
)

// KeywordFilter drops messages matching a blacklist keyword,
// or missing every whitelist keyword when the rule has any.
type KeywordFilter struct {
	rules repo.RuleRepo
	log   *zap.Logger
}

// NewKeywordFilter creates the keyword filter
func NewKeywordFilter(rules repo.RuleRepo, log *zap.Logger) *KeywordFilter {
	return &KeywordFilter{rules: rules, log: log.Named("keyword")}
}

func (f *KeywordFilter) Name() string { return "keyword" }

// Process checks the message text and the sender against the rule keywords
func (f *KeywordFilter) Process(ctx context.Context, mc *domain.MessageContext) (bool, error) {
	keywords, err := f.rules.ListKeywords(ctx, mc.Rule.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load keywords: %w", err)
	}
	if len(keywords) == 0 {
		return true, nil
	}

	subjects := []string{mc.MessageText}
	if mc.Message.SenderUsername != "" {
		subjects = append(subjects, "@"+mc.Message.SenderUsername)
	}
	if mc.Message.SenderName != "" {
		subjects = append(subjects, mc.Message.SenderName)
	}

	hasWhitelist, whitelisted := false, false
	for _, kw := range keywords {
		matched := f.matchAny(kw, subjects)
		if kw.IsBlacklist {
			if matched {
				f.log.Debug("blacklist hit", zap.Int64("rule_id", mc.Rule.ID), zap.String("keyword", kw.Pattern))
				return false, nil
			}
			continue
		}
		hasWhitelist = true
		whitelisted = whitelisted || matched
	}

	if hasWhitelist && !whitelisted {
		f.log.Debug("no whitelist match", zap.Int64("rule_id", mc.Rule.ID))
		return false, nil
	}
	return true, nil
}

func (f *KeywordFilter) matchAny(kw domain.Keyword, subjects []string) bool {
	if !kw.IsRegex {
		needle := strings.ToLower(kw.Pattern)
		for _, s := range subjects {
			if strings.Contains(strings.ToLower(s), needle) {
				return true
			}
		}
		return false
	}

	re, err := regexp.Compile(kw.Pattern)
	if err != nil {
		f.log.Warn("invalid keyword regex", zap.Int64("keyword_id", kw.ID), zap.String("pattern", kw.Pattern), zap.Error(err))
		return false
	}
	for _, s := range subjects {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
