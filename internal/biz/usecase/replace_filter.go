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

// ReplaceFilter applies the rule's replace rules to the message text in order
type ReplaceFilter struct {
	rules repo.RuleRepo
	log   *zap.Logger
}

// NewReplaceFilter creates the replace filter
func NewReplaceFilter(rules repo.RuleRepo, log *zap.Logger) *ReplaceFilter {
	return &ReplaceFilter{rules: rules, log: log.Named("replace")}
}

func (f *ReplaceFilter) Name() string { return "replace" }

// Process rewrites mc.MessageText. It never halts the chain.
func (f *ReplaceFilter) Process(ctx context.Context, mc *domain.MessageContext) (bool, error) {
	if mc.MessageText == "" {
		return true, nil
	}

	rules, err := f.rules.ListReplaceRules(ctx, mc.Rule.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load replace rules: %w", err)
	}

	text := mc.MessageText
	for _, rr := range rules {
		text = f.apply(rr, text)
	}
	mc.MessageText = text
	return true, nil
}

// apply treats the pattern as a regular expression and falls back to a
// literal replacement when it does not compile
func (f *ReplaceFilter) apply(rr domain.ReplaceRule, text string) string {
	re, err := regexp.Compile(rr.Pattern)
	if err != nil {
		f.log.Debug("replacing literally", zap.Int64("replace_id", rr.ID), zap.Error(err))
		return strings.ReplaceAll(text, rr.Pattern, rr.Content)
	}
	return re.ReplaceAllString(text, rr.Content)
}
