package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
)

// RuleUsecase manages the keywords, replace rules and media settings of rules.
// Keyword mutations are pushed to the sync peer afterwards.
type RuleUsecase struct {
	rules repo.RuleRepo
	sync  *SyncUsecase
	log   *zap.Logger
}

// NewRuleUsecase creates a new rule usecase
func NewRuleUsecase(rules repo.RuleRepo, sync *SyncUsecase, log *zap.Logger) *RuleUsecase {
	return &RuleUsecase{
		rules: rules,
		sync:  sync,
		log:   log.Named("rules"),
	}
}

func (uc *RuleUsecase) afterKeywordChange(ctx context.Context, rule *domain.ForwardRule) {
	if uc.sync == nil {
		return
	}
	if err := uc.sync.PushRule(ctx, rule); err != nil {
		uc.log.Warn("keyword sync failed", zap.Int64("rule_id", rule.ID), zap.Error(err))
	}
}

// selectByIndex picks items by 1-based index, ignoring out of range and repeated indexes
func selectByIndex[T any](items []T, indexes []int) []T {
	seen := make(map[int]bool, len(indexes))
	var out []T
	for _, i := range indexes {
		if i < 1 || i > len(items) || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, items[i-1])
	}
	return out
}

// ========== Keywords ==========

// AddKeywords adds patterns to a rule and returns how many were added and how many already existed
func (uc *RuleUsecase) AddKeywords(ctx context.Context, ruleID int64, patterns []string, isRegex, isBlacklist bool) (added, duplicates int, err error) {
	rule, err := uc.rules.GetRule(ctx, ruleID)
	if err != nil {
		return 0, 0, err
	}

	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kw := &domain.Keyword{RuleID: ruleID, Pattern: p, IsRegex: isRegex, IsBlacklist: isBlacklist}
		if err := uc.rules.AddKeyword(ctx, kw); err != nil {
			// per-item failures count as duplicates so the rest of the batch goes through
			if !errors.Is(err, repo.ErrDuplicate) {
				uc.log.Error("failed to add keyword", zap.String("keyword", p), zap.Error(err))
			}
			duplicates++
			continue
		}
		added++
	}

	uc.afterKeywordChange(ctx, rule)
	return added, duplicates, nil
}

// ListKeywords lists the keywords of a rule in index order
func (uc *RuleUsecase) ListKeywords(ctx context.Context, ruleID int64) ([]domain.Keyword, error) {
	return uc.rules.ListKeywords(ctx, ruleID)
}

// DeleteKeywords deletes keywords by 1-based position in ListKeywords
func (uc *RuleUsecase) DeleteKeywords(ctx context.Context, ruleID int64, indexes []int) (int, error) {
	rule, err := uc.rules.GetRule(ctx, ruleID)
	if err != nil {
		return 0, err
	}
	keywords, err := uc.rules.ListKeywords(ctx, ruleID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, kw := range selectByIndex(keywords, indexes) {
		if err := uc.rules.DeleteKeyword(ctx, kw.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete keyword %q: %w", kw.Pattern, err)
		}
		deleted++
	}

	if deleted > 0 {
		uc.afterKeywordChange(ctx, rule)
	}
	return deleted, nil
}

// ========== Replace Rules ==========

// AddReplaceRule appends a replace rule
func (uc *RuleUsecase) AddReplaceRule(ctx context.Context, ruleID int64, pattern, content string) (*domain.ReplaceRule, error) {
	if pattern == "" {
		return nil, fmt.Errorf("replace pattern is empty")
	}
	if _, err := uc.rules.GetRule(ctx, ruleID); err != nil {
		return nil, err
	}
	rr := &domain.ReplaceRule{RuleID: ruleID, Pattern: pattern, Content: content}
	if err := uc.rules.AddReplaceRule(ctx, rr); err != nil {
		return nil, err
	}
	return rr, nil
}

// ListReplaceRules lists replace rules in application order
func (uc *RuleUsecase) ListReplaceRules(ctx context.Context, ruleID int64) ([]domain.ReplaceRule, error) {
	return uc.rules.ListReplaceRules(ctx, ruleID)
}

// DeleteReplaceRules deletes replace rules by 1-based position
func (uc *RuleUsecase) DeleteReplaceRules(ctx context.Context, ruleID int64, indexes []int) (int, error) {
	rules, err := uc.rules.ListReplaceRules(ctx, ruleID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, rr := range selectByIndex(rules, indexes) {
		if err := uc.rules.DeleteReplaceRule(ctx, rr.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete replace rule: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// ========== Media Settings ==========

// GetMediaTypes returns the blocked media types of a rule
func (uc *RuleUsecase) GetMediaTypes(ctx context.Context, ruleID int64) (*domain.MediaTypeSettings, error) {
	return uc.rules.GetMediaTypes(ctx, ruleID)
}

// ToggleMediaType flips one media type and returns whether it is now blocked
func (uc *RuleUsecase) ToggleMediaType(ctx context.Context, ruleID int64, kind domain.MediaKind) (bool, error) {
	settings, err := uc.rules.GetMediaTypes(ctx, ruleID)
	if err != nil {
		return false, err
	}
	blocked, err := settings.Toggle(kind)
	if err != nil {
		return false, err
	}
	if err := uc.rules.SaveMediaTypes(ctx, settings); err != nil {
		return false, err
	}
	return blocked, nil
}

// NormalizeExtension lower-cases an extension and strips its leading dot
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// AddMediaExtensions adds extensions and returns the added and duplicate counts
func (uc *RuleUsecase) AddMediaExtensions(ctx context.Context, ruleID int64, exts []string) (added, duplicates int, err error) {
	if _, err := uc.rules.GetRule(ctx, ruleID); err != nil {
		return 0, 0, err
	}
	for _, raw := range exts {
		ext := NormalizeExtension(raw)
		if ext == "" {
			continue
		}
		if err := uc.rules.AddMediaExtension(ctx, &domain.MediaExtension{RuleID: ruleID, Extension: ext}); err != nil {
			if !errors.Is(err, repo.ErrDuplicate) {
				uc.log.Error("failed to add extension", zap.String("ext", ext), zap.Error(err))
			}
			duplicates++
			continue
		}
		added++
	}
	return added, duplicates, nil
}

// ListMediaExtensions lists the allowed extensions of a rule
func (uc *RuleUsecase) ListMediaExtensions(ctx context.Context, ruleID int64) ([]domain.MediaExtension, error) {
	return uc.rules.ListMediaExtensions(ctx, ruleID)
}

// DeleteMediaExtensions deletes extensions by 1-based position
func (uc *RuleUsecase) DeleteMediaExtensions(ctx context.Context, ruleID int64, indexes []int) (int, error) {
	exts, err := uc.rules.ListMediaExtensions(ctx, ruleID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, e := range selectByIndex(exts, indexes) {
		if err := uc.rules.DeleteMediaExtension(ctx, ruleID, e.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete extension: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// ========== Rules ==========

// ListRules lists every rule ordered by ID
func (uc *RuleUsecase) ListRules(ctx context.Context) ([]*domain.ForwardRule, error) {
	return uc.rules.ListRules(ctx)
}

// RuleImport is a rule together with its dependent settings
type RuleImport struct {
	Rule       *domain.ForwardRule
	Keywords   []domain.Keyword
	Replace    []domain.ReplaceRule
	Blocked    []domain.MediaKind
	Extensions []string
}

// Import creates the rule, or overwrites the rule with the same name, and
// replaces all of its keywords, replace rules and media settings
func (uc *RuleUsecase) Import(ctx context.Context, in *RuleImport) error {
	existing, err := uc.rules.ListRules(ctx)
	if err != nil {
		return err
	}
	in.Rule.ID = 0
	for _, r := range existing {
		if r.Name == in.Rule.Name {
			in.Rule.ID = r.ID
			break
		}
	}
	if err := uc.rules.SaveRule(ctx, in.Rule); err != nil {
		return fmt.Errorf("failed to save rule %s: %w", in.Rule.Name, err)
	}
	ruleID := in.Rule.ID

	keywords := make([]domain.Keyword, len(in.Keywords))
	for i, k := range in.Keywords {
		k.RuleID = ruleID
		keywords[i] = k
	}
	if _, err := uc.rules.ReplaceKeywords(ctx, ruleID, keywords); err != nil {
		return err
	}

	oldReplace, err := uc.rules.ListReplaceRules(ctx, ruleID)
	if err != nil {
		return err
	}
	for _, rr := range oldReplace {
		if err := uc.rules.DeleteReplaceRule(ctx, rr.ID); err != nil {
			return err
		}
	}
	for _, rr := range in.Replace {
		rr.RuleID = ruleID
		if err := uc.rules.AddReplaceRule(ctx, &rr); err != nil {
			return err
		}
	}

	settings := &domain.MediaTypeSettings{RuleID: ruleID}
	for _, kind := range in.Blocked {
		if settings.Blocks(kind) {
			continue
		}
		if _, err := settings.Toggle(kind); err != nil {
			return err
		}
	}
	if err := uc.rules.SaveMediaTypes(ctx, settings); err != nil {
		return err
	}

	oldExts, err := uc.rules.ListMediaExtensions(ctx, ruleID)
	if err != nil {
		return err
	}
	for _, e := range oldExts {
		if err := uc.rules.DeleteMediaExtension(ctx, ruleID, e.ID); err != nil {
			return err
		}
	}
	if _, _, err := uc.AddMediaExtensions(ctx, ruleID, in.Extensions); err != nil {
		return err
	}

	uc.log.Info("rule imported", zap.Int64("rule_id", ruleID), zap.String("name", in.Rule.Name), zap.Int("keywords", len(keywords)))
	uc.afterKeywordChange(ctx, in.Rule)
	return nil
}
