package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
)

// MediaFilter gates attachments by type, extension and size.
// Survivors land in MediaGroupMessages, oversized ones in SkippedMedia.
type MediaFilter struct {
	rules repo.RuleRepo
	log   *zap.Logger
}

// NewMediaFilter creates the media filter
func NewMediaFilter(rules repo.RuleRepo, log *zap.Logger) *MediaFilter {
	return &MediaFilter{rules: rules, log: log.Named("media")}
}

func (f *MediaFilter) Name() string { return "media" }

// Process classifies attachments before anything is downloaded
func (f *MediaFilter) Process(ctx context.Context, mc *domain.MessageContext) (bool, error) {
	if !mc.Message.HasMedia() {
		return true, nil
	}
	rule := mc.Rule

	var blocked *domain.MediaTypeSettings
	if rule.MediaTypeFilterOn {
		s, err := f.rules.GetMediaTypes(ctx, rule.ID)
		if err != nil {
			return false, fmt.Errorf("failed to load media types: %w", err)
		}
		blocked = s
	}

	var allowed map[string]bool
	if rule.MediaExtensionFilterOn {
		exts, err := f.rules.ListMediaExtensions(ctx, rule.ID)
		if err != nil {
			return false, fmt.Errorf("failed to load media extensions: %w", err)
		}
		if len(exts) > 0 {
			allowed = make(map[string]bool, len(exts))
			for _, e := range exts {
				allowed[strings.ToLower(e.Extension)] = true
			}
		}
	}

	var candidates []domain.Attachment
	for _, att := range mc.Message.Attachments {
		if blocked != nil && blocked.Blocks(att.Kind) {
			f.log.Debug("media type blocked", zap.Int64("rule_id", rule.ID), zap.String("kind", string(att.Kind)))
			continue
		}
		// attachments without a file name (photos, voice notes) carry no extension to check
		if ext := att.Extension(); allowed != nil && ext != "" && !allowed[ext] {
			f.log.Debug("extension not allowed", zap.Int64("rule_id", rule.ID), zap.String("ext", ext))
			continue
		}
		candidates = append(candidates, att)
	}

	keep, skipped := Classify(candidates, rule.MaxMediaBytes())
	for _, s := range skipped {
		f.log.Info("media over size limit",
			zap.Int64("rule_id", rule.ID),
			zap.String("size", humanize.IBytes(uint64(s.Size))),
			zap.String("limit", humanize.IBytes(uint64(rule.MaxMediaBytes()))))
	}
	mc.MediaGroupMessages = keep
	mc.SkippedMedia = skipped

	// every attachment was filtered out by type or extension: forward the text alone, if any
	if len(keep) == 0 && len(skipped) == 0 && strings.TrimSpace(mc.MessageText) == "" {
		return false, nil
	}
	return true, nil
}
