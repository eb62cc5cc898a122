package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
)

type deliveryShape int

const (
	shapeText deliveryShape = iota
	shapeSingle
	shapeGroup
)

func shapeOf(mc *domain.MessageContext) deliveryShape {
	hasMedia := len(mc.MediaGroupMessages) > 0 || len(mc.SkippedMedia) > 0
	switch {
	case hasMedia && mc.IsMediaGroup():
		return shapeGroup
	case hasMedia:
		return shapeSingle
	}
	return shapeText
}

// SenderFilter delivers the processed message through the transport.
// It is the last filter of the chain.
type SenderFilter struct {
	transport repo.TransportRepo
	assembler *MediaAssembler
	log       *zap.Logger
}

// NewSenderFilter creates the delivery filter
func NewSenderFilter(transport repo.TransportRepo, assembler *MediaAssembler, log *zap.Logger) *SenderFilter {
	return &SenderFilter{
		transport: transport,
		assembler: assembler,
		log:       log.Named("sender"),
	}
}

func (f *SenderFilter) Name() string { return "sender" }

// Process sends the message. Transport failures are recorded on the context
// and reported as not forwarded.
func (f *SenderFilter) Process(ctx context.Context, mc *domain.MessageContext) (bool, error) {
	if !mc.ShouldForward() {
		return false, nil
	}

	var err error
	switch shapeOf(mc) {
	case shapeGroup:
		err = f.sendGroup(ctx, mc)
	case shapeSingle:
		err = f.sendSingle(ctx, mc)
	default:
		err = f.sendText(ctx, mc)
	}
	if err != nil {
		mc.AddError(fmt.Sprintf("send message: %v", err))
		f.log.Error("send failed", zap.Int64("rule_id", mc.Rule.ID), zap.String("target", mc.Rule.TargetChatID), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (f *SenderFilter) options(mc *domain.MessageContext, preview bool) repo.SendOptions {
	return repo.SendOptions{Mode: mc.Rule.MessageMode, Preview: preview, Buttons: mc.Buttons}
}

func (f *SenderFilter) preview(mc *domain.MessageContext) bool {
	return domain.ResolvePreview(mc.Rule.PreviewMode, mc.Message.HasMedia())
}

func (f *SenderFilter) sendGroup(ctx context.Context, mc *domain.MessageContext) error {
	target := mc.Rule.TargetChatID

	if len(mc.MediaGroupMessages) == 0 {
		if mc.MessageText == "" {
			f.log.Info("group media all over limit and no text, nothing to send", zap.Int64("rule_id", mc.Rule.ID))
			return nil
		}
		return f.transport.SendText(ctx, target, skippedGroupText(mc), f.options(mc, true))
	}

	paths, release, err := f.assembler.Stage(ctx, mc.MediaGroupMessages)
	defer release()
	if err != nil {
		return fmt.Errorf("stage media: %w", err)
	}
	mc.MediaFiles = paths

	caption := ComposeCaption(mc)
	if len(paths) == 1 {
		return f.transport.SendSingleMedia(ctx, target, paths[0], caption, f.options(mc, f.preview(mc)))
	}
	return f.transport.SendMediaGroup(ctx, target, paths, caption, f.options(mc, f.preview(mc)))
}

func (f *SenderFilter) sendSingle(ctx context.Context, mc *domain.MessageContext) error {
	target := mc.Rule.TargetChatID

	if len(mc.MediaGroupMessages) == 0 {
		return f.transport.SendText(ctx, target, skippedSingleText(mc), f.options(mc, true))
	}

	paths, release, err := f.assembler.Stage(ctx, mc.MediaGroupMessages[:1])
	defer release()
	if err != nil {
		return fmt.Errorf("stage media: %w", err)
	}
	mc.MediaFiles = paths

	return f.transport.SendSingleMedia(ctx, target, paths[0], ComposeCaption(mc), f.options(mc, f.preview(mc)))
}

func (f *SenderFilter) sendText(ctx context.Context, mc *domain.MessageContext) error {
	if mc.MessageText == "" {
		f.log.Debug("no text to send", zap.Int64("rule_id", mc.Rule.ID))
		return nil
	}
	return f.transport.SendText(ctx, mc.Rule.TargetChatID, ComposeCaption(mc), f.options(mc, f.preview(mc)))
}
