package usecase

import (
	"context"
	"time"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// InfoFilter fills the sender, time and link framing around the caption
type InfoFilter struct {
	loc *time.Location
}

// NewInfoFilter creates the info filter. Times are rendered in loc, UTC when nil.
func NewInfoFilter(loc *time.Location) *InfoFilter {
	if loc == nil {
		loc = time.UTC
	}
	return &InfoFilter{loc: loc}
}

func (f *InfoFilter) Name() string { return "info" }

// Process sets SenderInfo, TimeInfo and OriginalLink from the rule toggles
func (f *InfoFilter) Process(ctx context.Context, mc *domain.MessageContext) (bool, error) {
	msg := mc.Message

	if mc.Rule.OriginalSender {
		name := msg.SenderName
		if name == "" && msg.SenderUsername != "" {
			name = "@" + msg.SenderUsername
		}
		if name != "" {
			mc.SenderInfo = name + ":\n"
		}
	}

	if mc.Rule.OriginalTime && !msg.Date.IsZero() {
		mc.TimeInfo = "\n\n" + msg.Date.In(f.loc).Format(timeLayout)
	}

	if mc.Rule.OriginalLink {
		mc.OriginalLink = "\n\nSource: " + msg.Link()
	}
	return true, nil
}
