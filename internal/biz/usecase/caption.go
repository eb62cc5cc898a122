package usecase

import (
	"fmt"
	"strings"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

const mb = 1024 * 1024

// ComposeCaption frames the message text with sender, time and link
func ComposeCaption(mc *domain.MessageContext) string {
	return mc.SenderInfo + mc.MessageText + mc.TimeInfo + mc.OriginalLink
}

// skippedGroupText lists every oversized file of a group whose media was all skipped
func skippedGroupText(mc *domain.MessageContext) string {
	lines := make([]string, 0, len(mc.SkippedMedia))
	for _, s := range mc.SkippedMedia {
		lines = append(lines, fmt.Sprintf("- %.1fMB", float64(s.Size)/mb))
	}
	text := fmt.Sprintf("%s\n\n⚠️ %d media files exceed the size limit:\n%s",
		mc.MessageText, len(mc.SkippedMedia), strings.Join(lines, "\n"))
	return mc.SenderInfo + text + mc.TimeInfo + mc.OriginalLink
}

// skippedSingleText notifies that the only attachment was over the limit.
// The link follows the time framing and only appears when the rule asks for it.
func skippedSingleText(mc *domain.MessageContext) string {
	text := mc.MessageText + fmt.Sprintf("\n\n⚠️ Media file (%.1fMB) exceeds the size limit", float64(mc.SkippedMedia[0].Size)/mb)
	text = mc.SenderInfo + text + mc.TimeInfo
	if mc.Rule.OriginalLink {
		text += mc.OriginalLink
	}
	return text
}
