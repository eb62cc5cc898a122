package domain

// ResolvePreview decides whether a link preview is attached to the forwarded message.
// FOLLOW mirrors the source message: preview only when it carried media.
func ResolvePreview(mode PreviewMode, sourceHasMedia bool) bool {
	switch mode {
	case PreviewOn:
		return true
	case PreviewOff:
		return false
	case PreviewFollow:
		return sourceHasMedia
	default:
		return sourceHasMedia
	}
}
