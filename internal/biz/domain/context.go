package domain

// SkippedMedia is an attachment left out because it exceeded the size limit
type SkippedMedia struct {
	FileID string
	Size   int64
}

// MessageContext is the per-message state threaded through the filter chain.
// It is owned by exactly one pipeline run and discarded after delivery.
type MessageContext struct {
	Rule    *ForwardRule
	Message *InboundMessage

	MessageText string

	// MediaFiles holds local paths staged for the current send attempt
	MediaFiles []string
	// MediaGroupMessages holds the attachments that survived media gating,
	// at most one for a message outside a group
	MediaGroupMessages []Attachment
	SkippedMedia       []SkippedMedia

	SenderInfo   string
	TimeInfo     string
	OriginalLink string
	Buttons      [][]Button

	Errors []string

	dropped bool
}

// NewMessageContext creates the context for one rule and one inbound message
func NewMessageContext(rule *ForwardRule, msg *InboundMessage) *MessageContext {
	return &MessageContext{
		Rule:        rule,
		Message:     msg,
		MessageText: msg.Text,
		Buttons:     msg.Buttons,
	}
}

// ShouldForward reports whether the message is still eligible for delivery
func (c *MessageContext) ShouldForward() bool {
	return !c.dropped
}

// Drop marks the message as not to be forwarded. There is no way back.
func (c *MessageContext) Drop() {
	c.dropped = true
}

// AddError records a failure for later reporting
func (c *MessageContext) AddError(msg string) {
	c.Errors = append(c.Errors, msg)
}

// IsMediaGroup reports whether the inbound message was part of a media group
func (c *MessageContext) IsMediaGroup() bool {
	return c.Message.IsMediaGroup()
}
