package domain

import "time"

// Receipt records the outcome of forwarding one message under one rule
type Receipt struct {
	RuleID       int64     `json:"rule_id"`
	SourceChatID int64     `json:"source_chat_id"`
	MessageID    int       `json:"message_id"`
	TargetChatID string    `json:"target_chat_id"`
	Forwarded    bool      `json:"forwarded"`
	Skipped      int       `json:"skipped_media"`
	Errors       []string  `json:"errors,omitempty"`
	At           time.Time `json:"at"`
}

// RoutingKey returns the topic key the receipt is published under
func (r *Receipt) RoutingKey() string {
	if r.Forwarded {
		return "forward.delivered"
	}
	return "forward.dropped"
}

// NewReceipt builds a receipt from a finished pipeline run
func NewReceipt(mc *MessageContext, forwarded bool, at time.Time) *Receipt {
	return &Receipt{
		RuleID:       mc.Rule.ID,
		SourceChatID: mc.Message.ChatID,
		MessageID:    mc.Message.MessageID,
		TargetChatID: mc.Rule.TargetChatID,
		Forwarded:    forwarded,
		Skipped:      len(mc.SkippedMedia),
		Errors:       mc.Errors,
		At:           at,
	}
}
