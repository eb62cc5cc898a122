package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

// Filter is one step of the forwarding pipeline.
// Returning false stops the chain and the message is not delivered.
type Filter interface {
	Name() string
	Process(ctx context.Context, mc *domain.MessageContext) (bool, error)
}

// FilterChain runs filters in order and stops at the first one that halts
type FilterChain struct {
	filters []Filter
	log     *zap.Logger
}

// NewFilterChain creates a chain from filters in execution order
func NewFilterChain(log *zap.Logger, filters ...Filter) *FilterChain {
	return &FilterChain{
		filters: filters,
		log:     log.Named("chain"),
	}
}

// Process runs the chain and reports whether the message was forwarded.
// A filter error or panic is recorded on the context and drops the message.
func (c *FilterChain) Process(ctx context.Context, mc *domain.MessageContext) bool {
	for _, f := range c.filters {
		ok, err := runFilter(ctx, f, mc)
		if err != nil {
			mc.AddError(fmt.Sprintf("%s: %v", f.Name(), err))
			mc.Drop()
			c.log.Error("filter failed",
				zap.String("filter", f.Name()),
				zap.Int64("rule_id", mc.Rule.ID),
				zap.Int("message_id", mc.Message.MessageID),
				zap.Error(err))
			return false
		}
		if !ok || !mc.ShouldForward() {
			mc.Drop()
			c.log.Debug("chain halted",
				zap.String("filter", f.Name()),
				zap.Int64("rule_id", mc.Rule.ID),
				zap.Int("message_id", mc.Message.MessageID))
			return false
		}
	}
	return true
}

func runFilter(ctx context.Context, f Filter, mc *domain.MessageContext) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	return f.Process(ctx, mc)
}
