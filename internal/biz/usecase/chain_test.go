package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

type stubFilter struct {
	name  string
	ok    bool
	err   error
	panic bool
	calls int
}

func (f *stubFilter) Name() string { return f.name }

func (f *stubFilter) Process(ctx context.Context, mc *domain.MessageContext) (bool, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	return f.ok, f.err
}

func newContext() *domain.MessageContext {
	return domain.NewMessageContext(&domain.ForwardRule{ID: 1}, &domain.InboundMessage{MessageID: 1, Text: "x"})
}

func TestFilterChain_Process_AllPass(t *testing.T) {
	a, b := &stubFilter{name: "a", ok: true}, &stubFilter{name: "b", ok: true}
	chain := NewFilterChain(zap.NewNop(), a, b)

	mc := newContext()
	assert.True(t, chain.Process(context.Background(), mc))
	assert.True(t, mc.ShouldForward())
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestFilterChain_Process_HaltStopsLaterFilters(t *testing.T) {
	a, b := &stubFilter{name: "a", ok: false}, &stubFilter{name: "b", ok: true}
	chain := NewFilterChain(zap.NewNop(), a, b)

	mc := newContext()
	assert.False(t, chain.Process(context.Background(), mc))
	assert.False(t, mc.ShouldForward())
	assert.Equal(t, 0, b.calls)
	assert.Empty(t, mc.Errors)
}

func TestFilterChain_Process_ErrorRecorded(t *testing.T) {
	a := &stubFilter{name: "keyword", err: errors.New("db locked")}
	b := &stubFilter{name: "b", ok: true}
	chain := NewFilterChain(zap.NewNop(), a, b)

	mc := newContext()
	assert.False(t, chain.Process(context.Background(), mc))
	require.Len(t, mc.Errors, 1)
	assert.Equal(t, "keyword: db locked", mc.Errors[0])
	assert.Equal(t, 0, b.calls)
}

func TestFilterChain_Process_PanicRecorded(t *testing.T) {
	a := &stubFilter{name: "media", panic: true}
	chain := NewFilterChain(zap.NewNop(), a)

	mc := newContext()
	assert.False(t, chain.Process(context.Background(), mc))
	require.Len(t, mc.Errors, 1)
	assert.Contains(t, mc.Errors[0], "media: panic: boom")
}

func TestFilterChain_Process_DroppedContextHalts(t *testing.T) {
	dropper := &dropFilter{}
	b := &stubFilter{name: "b", ok: true}
	chain := NewFilterChain(zap.NewNop(), dropper, b)

	mc := newContext()
	assert.False(t, chain.Process(context.Background(), mc))
	assert.Equal(t, 0, b.calls)
}

// dropFilter drops the message but reports success
type dropFilter struct{}

func (dropFilter) Name() string { return "drop" }

func (dropFilter) Process(ctx context.Context, mc *domain.MessageContext) (bool, error) {
	mc.Drop()
	return true, nil
}

func TestFilterChain_BlacklistedMessageNeverReachesTransport(t *testing.T) {
	store := newTestStore(t)
	rule := saveRule(t, store, &domain.ForwardRule{})
	require.NoError(t, store.AddKeyword(context.Background(), &domain.Keyword{RuleID: rule.ID, Pattern: "spam", IsBlacklist: true}))
	transport := &fakeTransport{}
	chain := newTestChain(store, transport, t.TempDir())

	mc := domain.NewMessageContext(rule, groupMessage("buy SPAM now", attachment("a", 1)))
	assert.False(t, chain.Process(context.Background(), mc))
	assert.Empty(t, transport.calls)
	assert.Empty(t, transport.staged)
}
