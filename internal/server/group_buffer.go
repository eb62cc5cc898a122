package server

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

// groupBuffer merges the updates of one media group into a single message.
// A group is flushed once no new part arrived for window.
type groupBuffer struct {
	window time.Duration
	flush  func(*domain.InboundMessage)

	mu      sync.Mutex
	pending map[string]*pendingGroup

	// one count per group from Add until its flush returns
	inflight sync.WaitGroup
}

type pendingGroup struct {
	msg   *domain.InboundMessage
	timer *time.Timer
}

func newGroupBuffer(window time.Duration, flush func(*domain.InboundMessage)) *groupBuffer {
	return &groupBuffer{
		window:  window,
		flush:   flush,
		pending: make(map[string]*pendingGroup),
	}
}

func groupKey(msg *domain.InboundMessage) string {
	return strconv.FormatInt(msg.ChatID, 10) + ":" + msg.MediaGroupID
}

// Add buffers one part of a media group
func (b *groupBuffer) Add(part *domain.InboundMessage) {
	key := groupKey(part)

	b.mu.Lock()
	defer b.mu.Unlock()

	if g, ok := b.pending[key]; ok {
		mergeInto(g.msg, part)
		g.timer.Reset(b.window)
		return
	}

	merged := *part
	merged.Attachments = append([]domain.Attachment(nil), part.Attachments...)
	b.inflight.Add(1)
	b.pending[key] = &pendingGroup{
		msg:   &merged,
		timer: time.AfterFunc(b.window, func() { b.fire(key) }),
	}
}

func mergeInto(dst, part *domain.InboundMessage) {
	dst.Attachments = append(dst.Attachments, part.Attachments...)
	// the caption sits on one part only, usually the first
	if dst.Text == "" {
		dst.Text = part.Text
	}
	if len(dst.Buttons) == 0 {
		dst.Buttons = part.Buttons
	}
	if part.MessageID < dst.MessageID {
		dst.MessageID = part.MessageID
		dst.Date = part.Date
	}
}

func (b *groupBuffer) fire(key string) {
	b.mu.Lock()
	g, ok := b.pending[key]
	delete(b.pending, key)
	b.mu.Unlock()

	// a timer reset after it expired may fire for a group already flushed
	if !ok {
		return
	}
	defer b.inflight.Done()
	b.emit(g)
}

func (b *groupBuffer) emit(g *pendingGroup) {
	sort.SliceStable(g.msg.Attachments, func(i, j int) bool {
		return g.msg.Attachments[i].MessageID < g.msg.Attachments[j].MessageID
	})
	b.flush(g.msg)
}

// FlushAll emits every pending group immediately and waits for flushes
// already started by expired timers. Add must not run concurrently.
func (b *groupBuffer) FlushAll() {
	b.mu.Lock()
	groups := make([]*pendingGroup, 0, len(b.pending))
	for k, g := range b.pending {
		g.timer.Stop()
		groups = append(groups, g)
		delete(b.pending, k)
	}
	b.mu.Unlock()

	for _, g := range groups {
		b.emit(g)
		b.inflight.Done()
	}
	b.inflight.Wait()
}

// Len returns the number of groups waiting to be flushed
func (b *groupBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
