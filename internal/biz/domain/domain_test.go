package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePreview(t *testing.T) {
	tests := []struct {
		mode     PreviewMode
		hasMedia bool
		want     bool
	}{
		{PreviewOn, false, true},
		{PreviewOn, true, true},
		{PreviewOff, true, false},
		{PreviewOff, false, false},
		{PreviewFollow, true, true},
		{PreviewFollow, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolvePreview(tt.mode, tt.hasMedia), "%s media=%v", tt.mode, tt.hasMedia)
	}
}

func TestInboundMessage_Link(t *testing.T) {
	public := &InboundMessage{ChatID: -1001234567890, ChatUsername: "channel", MessageID: 5}
	assert.Equal(t, "https://t.me/channel/5", public.Link())

	private := &InboundMessage{ChatID: -1001234567890, MessageID: 5}
	assert.Equal(t, "https://t.me/c/1234567890/5", private.Link())

	group := &InboundMessage{ChatID: -4567, MessageID: 2}
	assert.Equal(t, "https://t.me/c/4567/2", group.Link())
}

func TestMessageContext_DropIsFinal(t *testing.T) {
	mc := NewMessageContext(&ForwardRule{}, &InboundMessage{Text: "hi", MediaGroupID: "g"})
	assert.Equal(t, "hi", mc.MessageText)
	assert.True(t, mc.ShouldForward())
	assert.True(t, mc.IsMediaGroup())

	mc.Drop()
	mc.Drop()
	assert.False(t, mc.ShouldForward())

	mc.AddError("a")
	mc.AddError("b")
	assert.Equal(t, []string{"a", "b"}, mc.Errors)
}

func TestForwardRule_MaxMediaBytes(t *testing.T) {
	assert.Zero(t, (&ForwardRule{}).MaxMediaBytes())
	assert.Zero(t, (&ForwardRule{MaxMediaSizeMB: -1}).MaxMediaBytes())
	assert.Equal(t, int64(20*1024*1024), (&ForwardRule{MaxMediaSizeMB: 20}).MaxMediaBytes())
}

func TestForwardRule_CanSync(t *testing.T) {
	assert.False(t, (&ForwardRule{SyncEnabled: true}).CanSync())
	assert.False(t, (&ForwardRule{SyncDomain: "d"}).CanSync())
	assert.True(t, (&ForwardRule{SyncEnabled: true, SyncDomain: "d"}).CanSync())
}

func TestParseModes(t *testing.T) {
	m, err := ParseMessageMode("")
	require.NoError(t, err)
	assert.Equal(t, MessageModePlain, m)
	_, err = ParseMessageMode("bbcode")
	assert.Error(t, err)

	p, err := ParsePreviewMode("off")
	require.NoError(t, err)
	assert.Equal(t, PreviewOff, p)
	_, err = ParsePreviewMode("auto")
	assert.Error(t, err)
}

func TestMediaTypeSettings_Toggle(t *testing.T) {
	s := &MediaTypeSettings{}
	for _, k := range []MediaKind{MediaPhoto, MediaDocument, MediaVideo, MediaAudio, MediaVoice} {
		on, err := s.Toggle(k)
		require.NoError(t, err)
		assert.True(t, on)
		assert.True(t, s.Blocks(k))
	}
	_, err := s.Toggle("sticker")
	assert.Error(t, err)
	assert.False(t, s.Blocks("sticker"))
}

func TestAttachment_Extension(t *testing.T) {
	assert.Equal(t, "pdf", (&Attachment{FileName: "Report.PDF"}).Extension())
	assert.Equal(t, "gz", (&Attachment{FileName: "a.tar.gz"}).Extension())
	assert.Empty(t, (&Attachment{}).Extension())
}

func TestSyncItem_SlotKey(t *testing.T) {
	want := map[SyncItem]string{
		SyncItemMain:            "mainAndSubPageKeywords",
		SyncItemContent:         "contentPageKeywords",
		SyncItemMainUsername:    "mainAndSubPageUserKeywords",
		SyncItemContentUsername: "contentPageUserKeywords",
	}
	for _, item := range SyncItems {
		key, ok := item.SlotKey()
		require.True(t, ok)
		assert.Equal(t, want[item], key)
	}
	_, ok := SyncItemUnset.SlotKey()
	assert.False(t, ok)

	_, err := ParseSyncItem("sidebar")
	assert.Error(t, err)
	item, err := ParseSyncItem("")
	require.NoError(t, err)
	assert.Equal(t, SyncItemUnset, item)
}

func TestKeywordsFor(t *testing.T) {
	set := KeywordsFor([]Keyword{
		{Pattern: "a"},
		{Pattern: "b.*", IsRegex: true},
		{Pattern: "c", IsBlacklist: true},
	})
	assert.Equal(t, []string{"a", "c"}, set.Keywords)
	assert.Equal(t, []string{"b.*"}, set.RegexPatterns)

	empty := KeywordsFor(nil)
	assert.NotNil(t, empty.Keywords)
	assert.NotNil(t, empty.RegexPatterns)
}

func TestSyncDocument_Find(t *testing.T) {
	doc := &SyncDocument{Domains: []DomainConfig{{Domain: "a"}, {Domain: "b"}}}
	dc, ok := doc.Find("b")
	require.True(t, ok)
	assert.Equal(t, "b", dc.Domain)
	_, ok = doc.Find("c")
	assert.False(t, ok)
}

func TestReceipt_RoutingKey(t *testing.T) {
	assert.Equal(t, "forward.delivered", (&Receipt{Forwarded: true}).RoutingKey())
	assert.Equal(t, "forward.dropped", (&Receipt{}).RoutingKey())
}
