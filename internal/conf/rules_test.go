package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

const rulesYAML = `
rules:
  - name: news
    source_chat_id: -1001111111111
    target_chat_id: "@mirror"
    message_mode: html
    preview_mode: "on"
    original_link: true
    max_media_size_mb: 20
    blocked_media_types: [voice]
    media_extensions: [pdf, zip]
    sync:
      enabled: true
      domain: example.com
      item: main
    keywords:
      - pattern: promo
        blacklist: true
      - pattern: "^\\d+$"
        regex: true
    replace:
      - pattern: "#ad"
  - name: paused
    source_chat_id: -1002222222222
    target_chat_id: "oc_abc"
    enabled: false
`

func TestLoadRulesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(p, []byte(rulesYAML), 0644))

	f, err := LoadRulesFile(p)
	require.NoError(t, err)
	require.Len(t, f.Rules, 2)

	in, err := f.Rules[0].ToImport()
	require.NoError(t, err)
	rule := in.Rule
	assert.Equal(t, "news", rule.Name)
	assert.True(t, rule.Enabled)
	assert.Equal(t, domain.MessageModeHTML, rule.MessageMode)
	assert.Equal(t, domain.PreviewOn, rule.PreviewMode)
	assert.True(t, rule.MediaTypeFilterOn)
	assert.True(t, rule.MediaExtensionFilterOn)
	assert.Equal(t, domain.SyncItemMain, rule.SyncItem)
	assert.True(t, rule.CanSync())
	assert.Equal(t, []domain.MediaKind{domain.MediaVoice}, in.Blocked)
	assert.Equal(t, []string{"pdf", "zip"}, in.Extensions)
	require.Len(t, in.Keywords, 2)
	assert.True(t, in.Keywords[0].IsBlacklist)
	assert.True(t, in.Keywords[1].IsRegex)
	assert.Equal(t, `^\d+$`, in.Keywords[1].Pattern)
	require.Len(t, in.Replace, 1)
	assert.Empty(t, in.Replace[0].Content)

	paused, err := f.Rules[1].ToImport()
	require.NoError(t, err)
	assert.False(t, paused.Rule.Enabled)
	assert.Equal(t, domain.MessageModePlain, paused.Rule.MessageMode)
	assert.Equal(t, domain.PreviewFollow, paused.Rule.PreviewMode)
	assert.False(t, paused.Rule.CanSync())
}

func TestLoadRulesFile_Errors(t *testing.T) {
	_, err := LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("rules: ["), 0644))
	_, err = LoadRulesFile(p)
	assert.Error(t, err)
}

func TestRuleSeed_ToImport_Invalid(t *testing.T) {
	tests := map[string]RuleSeed{
		"no name":      {SourceChatID: -1, TargetChatID: "1"},
		"no target":    {Name: "x", SourceChatID: -1},
		"bad mode":     {Name: "x", SourceChatID: -1, TargetChatID: "1", MessageMode: "rtf"},
		"bad preview":  {Name: "x", SourceChatID: -1, TargetChatID: "1", PreviewMode: "maybe"},
		"bad syncitem": {Name: "x", SourceChatID: -1, TargetChatID: "1", Sync: SyncSeed{Item: "sidebar"}},
	}
	for name, seed := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := seed.ToImport()
			var cerr *ConfigError
			assert.ErrorAs(t, err, &cerr)
		})
	}
}
