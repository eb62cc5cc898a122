package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
	"github.com/devricklin/chat-forwarder/internal/data"
)

const seedMirror = `{
  "userConfig": [
    {
      "domain": "d1",
      "enabled": true,
      "mainAndSubPageKeywords": {"keywords": ["old"], "regexPatterns": []}
    }
  ],
  "globalConfig": {"theme": "dark", "SYNC_CONFIG": {"lastSyncTime": 1000}}
}`

type syncFixture struct {
	store      repo.RuleRepo
	mirrorPath string
	socket     *fakeSocket
	logs       *observer.ObservedLogs
	sync       *SyncUsecase
	rules      *RuleUsecase
}

func newSyncFixture(t *testing.T, connected bool) *syncFixture {
	t.Helper()
	mirrorPath := filepath.Join(t.TempDir(), "mirror.json")
	require.NoError(t, os.WriteFile(mirrorPath, []byte(seedMirror), 0644))

	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	f := &syncFixture{
		store:      newTestStore(t),
		mirrorPath: mirrorPath,
		socket:     &fakeSocket{connected: connected},
		logs:       logs,
	}
	f.sync = NewSyncUsecase(f.store, data.NewMirrorRepo(mirrorPath), f.socket, log)
	f.sync.now = func() time.Time { return time.UnixMilli(5000) }
	f.rules = NewRuleUsecase(f.store, f.sync, log)
	return f
}

func (f *syncFixture) mirror(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile(f.mirrorPath)
	require.NoError(t, err)
	return b
}

func TestSyncUsecase_PushRule_ConnectedPushesDocument(t *testing.T) {
	f := newSyncFixture(t, true)
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemMain})

	added, dups, err := f.rules.AddKeywords(context.Background(), rule.ID, []string{"foo"}, false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 0, dups)

	doc := f.mirror(t)
	assert.JSONEq(t, `["foo"]`, gjson.GetBytes(doc, "userConfig.0.mainAndSubPageKeywords.keywords").Raw)
	assert.JSONEq(t, `[]`, gjson.GetBytes(doc, "userConfig.0.mainAndSubPageKeywords.regexPatterns").Raw)
	assert.Equal(t, int64(5000), gjson.GetBytes(doc, "globalConfig.SYNC_CONFIG.lastSyncTime").Int())
	assert.Equal(t, "dark", gjson.GetBytes(doc, "globalConfig.theme").String())
	assert.True(t, gjson.GetBytes(doc, "userConfig.0.enabled").Bool())

	require.Len(t, f.socket.pushed, 1)
	assert.JSONEq(t, `["foo"]`, gjson.GetBytes(f.socket.pushed[0], "userConfig.0.mainAndSubPageKeywords.keywords").Raw)
}

func TestSyncUsecase_PushRule_OfflineUpdatesMirrorOnly(t *testing.T) {
	f := newSyncFixture(t, false)
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemContent})

	_, _, err := f.rules.AddKeywords(context.Background(), rule.ID, []string{"x.*"}, true, true)
	require.NoError(t, err)

	doc := f.mirror(t)
	assert.JSONEq(t, `["x.*"]`, gjson.GetBytes(doc, "userConfig.0.contentPageKeywords.regexPatterns").Raw)
	assert.Empty(t, f.socket.pushed)
	assert.Equal(t, 1, f.logs.FilterMessage("sync peer offline, mirror updated locally").Len())
}

func TestSyncUsecase_PushRule_TimestampAdvances(t *testing.T) {
	f := newSyncFixture(t, true)
	f.sync.now = func() time.Time { return time.UnixMilli(10) }
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemMain})

	require.NoError(t, f.sync.PushRule(context.Background(), rule))
	require.NoError(t, f.sync.PushRule(context.Background(), rule))

	assert.Equal(t, int64(1002), gjson.GetBytes(f.mirror(t), "globalConfig.SYNC_CONFIG.lastSyncTime").Int())
}

func TestSyncUsecase_PushRule_UnknownDomainLeavesMirror(t *testing.T) {
	f := newSyncFixture(t, true)
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "nope", SyncItem: domain.SyncItemMain})

	require.NoError(t, f.sync.PushRule(context.Background(), rule))
	assert.JSONEq(t, seedMirror, string(f.mirror(t)))
	assert.Empty(t, f.socket.pushed)
	assert.Equal(t, 1, f.logs.FilterMessage("sync domain not found in mirror").Len())
}

func TestSyncUsecase_PushRule_UnsetItemWarns(t *testing.T) {
	f := newSyncFixture(t, true)
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1"})

	require.NoError(t, f.sync.PushRule(context.Background(), rule))
	assert.Empty(t, f.socket.pushed)
	assert.Equal(t, 1, f.logs.FilterMessage("sync item not set, skipping push").Len())
}

func TestSyncUsecase_PushRule_SyncDisabledIsNoop(t *testing.T) {
	f := newSyncFixture(t, true)
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncDomain: "d1", SyncItem: domain.SyncItemMain})

	_, _, err := f.rules.AddKeywords(context.Background(), rule.ID, []string{"foo"}, false, true)
	require.NoError(t, err)
	assert.JSONEq(t, seedMirror, string(f.mirror(t)))
	assert.Empty(t, f.socket.pushed)
}

func TestSyncUsecase_PushRule_PushErrorIsWarned(t *testing.T) {
	f := newSyncFixture(t, true)
	f.socket.pushErr = errors.New("broken pipe")
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemMain})

	require.NoError(t, f.sync.PushRule(context.Background(), rule))
	assert.Equal(t, 1, f.logs.FilterMessage("push failed").Len())
}

func TestSyncUsecase_ApplyRemote_RewritesKeywords(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, true)
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemMain})
	require.NoError(t, f.store.AddKeyword(ctx, &domain.Keyword{RuleID: rule.ID, Pattern: "stale"}))

	payload := `{
		"userConfig": [{"domain": "d1", "mainAndSubPageKeywords": {"keywords": ["a", "b"], "regexPatterns": ["c+"]}}],
		"globalConfig": {"SYNC_CONFIG": {"lastSyncTime": 2000}}
	}`
	n, err := f.sync.ApplyRemote(ctx, []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	keywords, err := f.store.ListKeywords(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, keywords, 3)
	assert.Equal(t, "a", keywords[0].Pattern)
	assert.Equal(t, "b", keywords[1].Pattern)
	assert.Equal(t, "c+", keywords[2].Pattern)
	assert.True(t, keywords[2].IsRegex)
	for _, k := range keywords {
		assert.True(t, k.IsBlacklist)
	}

	assert.Equal(t, int64(2000), gjson.GetBytes(f.mirror(t), "globalConfig.SYNC_CONFIG.lastSyncTime").Int())
	assert.Empty(t, f.socket.pushed, "applying a remote document never echoes it back")
}

func TestSyncUsecase_ApplyRemote_UnknownDomainWarnsOnce(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, true)
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemMain})

	payload := `{"userConfig": [{"domain": "other", "mainAndSubPageKeywords": {"keywords": ["z"]}}]}`
	n, err := f.sync.ApplyRemote(ctx, []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	keywords, err := f.store.ListKeywords(ctx, rule.ID)
	require.NoError(t, err)
	assert.Empty(t, keywords)
	assert.Equal(t, 1, f.logs.FilterMessage("sync domain not in remote document").Len())
}

func TestSyncUsecase_ApplyRemote_AbsentSlotClearsKeywords(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, true)
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemContentUsername})
	require.NoError(t, f.store.AddKeyword(ctx, &domain.Keyword{RuleID: rule.ID, Pattern: "gone", IsBlacklist: true}))

	n, err := f.sync.ApplyRemote(ctx, []byte(`{"userConfig": [{"domain": "d1"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	keywords, err := f.store.ListKeywords(ctx, rule.ID)
	require.NoError(t, err)
	assert.Empty(t, keywords)
}

func TestSyncUsecase_ApplyRemote_StaleDocumentIgnored(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, true)
	rule := saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemMain})

	payload := `{
		"userConfig": [{"domain": "d1", "mainAndSubPageKeywords": {"keywords": ["late"]}}],
		"globalConfig": {"SYNC_CONFIG": {"lastSyncTime": 500}}
	}`
	n, err := f.sync.ApplyRemote(ctx, []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	keywords, err := f.store.ListKeywords(ctx, rule.ID)
	require.NoError(t, err)
	assert.Empty(t, keywords)
	assert.JSONEq(t, seedMirror, string(f.mirror(t)))
}

func TestSyncUsecase_ApplyRemote_InvalidPayload(t *testing.T) {
	f := newSyncFixture(t, true)
	_, err := f.sync.ApplyRemote(context.Background(), []byte(`{"userConfig": [`))
	assert.Error(t, err)
}

func TestSyncUsecase_PushAll(t *testing.T) {
	f := newSyncFixture(t, true)
	saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemMain})
	saveRule(t, f.store, &domain.ForwardRule{SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemContent})
	saveRule(t, f.store, &domain.ForwardRule{})

	require.NoError(t, f.sync.PushAll(context.Background()))
	assert.Len(t, f.socket.pushed, 2)
}
