package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/usecase"
	"github.com/devricklin/chat-forwarder/internal/data"
	"github.com/devricklin/chat-forwarder/internal/infra/ufb"
)

func TestSyncService_AppliesPushedDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mirrorPath := filepath.Join(dir, "mirror.json")
	require.NoError(t, os.WriteFile(mirrorPath, []byte(`{"userConfig": [{"domain": "d1"}]}`), 0644))

	store, err := data.NewRuleRepo(filepath.Join(dir, "rules.db"))
	require.NoError(t, err)
	defer store.Close()
	rule := &domain.ForwardRule{
		SourceChatID: -1, TargetChatID: "1", Enabled: true,
		MessageMode: domain.MessageModePlain, PreviewMode: domain.PreviewFollow,
		SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemMain,
	}
	require.NoError(t, store.SaveRule(ctx, rule))

	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client := ufb.NewClient(srv.URL, "", zap.NewNop(), ufb.WithReconnectDelay(10*time.Millisecond))
	socket := data.NewSyncSocketRepo(client)
	syncUC := usecase.NewSyncUsecase(store, data.NewMirrorRepo(mirrorPath), socket, zap.NewNop())

	svc := NewSyncService(client, syncUC, zap.NewNop())
	svc.Start(ctx)
	defer svc.Stop()

	var peer *websocket.Conn
	select {
	case peer = <-conns:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not connect")
	}

	push := `{"userConfig": [{"domain": "d1", "mainAndSubPageKeywords": {"keywords": ["remote"], "regexPatterns": []}}]}`
	require.NoError(t, peer.WriteMessage(websocket.TextMessage, []byte(push)))

	require.Eventually(t, func() bool {
		kws, err := store.ListKeywords(ctx, rule.ID)
		return err == nil && len(kws) == 1 && kws[0].Pattern == "remote"
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, socket.IsConnected())
}

func TestSyncService_PushesOfflineEditsOnConnect(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mirrorPath := filepath.Join(dir, "mirror.json")
	require.NoError(t, os.WriteFile(mirrorPath, []byte(`{"userConfig": [{"domain": "d1"}]}`), 0644))

	store, err := data.NewRuleRepo(filepath.Join(dir, "rules.db"))
	require.NoError(t, err)
	defer store.Close()
	rule := &domain.ForwardRule{
		SourceChatID: -1, TargetChatID: "1", Enabled: true,
		MessageMode: domain.MessageModePlain, PreviewMode: domain.PreviewFollow,
		SyncEnabled: true, SyncDomain: "d1", SyncItem: domain.SyncItemMain,
	}
	require.NoError(t, store.SaveRule(ctx, rule))

	// edited while no socket was up
	require.NoError(t, store.AddKeyword(ctx, &domain.Keyword{RuleID: rule.ID, Pattern: "offline-edit", IsBlacklist: true}))

	frames := make(chan []byte, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- msg
		}
	}))
	defer srv.Close()

	client := ufb.NewClient(srv.URL, "", zap.NewNop(), ufb.WithReconnectDelay(10*time.Millisecond))
	syncUC := usecase.NewSyncUsecase(store, data.NewMirrorRepo(mirrorPath), data.NewSyncSocketRepo(client), zap.NewNop())

	svc := NewSyncService(client, syncUC, zap.NewNop())
	svc.Start(ctx)
	defer svc.Stop()

	select {
	case frame := <-frames:
		assert.Equal(t, "update", gjson.GetBytes(frame, "type").String())
		assert.JSONEq(t, `["offline-edit"]`, gjson.GetBytes(frame, "userConfig.0.mainAndSubPageKeywords.keywords").Raw)
	case <-time.After(2 * time.Second):
		t.Fatal("no update pushed on connect")
	}
}
