package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
	"github.com/devricklin/chat-forwarder/internal/data"
)

const testMB = 1024 * 1024

func newTestStore(t *testing.T) repo.RuleRepo {
	t.Helper()
	store, err := data.NewRuleRepo(filepath.Join(t.TempDir(), "rules.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func saveRule(t *testing.T, store repo.RuleRepo, rule *domain.ForwardRule) *domain.ForwardRule {
	t.Helper()
	if rule.SourceChatID == 0 {
		rule.SourceChatID = -1001234567890
	}
	if rule.TargetChatID == "" {
		rule.TargetChatID = "-1009876543210"
	}
	if rule.MessageMode == "" {
		rule.MessageMode = domain.MessageModePlain
	}
	if rule.PreviewMode == "" {
		rule.PreviewMode = domain.PreviewFollow
	}
	rule.Enabled = true
	require.NoError(t, store.SaveRule(context.Background(), rule))
	return rule
}

type sendCall struct {
	Kind    string
	ChatID  string
	Text    string
	Paths   []string
	Opts    repo.SendOptions
	Existed bool // every staged file was on disk at send time
}

// fakeTransport records sends and stages attachments as small files
type fakeTransport struct {
	mu          sync.Mutex
	calls       []sendCall
	staged      []string
	sendErr     error
	downloadErr map[string]error
}

func (f *fakeTransport) record(c sendCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.Existed = true
	for _, p := range c.Paths {
		if _, err := os.Stat(p); err != nil {
			c.Existed = false
		}
	}
	f.calls = append(f.calls, c)
	return f.sendErr
}

func (f *fakeTransport) SendText(ctx context.Context, chatID, text string, opts repo.SendOptions) error {
	return f.record(sendCall{Kind: "text", ChatID: chatID, Text: text, Opts: opts})
}

func (f *fakeTransport) SendSingleMedia(ctx context.Context, chatID, path, caption string, opts repo.SendOptions) error {
	return f.record(sendCall{Kind: "single", ChatID: chatID, Text: caption, Paths: []string{path}, Opts: opts})
}

func (f *fakeTransport) SendMediaGroup(ctx context.Context, chatID string, paths []string, caption string, opts repo.SendOptions) error {
	return f.record(sendCall{Kind: "group", ChatID: chatID, Text: caption, Paths: paths, Opts: opts})
}

func (f *fakeTransport) DownloadAttachment(ctx context.Context, att domain.Attachment, destDir string) (string, error) {
	if err := f.downloadErr[att.FileID]; err != nil {
		return "", err
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}
	p := filepath.Join(destDir, att.FileID+".bin")
	if err := os.WriteFile(p, []byte(att.FileID), 0644); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.staged = append(f.staged, p)
	f.mu.Unlock()
	return p, nil
}

func (f *fakeTransport) requireCleaned(t *testing.T) {
	t.Helper()
	for _, p := range f.staged {
		_, err := os.Stat(p)
		require.True(t, errors.Is(err, os.ErrNotExist), "temp file %s still exists", p)
	}
}

// fakeSocket records pushed documents
type fakeSocket struct {
	connected bool
	pushErr   error
	pushed    [][]byte
}

func (s *fakeSocket) IsConnected() bool { return s.connected }

func (s *fakeSocket) PushUpdate(ctx context.Context, doc []byte) error {
	if s.pushErr != nil {
		return s.pushErr
	}
	s.pushed = append(s.pushed, doc)
	return nil
}

func zapNop() *zap.Logger { return zap.NewNop() }

func newTestChain(store repo.RuleRepo, transport repo.TransportRepo, tempDir string) *FilterChain {
	log := zap.NewNop()
	return NewFilterChain(log,
		NewKeywordFilter(store, log),
		NewReplaceFilter(store, log),
		NewMediaFilter(store, log),
		NewInfoFilter(nil),
		NewSenderFilter(transport, NewMediaAssembler(transport, tempDir, 2, log), log),
	)
}

func attachment(id string, sizeMB float64) domain.Attachment {
	return domain.Attachment{FileID: id, Kind: domain.MediaPhoto, Size: int64(sizeMB * testMB)}
}
