package data

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
)

const lastSyncPath = "globalConfig.SYNC_CONFIG.lastSyncTime"

// mirrorRepo keeps the local copy of the remote configuration document.
// Fields the forwarder does not model are preserved byte for byte.
type mirrorRepo struct {
	path string

	// serializes load -> mutate -> persist; the whole document is one file,
	// so a single lock covers every domain
	mu sync.Mutex
}

// NewMirrorRepo creates the mirror repository for a JSON file
func NewMirrorRepo(path string) repo.MirrorRepo {
	return &mirrorRepo{path: path}
}

func (m *mirrorRepo) load() ([]byte, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	// the mirror may be edited by hand, tolerate comments and trailing commas
	data = jsonc.ToJSON(data)
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("mirror %s is not valid JSON", m.path)
	}
	return data, nil
}

func (m *mirrorRepo) save(doc []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return fmt.Errorf("failed to format mirror: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create mirror directory: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write mirror: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to replace mirror: %w", err)
	}
	return nil
}

// findDomain returns the userConfig index of a domain, -1 when absent
func findDomain(doc []byte, name string) int {
	idx, i := -1, 0
	gjson.GetBytes(doc, "userConfig").ForEach(func(_, node gjson.Result) bool {
		if node.Get("domain").String() == name {
			idx = i
			return false
		}
		i++
		return true
	})
	return idx
}

// UpdateSlot replaces one keyword slot and bumps lastSyncTime
func (m *mirrorRepo) UpdateSlot(ctx context.Context, domainName string, item domain.SyncItem, set domain.KeywordSet, now time.Time) ([]byte, error) {
	slot, ok := item.SlotKey()
	if !ok {
		return nil, repo.ErrItemUnset
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load mirror: %w", err)
	}

	idx := findDomain(doc, domainName)
	if idx < 0 {
		return nil, repo.ErrDomainNotFound
	}

	keywords, patterns := set.Keywords, set.RegexPatterns
	if keywords == nil {
		keywords = []string{}
	}
	if patterns == nil {
		patterns = []string{}
	}

	base := fmt.Sprintf("userConfig.%d.%s", idx, slot)
	if doc, err = sjson.SetBytes(doc, base+".keywords", keywords); err != nil {
		return nil, fmt.Errorf("failed to set keywords: %w", err)
	}
	if doc, err = sjson.SetBytes(doc, base+".regexPatterns", patterns); err != nil {
		return nil, fmt.Errorf("failed to set regex patterns: %w", err)
	}

	// lastSyncTime must advance on every local push, even within one millisecond
	ts := now.UnixMilli()
	if prev := gjson.GetBytes(doc, lastSyncPath).Int(); ts <= prev {
		ts = prev + 1
	}
	if doc, err = sjson.SetBytes(doc, lastSyncPath, ts); err != nil {
		return nil, fmt.Errorf("failed to set lastSyncTime: %w", err)
	}

	if err := m.save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Merge folds an incoming document into the mirror, last writer wins
func (m *mirrorRepo) Merge(ctx context.Context, payload []byte) (*domain.SyncDocument, bool, error) {
	payload = jsonc.ToJSON(payload)
	if !gjson.ValidBytes(payload) {
		return nil, false, fmt.Errorf("invalid sync document")
	}
	incoming := DecodeSyncDocument(payload)

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load()
	if errors.Is(err, os.ErrNotExist) {
		doc = []byte(`{}`)
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to load mirror: %w", err)
	}

	if local := gjson.GetBytes(doc, lastSyncPath).Int(); incoming.LastSyncTime != 0 && incoming.LastSyncTime < local {
		return incoming, false, nil
	}

	if !gjson.GetBytes(doc, "userConfig").IsArray() {
		if doc, err = sjson.SetRawBytes(doc, "userConfig", []byte(`[]`)); err != nil {
			return nil, false, fmt.Errorf("failed to init userConfig: %w", err)
		}
	}

	var setErr error
	gjson.GetBytes(payload, "userConfig").ForEach(func(_, node gjson.Result) bool {
		path := "userConfig.-1"
		if idx := findDomain(doc, node.Get("domain").String()); idx >= 0 {
			path = fmt.Sprintf("userConfig.%d", idx)
		}
		doc, setErr = sjson.SetRawBytes(doc, path, []byte(node.Raw))
		return setErr == nil
	})
	if setErr != nil {
		return nil, false, fmt.Errorf("failed to merge userConfig: %w", setErr)
	}

	if global := gjson.GetBytes(payload, "globalConfig"); global.Exists() {
		if doc, err = sjson.SetRawBytes(doc, "globalConfig", []byte(global.Raw)); err != nil {
			return nil, false, fmt.Errorf("failed to merge globalConfig: %w", err)
		}
	}

	if err := m.save(doc); err != nil {
		return nil, false, err
	}
	return incoming, true, nil
}

// DecodeSyncDocument extracts the keyword slots of every domain node
func DecodeSyncDocument(payload []byte) *domain.SyncDocument {
	doc := &domain.SyncDocument{
		LastSyncTime: gjson.GetBytes(payload, lastSyncPath).Int(),
	}

	gjson.GetBytes(payload, "userConfig").ForEach(func(_, node gjson.Result) bool {
		dc := domain.DomainConfig{
			Domain: node.Get("domain").String(),
			Slots:  make(map[domain.SyncItem]domain.KeywordSet),
		}
		for _, item := range domain.SyncItems {
			key, _ := item.SlotKey()
			slot := node.Get(key)
			if !slot.Exists() {
				continue
			}
			dc.Slots[item] = domain.KeywordSet{
				Keywords:      stringArray(slot.Get("keywords")),
				RegexPatterns: stringArray(slot.Get("regexPatterns")),
			}
		}
		doc.Domains = append(doc.Domains, dc)
		return true
	})
	return doc
}

func stringArray(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}
