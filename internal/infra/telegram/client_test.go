package telegram

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, content, 0644))
	return p
}

func TestParseChatID(t *testing.T) {
	id, err := ParseChatID("-1001234567890")
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234567890), id.ID)

	id, err = ParseChatID("@channel")
	require.NoError(t, err)
	assert.Equal(t, "@channel", id.Username)

	_, err = ParseChatID("oc_feishu")
	assert.Error(t, err)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, telego.MediaTypePhoto, kindOf(writeFile(t, "a.png", pngHeader)))
	assert.Equal(t, telego.MediaTypeDocument, kindOf(writeFile(t, "a.txt", []byte("plain text"))))
	assert.Equal(t, telego.MediaTypeDocument, kindOf(filepath.Join(t.TempDir(), "missing")))
}

func TestGroupKinds(t *testing.T) {
	photo := writeFile(t, "p.png", pngHeader)
	doc := writeFile(t, "d.txt", []byte("notes"))

	assert.Equal(t, []string{telego.MediaTypePhoto, telego.MediaTypePhoto}, groupKinds([]string{photo, photo}))
	assert.Equal(t, []string{telego.MediaTypeDocument, telego.MediaTypeDocument}, groupKinds([]string{photo, doc}))
	assert.Equal(t, []string{telego.MediaTypeDocument, telego.MediaTypeDocument}, groupKinds([]string{doc, doc}))
}
