package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndexes(t *testing.T) {
	idx, err := parseIndexes([]string{"3", "1"})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, idx)

	_, err = parseIndexes([]string{"x"})
	assert.Error(t, err)

	_, err = parseRuleID("abc")
	assert.Error(t, err)
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), "forwarder %v", args)
	return out.String()
}

func TestCLI_ImportAndManageKeywords(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RULES_DB_PATH", filepath.Join(dir, "rules.db"))
	t.Setenv("UFB_ENABLED", "false")

	seed := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
rules:
  - name: news
    source_chat_id: -1001
    target_chat_id: "@dest"
`), 0644))

	assert.Contains(t, execute(t, "rules", "import", seed), "imported rule 1 (news)")
	assert.Contains(t, execute(t, "rules", "list"), "news\t-1001 -> @dest\ton")

	assert.Equal(t, "added 2, duplicates 0\n", execute(t, "keywords", "add", "1", "foo", "bar", "--blacklist"))
	assert.Equal(t, "added 0, duplicates 1\n", execute(t, "keywords", "add", "1", "foo", "--blacklist"))
	assert.Equal(t, "deleted 1\n", execute(t, "keywords", "delete", "1", "1"))
	assert.Equal(t, "1\tblack\ttext\tbar\n", execute(t, "keywords", "list", "1"))
}
