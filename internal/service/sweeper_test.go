package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

const (
	staleName = "0b6f1d3e-5c1a-4b7e-9a52-3f0c8d2e7a10.jpg"
	freshName = "7d2c4e9f-1a3b-4c5d-8e6f-0a1b2c3d4e5f.jpg"
)

func TestTempSweeper_Sweep(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(dir, staleName), now.Add(-2*time.Hour))
	touch(t, filepath.Join(dir, freshName), now.Add(-time.Minute))
	touch(t, filepath.Join(dir, "2e9b7c41-8f0d-4a6e-b3c2-5d1e9f8a7b60"), now.Add(-2*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	s := NewTempSweeper(dir, time.Hour, time.Minute, zap.NewNop())
	assert.Equal(t, 2, s.Sweep(now))

	_, err := os.Stat(filepath.Join(dir, staleName))
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, filepath.Join(dir, freshName))
	assert.DirExists(t, filepath.Join(dir, "sub"))
}

func TestTempSweeper_Sweep_LeavesForeignFiles(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)
	for _, name := range []string{"notes.txt", "report.pdf", ".X0-lock", "0b6f1d3e.jpg"} {
		touch(t, filepath.Join(dir, name), old)
	}

	s := NewTempSweeper(dir, time.Hour, time.Minute, zap.NewNop())
	assert.Zero(t, s.Sweep(time.Now()))
	for _, name := range []string{"notes.txt", "report.pdf", ".X0-lock", "0b6f1d3e.jpg"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestTempSweeper_Sweep_MissingDir(t *testing.T) {
	s := NewTempSweeper(filepath.Join(t.TempDir(), "absent"), time.Hour, time.Minute, zap.NewNop())
	assert.Zero(t, s.Sweep(time.Now()))
}

func TestTempSweeper_StartSweepsImmediately(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, staleName)
	touch(t, old, time.Now().Add(-48*time.Hour))

	s := NewTempSweeper(dir, time.Hour, time.Hour, zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		_, err := os.Stat(old)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)
}
