package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TempSweeper removes staged media left behind by an interrupted process
type TempSweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	log      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTempSweeper creates a sweeper for dir removing files older than maxAge
func NewTempSweeper(dir string, maxAge, interval time.Duration, log *zap.Logger) *TempSweeper {
	return &TempSweeper{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		log:      log.Named("sweeper"),
	}
}

// Start sweeps once and then on every interval
func (s *TempSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Sweep(time.Now())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Sweep(now)
			}
		}
	}()
}

// Stop stops the sweeper
func (s *TempSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// isStaged reports whether name looks like a staged download, <uuid>[.ext].
// The temp dir may be shared, nothing else in it is touched.
func isStaged(name string) bool {
	stem, _, _ := strings.Cut(name, ".")
	return len(stem) == 36 && uuid.Validate(stem) == nil
}

// Sweep removes staged files in the temp dir modified before now-maxAge
func (s *TempSweeper) Sweep(now time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read temp dir", zap.String("dir", s.dir), zap.Error(err))
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !isStaged(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < s.maxAge {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			s.log.Warn("failed to remove stale file", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("removed stale temp files", zap.Int("count", removed))
	}
	return removed
}
