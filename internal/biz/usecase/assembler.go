package usecase

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
)

// Classify splits attachments by size. limit is in bytes, 0 keeps everything.
func Classify(atts []domain.Attachment, limit int64) (keep []domain.Attachment, skipped []domain.SkippedMedia) {
	for _, a := range atts {
		if limit > 0 && a.Size > limit {
			skipped = append(skipped, domain.SkippedMedia{FileID: a.FileID, Size: a.Size})
			continue
		}
		keep = append(keep, a)
	}
	return keep, skipped
}

// MediaAssembler stages attachments to local temp files for one send attempt
type MediaAssembler struct {
	transport   repo.TransportRepo
	tempDir     string
	concurrency int
	log         *zap.Logger
}

// NewMediaAssembler creates an assembler staging into tempDir
func NewMediaAssembler(transport repo.TransportRepo, tempDir string, concurrency int, log *zap.Logger) *MediaAssembler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &MediaAssembler{
		transport:   transport,
		tempDir:     tempDir,
		concurrency: concurrency,
		log:         log.Named("assembler"),
	}
}

// Stage downloads attachments concurrently and returns their paths in input order.
// release removes every staged file and must be called on all paths, including errors.
func (a *MediaAssembler) Stage(ctx context.Context, atts []domain.Attachment) (paths []string, release func(), err error) {
	staged := make([]string, len(atts))
	release = func() { a.cleanup(staged) }

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, att := range atts {
		g.Go(func() error {
			p, err := a.transport.DownloadAttachment(gctx, att, a.tempDir)
			if err != nil {
				return err
			}
			staged[i] = p
			a.log.Debug("staged",
				zap.String("file_id", att.FileID),
				zap.String("size", humanize.IBytes(uint64(att.Size))))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, release, err
	}
	return staged, release, nil
}

// cleanup is best effort; failures are logged and never change the send outcome
func (a *MediaAssembler) cleanup(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			a.log.Warn("failed to remove temp file", zap.String("path", p), zap.Error(err))
		}
	}
}
