package distribution

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"audioprep/domain/distribution"
)

// UploadService publishes cleaned waveforms through a Publisher
type UploadService struct {
	publisher   distribution.Publisher
	destination string
	output      io.Writer
}

// NewUploadService creates a new upload service. destination is the Drive
// folder ID or object key prefix, depending on the publisher.
func NewUploadService(publisher distribution.Publisher, destination string, output io.Writer) *UploadService {
	if output == nil {
		output = io.Discard
	}
	return &UploadService{
		publisher:   publisher,
		destination: destination,
		output:      output,
	}
}

// Upload publishes filePath and returns its shareable link.
// Publishers with a quota get old cleaned waveforms pruned first when they
// can list and delete; publishers that duplicate on upload have an existing
// file of the same name in the destination replaced. Without a destination
// nothing is replaced.
func (s *UploadService) Upload(ctx context.Context, filePath string) (*distribution.UploadResult, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", distribution.ErrFileNotFound, filePath)
	}

	if err := s.ensureSpace(ctx, info.Size()); err != nil {
		return nil, err
	}

	fileName := filepath.Base(filePath)

	if replacer, ok := s.publisher.(distribution.Replacer); ok && s.destination != "" {
		existing, err := replacer.FindFileByName(ctx, s.destination, fileName)
		if err != nil {
			return nil, fmt.Errorf("failed to check for existing file: %w", err)
		}
		if existing != nil {
			fmt.Fprintf(s.output, "      Replacing existing %s (%s)\n", existing.Name, humanize.Bytes(uint64(existing.Size)))
			if err := replacer.DeletePermanently(ctx, existing.ID); err != nil {
				return nil, fmt.Errorf("failed to delete existing file %s: %w", existing.Name, err)
			}
		}
	}

	result, err := s.publisher.Publish(ctx, distribution.UploadRequest{
		LocalPath:   filePath,
		FileName:    fileName,
		Destination: s.destination,
		MimeType:    distribution.MimeTypeFor(fileName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish %s: %w", fileName, err)
	}

	return result, nil
}

func (s *UploadService) ensureSpace(ctx context.Context, needed int64) error {
	if prunable, ok := s.publisher.(PrunableStorage); ok && s.destination != "" {
		cleanup, err := NewCleanupService(prunable, s.destination).EnsureSpaceAvailable(ctx, needed)
		if err != nil {
			return fmt.Errorf("storage check failed: %w", err)
		}
		for _, df := range cleanup.DeletedFiles {
			fmt.Fprintf(s.output, "      Removed: %s (%s)\n", df.Name, humanize.Bytes(uint64(df.Size)))
		}
		return nil
	}

	checker, ok := s.publisher.(distribution.QuotaChecker)
	if !ok {
		return nil
	}
	storage, err := checker.GetStorageQuota(ctx)
	if err != nil {
		return fmt.Errorf("storage check failed: %w", err)
	}
	if !storage.HasSpaceFor(needed) {
		return fmt.Errorf("%w: need %s, %s available", distribution.ErrInsufficientSpace,
			humanize.Bytes(uint64(needed)), humanize.Bytes(uint64(storage.AvailableBytes)))
	}
	return nil
}
