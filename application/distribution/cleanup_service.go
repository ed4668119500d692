package distribution

import (
	"context"
	"fmt"
	"strings"

	"audioprep/domain/audio"
	"audioprep/domain/distribution"
)

// PrunableStorage is a destination whose quota can be freed by deleting
// previously published files
type PrunableStorage interface {
	distribution.QuotaChecker
	distribution.Lister
	distribution.Replacer
}

// CleanupService handles storage cleanup operations
type CleanupService struct {
	storage     PrunableStorage
	destination string
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(storage PrunableStorage, destination string) *CleanupService {
	return &CleanupService{
		storage:     storage,
		destination: destination,
	}
}

// EnsureSpaceAvailable deletes the oldest cleaned waveforms until
// neededBytes fit. Files that are not cleaned waveforms are never touched.
func (s *CleanupService) EnsureSpaceAvailable(ctx context.Context, neededBytes int64) (*distribution.CleanupResult, error) {
	result := &distribution.CleanupResult{}

	for {
		storage, err := s.storage.GetStorageQuota(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to check storage: %w", err)
		}

		if storage.HasSpaceFor(neededBytes) {
			return result, nil
		}

		candidates, err := s.ListCleanedFiles(ctx)
		if err != nil {
			return result, err
		}

		if len(candidates) == 0 {
			return result, fmt.Errorf("%w: need %d bytes but only %d available and nothing left to delete",
				distribution.ErrInsufficientSpace, neededBytes, storage.AvailableBytes)
		}

		oldest := candidates[0]
		if err := s.storage.DeletePermanently(ctx, oldest.ID); err != nil {
			return result, fmt.Errorf("failed to delete %s: %w", oldest.Name, err)
		}

		result.DeletedFiles = append(result.DeletedFiles, distribution.DeletedFile{
			Name: oldest.Name,
			Size: oldest.Size,
		})
		result.FreedBytes += oldest.Size
	}
}

// ListCleanedFiles lists published cleaned waveforms, oldest first
func (s *CleanupService) ListCleanedFiles(ctx context.Context) ([]distribution.FileInfo, error) {
	files, err := s.storage.ListFiles(ctx, s.destination)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var cleaned []distribution.FileInfo
	for _, f := range files {
		if strings.HasSuffix(f.Name, audio.CleanedSuffix) {
			cleaned = append(cleaned, f)
		}
	}
	return cleaned, nil
}
