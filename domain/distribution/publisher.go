package distribution

import (
	"context"
	"time"
)

// Publisher stores a local file remotely and returns a shareable link
// This is a port that can be implemented by different infrastructure adapters
type Publisher interface {
	Publish(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

// Replacer is implemented by publishers where uploading the same name twice
// creates a duplicate instead of overwriting
type Replacer interface {
	// FindFileByName finds a file by exact name in a destination
	FindFileByName(ctx context.Context, destination, name string) (*FileInfo, error)

	// DeletePermanently deletes a file permanently (bypasses trash)
	DeletePermanently(ctx context.Context, fileID string) error
}

// QuotaChecker is implemented by publishers with a bounded storage quota
type QuotaChecker interface {
	GetStorageQuota(ctx context.Context) (*StorageInfo, error)
}

// Lister is implemented by publishers that can enumerate a destination
type Lister interface {
	// ListFiles returns the files in a destination, oldest first
	ListFiles(ctx context.Context, destination string) ([]FileInfo, error)
}

// FileInfo represents metadata about a published file
type FileInfo struct {
	ID          string
	Name        string
	MimeType    string
	Size        int64
	CreatedTime time.Time
}
