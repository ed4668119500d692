package ytdlp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"audioprep/domain/audio"
)

// DefaultRetries is the number of extra attempts after a failed download
const DefaultRetries = 1

// DefaultBackoff is the pause between download attempts
const DefaultBackoff = 2 * time.Second

// Fetcher implements audio.MediaFetcher using yt-dlp
type Fetcher struct {
	downloader Downloader
	retries    int
	backoff    time.Duration
	logger     *zap.Logger
}

// FetcherOption is a functional option for configuring Fetcher
type FetcherOption func(*Fetcher)

// WithDownloader sets a custom downloader (for testing)
func WithDownloader(d Downloader) FetcherOption {
	return func(f *Fetcher) {
		f.downloader = d
	}
}

// WithRetries sets how many times a failed download is retried
func WithRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 0 {
			f.retries = n
		}
	}
}

// WithBackoff sets the delay between attempts
func WithBackoff(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a new yt-dlp backed fetcher
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		downloader: NewCommandDownloader(DefaultFormat),
		retries:    DefaultRetries,
		backoff:    DefaultBackoff,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch implements audio.MediaFetcher
func (f *Fetcher) Fetch(ctx context.Context, ref audio.SourceReference, destDir string) (*audio.DownloadedAsset, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	dl, err := f.downloadWithRetry(ctx, ref.String(), destDir)
	if err != nil {
		return nil, classify(err)
	}

	info, err := os.Stat(dl.Filename)
	if err != nil {
		return nil, fmt.Errorf("downloaded file not found at %s: %w", dl.Filename, err)
	}

	f.logger.Info("downloaded audio",
		zap.String("title", dl.Title),
		zap.String("path", dl.Filename),
		zap.String("size", humanize.Bytes(uint64(info.Size()))),
	)

	return &audio.DownloadedAsset{Path: dl.Filename, Title: dl.Title}, nil
}

// downloadWithRetry attempts download with retry logic
func (f *Fetcher) downloadWithRetry(ctx context.Context, url, destDir string) (*Download, error) {
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(f.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			f.logger.Warn("retrying download", zap.String("url", url), zap.Int("attempt", attempt+1))
		}

		dl, err := f.downloader.Download(ctx, url, destDir)
		if err == nil {
			return dl, nil
		}

		lastErr = err
		f.logger.Debug("download attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// classify maps yt-dlp failures onto domain errors
func classify(err error) error {
	if strings.Contains(err.Error(), "Requested format is not available") {
		return fmt.Errorf("%w: %v", audio.ErrNoAudioStream, err)
	}
	return err
}

// Ensure Fetcher implements audio.MediaFetcher
var _ audio.MediaFetcher = (*Fetcher)(nil)
