package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/lrstanley/go-ytdlp"
)

// OutputPattern names downloads after the media title
const OutputPattern = "%(title)s.%(ext)s"

// DefaultFormat selects the best audio-only stream
const DefaultFormat = "bestaudio"

// Download describes a completed yt-dlp download
type Download struct {
	Title    string
	Filename string
}

// Downloader defines the interface for the yt-dlp invocation
// This allows mocking the binary in tests
type Downloader interface {
	Download(ctx context.Context, url, destDir string) (*Download, error)
}

// CommandDownloader is the production Downloader built on go-ytdlp
type CommandDownloader struct {
	format string
}

// NewCommandDownloader creates a downloader that requests the given format
func NewCommandDownloader(format string) *CommandDownloader {
	if format == "" {
		format = DefaultFormat
	}
	return &CommandDownloader{format: format}
}

// Download runs yt-dlp for a single URL, overwriting any previous file
func (d *CommandDownloader) Download(ctx context.Context, url, destDir string) (*Download, error) {
	dl := ytdlp.New().
		Format(d.format).
		NoPlaylist().
		ForceOverwrites().
		RestrictFilenames().
		PrintJSON().
		NoSimulate().
		Output(filepath.Join(destDir, OutputPattern))

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, err
	}

	info, err := result.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to read download info: %w", err)
	}
	if len(info) == 0 || info[0].Filename == nil {
		return nil, errors.New("yt-dlp did not report a filename")
	}

	out := &Download{Filename: *info[0].Filename}
	if info[0].Title != nil {
		out.Title = *info[0].Title
	}
	return out, nil
}

// Install ensures a yt-dlp binary is available, downloading one if needed
func Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return nil
}

// Ensure CommandDownloader implements Downloader
var _ Downloader = (*CommandDownloader)(nil)
