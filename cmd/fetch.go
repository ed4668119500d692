package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"audioprep/application/acquire"
	"audioprep/domain/audio"
	"audioprep/infrastructure/filesystem"
)

var (
	fetchURL string
	fetchDir string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the audio track of a video",
	Long: `Download the best audio-only stream of a video with yt-dlp.

The file is named after the video title and saved in the download directory.
Use this to redo the first step of "process" by hand.

Example:
  audioprep fetch --url "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  audioprep fetch --url "https://youtu.be/dQw4w9WgXcQ" --dir ./lectures`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "Video URL (required)")
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "", "Download directory (defaults to paths.download_directory)")
	fetchCmd.MarkFlagRequired("url")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	fetcher, err := newFetcher(ctx, cfg, GetLogger())
	if err != nil {
		return err
	}

	dir := fetchDir
	if dir == "" {
		dir = cfg.Paths.DownloadDirectory
	}

	return RunFetchWithDependencies(ctx, fetcher, filesystem.NewChecker(), GetLogger(), fetchURL, dir, os.Stdout)
}

// RunFetchWithDependencies runs the fetch command with injected dependencies (for testing)
func RunFetchWithDependencies(
	ctx context.Context,
	fetcher audio.MediaFetcher,
	fileChecker audio.FileChecker,
	logger *zap.Logger,
	url string,
	dir string,
	output OutputWriter,
) error {
	service := acquire.NewFetchService(fetcher, fileChecker, logger)

	fmt.Fprintf(output, "Fetching audio from %s...\n", url)

	result, err := service.Fetch(ctx, url, dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Successfully downloaded: %s\n", result.Asset.Path)
	fmt.Fprintf(output, "Title: %s\n", result.Asset.Title)
	return nil
}
