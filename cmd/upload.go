package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	appdist "audioprep/application/distribution"
	"audioprep/domain/audio"
	"audioprep/domain/distribution"
)

var uploadFilePath string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Publish a cleaned WAV file and print its shareable link",
	Long: `Publish a cleaned WAV file to the configured target (publish.target).

For Google Drive the file goes to google.folder_id with "anyone with the link"
access; an existing file with the same name is replaced, and the oldest
cleaned files are deleted if the quota is full. For S3 the file is stored
under s3.prefix and a presigned link is printed.

Without --file, the newest *_clean.wav in the download directory is used.

Example:
  audioprep upload
  audioprep upload --file "downloads/Lecture 1_clean.wav"`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadFilePath, "file", "", "Path to cleaned file (defaults to latest in download directory)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	filePath := uploadFilePath
	if filePath == "" {
		var err error
		filePath, err = findLatestFile(cfg.Paths.DownloadDirectory, audio.CleanedSuffix)
		if err != nil {
			return fmt.Errorf("no file specified and could not find latest: %w", err)
		}
	}

	publisher, destination, err := newPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	if publisher == nil {
		return fmt.Errorf("no publish target configured; set publish.target to drive or s3")
	}

	return RunUploadWithDependencies(ctx, publisher, destination, filePath, os.Stdout)
}

// findLatestFile returns the newest regular file in dir whose name ends in suffix.
func findLatestFile(dir, suffix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("cannot read download directory: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = path, info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no %s files found in %s", suffix, dir)
	}
	return newest, nil
}

// RunUploadWithDependencies runs the upload command with injected dependencies (for testing)
func RunUploadWithDependencies(
	ctx context.Context,
	publisher distribution.Publisher,
	destination string,
	filePath string,
	output OutputWriter,
) error {
	service := appdist.NewUploadService(publisher, destination, output)

	fmt.Fprintf(output, "Uploading: %s...\n", filepath.Base(filePath))
	result, err := service.Upload(ctx, filePath)
	if err != nil {
		return audio.NewStageError(audio.StagePublish, err)
	}

	size := "unknown size"
	if result.Size > 0 {
		size = humanize.Bytes(uint64(result.Size))
	}
	fmt.Fprintf(output, "Published %s (%s, id %s)\n", result.FileName, size, result.FileID)
	fmt.Fprintf(output, "Link: %s\n", result.ShareableURL)
	return nil
}
