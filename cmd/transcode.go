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
	"audioprep/infrastructure/wavfile"
)

var (
	transcodeSourcePath string
	transcodeOutputPath string
)

var transcodeCmd = &cobra.Command{
	Use:   "transcode",
	Short: "Convert an audio file to mono 44.1 kHz 16-bit WAV",
	Long: `Convert any audio file ffmpeg can read to a mono, 44.1 kHz, 16-bit PCM WAV.

The output defaults to the source path with its extension replaced by .wav.
If the source already is that path, it is replaced in place.

Example:
  audioprep transcode --source "downloads/Lecture 1.webm"
  audioprep transcode --source talk.m4a --output talk.wav`,
	RunE: runTranscode,
}

func init() {
	rootCmd.AddCommand(transcodeCmd)
	transcodeCmd.Flags().StringVar(&transcodeSourcePath, "source", "", "Path to source audio file (required)")
	transcodeCmd.Flags().StringVar(&transcodeOutputPath, "output", "", "Output WAV path (defaults to source with .wav extension)")
	transcodeCmd.MarkFlagRequired("source")
}

func runTranscode(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	return RunTranscodeWithDependencies(
		cmd.Context(),
		newTranscoder(cfg),
		wavfile.NewCodec(),
		filesystem.NewChecker(),
		GetLogger(),
		transcodeSourcePath,
		transcodeOutputPath,
		os.Stdout,
	)
}

// RunTranscodeWithDependencies runs the transcode command with injected dependencies (for testing)
func RunTranscodeWithDependencies(
	ctx context.Context,
	transcoder audio.AudioTranscoder,
	codec audio.WaveformCodec,
	fileChecker audio.FileChecker,
	logger *zap.Logger,
	sourcePath string,
	outputPath string,
	output OutputWriter,
) error {
	if err := verifyTranscoder(ctx, transcoder); err != nil {
		return err
	}

	if outputPath == "" {
		outputPath = audio.DeriveArtifactPaths(sourcePath).Normalized
	}

	service := acquire.NewTranscodeService(transcoder, codec, fileChecker, logger)

	fmt.Fprintf(output, "Normalizing %s...\n", sourcePath)

	result, err := service.Transcode(ctx, sourcePath, outputPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Successfully created: %s (%s)\n", result.OutputPath, result.Format)
	return nil
}
