package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"audioprep/application/acquire"
	"audioprep/domain/audio"
	"audioprep/infrastructure/wavfile"
)

var (
	denoiseSourcePath string
	denoiseOutputPath string
)

var denoiseCmd = &cobra.Command{
	Use:   "denoise",
	Short: "Reduce stationary background noise in a WAV file",
	Long: `Reduce stationary background noise in a 16-bit PCM WAV file.

Multi-channel input keeps only its first channel. The result is a mono WAV
at the source sample rate. The output defaults to <source>_clean.wav.

Noise reduction settings come from the denoise section of the config.

Example:
  audioprep denoise --source "downloads/Lecture 1.wav"
  audioprep denoise --source talk.wav --output talk-clean.wav`,
	RunE: runDenoise,
}

func init() {
	rootCmd.AddCommand(denoiseCmd)
	denoiseCmd.Flags().StringVar(&denoiseSourcePath, "source", "", "Path to source WAV file (required)")
	denoiseCmd.Flags().StringVar(&denoiseOutputPath, "output", "", "Output WAV path (defaults to <source>_clean.wav)")
	denoiseCmd.MarkFlagRequired("source")
}

func runDenoise(cmd *cobra.Command, args []string) error {
	gate, err := newSuppressor(GetConfig())
	if err != nil {
		return err
	}

	return RunDenoiseWithDependencies(
		cmd.Context(),
		gate,
		wavfile.NewCodec(),
		GetLogger(),
		denoiseSourcePath,
		denoiseOutputPath,
		os.Stdout,
	)
}

// RunDenoiseWithDependencies runs the denoise command with injected dependencies (for testing)
func RunDenoiseWithDependencies(
	ctx context.Context,
	suppressor audio.NoiseSuppressor,
	codec audio.WaveformCodec,
	logger *zap.Logger,
	sourcePath string,
	outputPath string,
	output OutputWriter,
) error {
	if outputPath == "" {
		outputPath = audio.DeriveArtifactPaths(sourcePath).Cleaned
	}
	if strings.EqualFold(outputPath, sourcePath) {
		return fmt.Errorf("output must differ from source: %s", sourcePath)
	}

	service := acquire.NewDenoiseService(suppressor, codec, logger)

	fmt.Fprintf(output, "Reducing noise in %s...\n", sourcePath)

	result, err := service.Denoise(ctx, sourcePath, outputPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Successfully created: %s (%d frames at %d Hz)\n", result.OutputPath, result.OutputFrames, result.SampleRate)
	return nil
}
