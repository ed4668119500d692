package ffmpeg

import (
	"context"
	"fmt"
	"strconv"

	"audioprep/domain/audio"
)

// PCM output settings
const (
	PCMCodec         = "pcm_s16le"
	WaveMuxer        = "wav"
	DefaultFFmpegCmd = "ffmpeg"
)

// Transcoder implements audio.AudioTranscoder using ffmpeg
type Transcoder struct {
	ffmpegPath string
	runner     CommandRunner
}

// TranscoderOption is a functional option for configuring Transcoder
type TranscoderOption func(*Transcoder)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) TranscoderOption {
	return func(t *Transcoder) {
		if path != "" {
			t.ffmpegPath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) TranscoderOption {
	return func(t *Transcoder) {
		t.runner = runner
	}
}

// NewTranscoder creates a new FFmpeg-based transcoder
func NewTranscoder(opts ...TranscoderOption) *Transcoder {
	t := &Transcoder{
		ffmpegPath: DefaultFFmpegCmd,
		runner:     &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// BuildArgs returns the ffmpeg arguments that downmix to mono, resample to
// 44.1 kHz and encode 16-bit PCM
func (t *Transcoder) BuildArgs(inputPath, outputPath string) []string {
	return []string{
		"-nostdin",
		"-i", inputPath,
		"-vn",                                         // No video
		"-ac", strconv.Itoa(audio.NormalizedChannels), // Mono
		"-ar", strconv.Itoa(audio.NormalizedSampleRate), // 44.1kHz
		"-c:a", PCMCodec, // 16-bit PCM
		"-f", WaveMuxer, // Output may not end in .wav
		"-y", // Overwrite output file if it exists
		outputPath,
	}
}

// Transcode implements audio.AudioTranscoder
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	if err := t.runner.Run(ctx, t.ffmpegPath, t.BuildArgs(inputPath, outputPath)...); err != nil {
		return fmt.Errorf("ffmpeg transcode failed: %w", err)
	}
	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (t *Transcoder) VerifyInstalled(ctx context.Context) error {
	_, err := t.runner.Output(ctx, t.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Ensure Transcoder implements audio.AudioTranscoder
var _ audio.AudioTranscoder = (*Transcoder)(nil)
