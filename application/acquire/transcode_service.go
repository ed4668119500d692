package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"audioprep/domain/audio"
	"audioprep/infrastructure/logging"
)

// stagingSuffix marks the temporary output used when input and output collide
const stagingSuffix = ".partial"

// TranscodeResult contains the result of a transcode operation
type TranscodeResult struct {
	OutputPath string
	Format     audio.WaveformFormat
	Elapsed    time.Duration
}

// TranscodeService converts a downloaded asset into the normalized waveform
type TranscodeService struct {
	transcoder  audio.AudioTranscoder
	codec       audio.WaveformCodec
	fileChecker audio.FileChecker
	logger      *zap.Logger
}

// NewTranscodeService creates a new TranscodeService
func NewTranscodeService(transcoder audio.AudioTranscoder, codec audio.WaveformCodec, fileChecker audio.FileChecker, logger *zap.Logger) *TranscodeService {
	return &TranscodeService{
		transcoder:  transcoder,
		codec:       codec,
		fileChecker: fileChecker,
		logger:      logging.OrNop(logger),
	}
}

// Transcode writes a mono 44.1 kHz 16-bit waveform of input to output and
// verifies its header. On failure no output file is left behind.
func (s *TranscodeService) Transcode(ctx context.Context, input, output string) (*TranscodeResult, error) {
	start := time.Now()

	if !s.fileChecker.Exists(input) {
		return nil, audio.NewStageError(audio.StageTranscode, fmt.Errorf("source does not exist: %s", input))
	}

	target := output
	staged := filepath.Clean(input) == filepath.Clean(output)
	if staged {
		target = output + stagingSuffix
	}

	if err := s.transcoder.Transcode(ctx, input, target); err != nil {
		removeQuietly(target)
		return nil, audio.NewStageError(audio.StageTranscode, err)
	}

	format, err := s.codec.ReadFormat(target)
	if err == nil {
		err = format.Validate(audio.NormalizedFormat)
	}
	if err != nil {
		removeQuietly(target)
		return nil, audio.NewStageError(audio.StageTranscode, fmt.Errorf("verify output: %w", err))
	}

	if staged {
		if err := os.Rename(target, output); err != nil {
			removeQuietly(target)
			return nil, audio.NewStageError(audio.StageTranscode, fmt.Errorf("replace source: %w", err))
		}
	}

	elapsed := time.Since(start)
	s.logger.Info("normalized waveform",
		zap.String("stage", string(audio.StageTranscode)),
		zap.String("path", output),
		zap.Stringer("format", format),
		zap.Duration("elapsed", elapsed),
	)

	return &TranscodeResult{OutputPath: output, Format: format, Elapsed: elapsed}, nil
}

func removeQuietly(path string) {
	_ = os.Remove(path)
}
