package acquire

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"audioprep/domain/audio"
	"audioprep/infrastructure/logging"
)

// DenoiseResult contains the result of a noise-reduction operation
type DenoiseResult struct {
	OutputPath    string
	SampleRate    int
	InputChannels int
	InputFrames   int
	OutputFrames  int
	Elapsed       time.Duration
}

// Length is the playing time of the cleaned waveform
func (r *DenoiseResult) Length() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(r.OutputFrames) * time.Second / time.Duration(r.SampleRate)
}

// DenoiseService removes stationary background noise from a waveform
type DenoiseService struct {
	suppressor audio.NoiseSuppressor
	codec      audio.WaveformCodec
	logger     *zap.Logger
}

// NewDenoiseService creates a new DenoiseService
func NewDenoiseService(suppressor audio.NoiseSuppressor, codec audio.WaveformCodec, logger *zap.Logger) *DenoiseService {
	return &DenoiseService{
		suppressor: suppressor,
		codec:      codec,
		logger:     logging.OrNop(logger),
	}
}

// Denoise reads input, keeps its first channel, suppresses noise and writes
// a mono waveform at the original rate and width to output
func (s *DenoiseService) Denoise(ctx context.Context, input, output string) (*DenoiseResult, error) {
	start := time.Now()

	w, err := s.codec.Read(input)
	if err != nil {
		return nil, audio.NewStageError(audio.StageDenoise, err)
	}

	if w.Format.BitDepth != audio.NormalizedBitDepth {
		return nil, audio.NewStageError(audio.StageDenoise,
			fmt.Errorf("%w: %d-bit", audio.ErrUnsupportedSampleWidth, w.Format.BitDepth))
	}

	mono := audio.StrideDownmix(w.Samples, w.Format.Channels)

	cleaned, err := s.suppressor.Suppress(ctx, audio.ToFloat(mono), w.Format.SampleRate)
	if err != nil {
		return nil, audio.NewStageError(audio.StageDenoise, err)
	}
	if len(cleaned) != len(mono) {
		return nil, audio.NewStageError(audio.StageDenoise,
			fmt.Errorf("suppressor returned %d samples for %d", len(cleaned), len(mono)))
	}

	out := &audio.Waveform{
		Format: audio.WaveformFormat{
			SampleRate: w.Format.SampleRate,
			Channels:   1,
			BitDepth:   w.Format.BitDepth,
		},
		Samples: audio.ClipAllToInt16(cleaned),
	}
	if err := s.codec.Write(output, out); err != nil {
		return nil, audio.NewStageError(audio.StageDenoise, err)
	}

	result := &DenoiseResult{
		OutputPath:    output,
		SampleRate:    w.Format.SampleRate,
		InputChannels: w.Format.Channels,
		InputFrames:   w.Frames(),
		OutputFrames:  out.Frames(),
		Elapsed:       time.Since(start),
	}

	s.logger.Info("reduced noise",
		zap.String("stage", string(audio.StageDenoise)),
		zap.String("path", output),
		zap.Int("frames", result.OutputFrames),
		zap.String("size", humanize.Bytes(uint64(result.OutputFrames*out.Format.SampleWidth()))),
		zap.Duration("elapsed", result.Elapsed),
	)

	return result, nil
}
