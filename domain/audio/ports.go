package audio

import "context"

// MediaFetcher resolves a source reference and saves its best audio-only
// stream into destDir, creating the directory if needed.
// This is a port that can be implemented by different infrastructure adapters
type MediaFetcher interface {
	Fetch(ctx context.Context, ref SourceReference, destDir string) (*DownloadedAsset, error)
}

// AudioTranscoder decodes any supported container at inputPath and writes a
// mono, 44.1 kHz, 16-bit PCM waveform at outputPath
type AudioTranscoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// NoiseSuppressor estimates and attenuates noise in a mono sample sequence.
// The returned slice has the same length and unit as samples.
type NoiseSuppressor interface {
	Suppress(ctx context.Context, samples []float64, sampleRate int) ([]float64, error)
}

// WaveformCodec reads and writes uncompressed PCM waveform files
type WaveformCodec interface {
	// ReadFormat decodes only the header
	ReadFormat(path string) (WaveformFormat, error)

	// Read decodes header and all samples
	Read(path string) (*Waveform, error)

	// Write encodes w to path, replacing any existing file
	Write(path string, w *Waveform) error
}

// FileChecker abstracts file existence checks
type FileChecker interface {
	Exists(path string) bool
}
