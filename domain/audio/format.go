package audio

import "fmt"

// Normalized waveform parameters shared by the transcode and denoise stages
const (
	NormalizedSampleRate = 44100
	NormalizedChannels   = 1
	NormalizedBitDepth   = 16
)

// WaveformFormat describes the header of an uncompressed PCM waveform file
type WaveformFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// NormalizedFormat is the format every transcoded waveform must have
var NormalizedFormat = WaveformFormat{
	SampleRate: NormalizedSampleRate,
	Channels:   NormalizedChannels,
	BitDepth:   NormalizedBitDepth,
}

// SampleWidth returns the size of one sample in bytes
func (f WaveformFormat) SampleWidth() int {
	return f.BitDepth / 8
}

// String renders the format as e.g. "44100 Hz, 1 ch, 16-bit"
func (f WaveformFormat) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d-bit", f.SampleRate, f.Channels, f.BitDepth)
}

// Validate returns ErrFormatMismatch if f differs from want
func (f WaveformFormat) Validate(want WaveformFormat) error {
	if f != want {
		return fmt.Errorf("%w: got %s, want %s", ErrFormatMismatch, f, want)
	}
	return nil
}

// Waveform is a decoded waveform file held in memory.
// Samples are interleaved when Channels > 1.
type Waveform struct {
	Format  WaveformFormat
	Samples []int
}

// Frames returns the number of frames (one sample per channel)
func (w *Waveform) Frames() int {
	if w.Format.Channels <= 0 {
		return 0
	}
	return len(w.Samples) / w.Format.Channels
}
