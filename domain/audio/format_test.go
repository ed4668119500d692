package audio

import (
	"errors"
	"testing"
)

func TestWaveformFormat_Validate(t *testing.T) {
	if err := NormalizedFormat.Validate(NormalizedFormat); err != nil {
		t.Errorf("Validate() on identical format = %v", err)
	}

	stereo := WaveformFormat{SampleRate: 44100, Channels: 2, BitDepth: 16}
	err := stereo.Validate(NormalizedFormat)
	if !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("Validate() error = %v, want ErrFormatMismatch", err)
	}
}

func TestWaveformFormat_SampleWidth(t *testing.T) {
	if got := NormalizedFormat.SampleWidth(); got != 2 {
		t.Errorf("SampleWidth() = %d, want 2", got)
	}
}

func TestWaveform_Frames(t *testing.T) {
	w := &Waveform{
		Format:  WaveformFormat{SampleRate: 8000, Channels: 2, BitDepth: 16},
		Samples: []int{1, 2, 3, 4, 5, 6},
	}
	if got := w.Frames(); got != 3 {
		t.Errorf("Frames() = %d, want 3", got)
	}

	empty := &Waveform{}
	if got := empty.Frames(); got != 0 {
		t.Errorf("Frames() on zero format = %d, want 0", got)
	}
}
