// Package wavfile reads and writes RIFF/WAVE PCM files with go-audio/wav.
package wavfile

import (
	"fmt"
	"os"

	"audioprep/domain/audio"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// pcmFormat is the WAVE_FORMAT_PCM tag in the fmt chunk
const pcmFormat = 1

// Codec implements audio.WaveformCodec
type Codec struct{}

// NewCodec creates a new waveform codec
func NewCodec() *Codec {
	return &Codec{}
}

// ReadFormat decodes only the header of the waveform at path
func (c *Codec) ReadFormat(path string) (audio.WaveformFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return audio.WaveformFormat{}, fmt.Errorf("failed to open waveform: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return audio.WaveformFormat{}, fmt.Errorf("%s is not a valid waveform file", path)
	}
	return formatOf(d), nil
}

// Read decodes header and samples of the waveform at path
func (c *Codec) Read(path string) (*audio.Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open waveform: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid waveform file", path)
	}
	if d.WavAudioFormat != pcmFormat {
		return nil, fmt.Errorf("%s: audio format %d is not PCM", path, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode samples: %w", err)
	}

	return &audio.Waveform{
		Format:  formatOf(d),
		Samples: buf.Data,
	}, nil
}

// Write encodes w at path, truncating any existing file.
// A failed write removes the partial file.
func (c *Codec) Write(path string, w *audio.Waveform) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create waveform: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close waveform: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	enc := wav.NewEncoder(f, w.Format.SampleRate, w.Format.BitDepth, w.Format.Channels, pcmFormat)

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: w.Format.Channels,
			SampleRate:  w.Format.SampleRate,
		},
		Data:           w.Samples,
		SourceBitDepth: w.Format.BitDepth,
	}
	if buf.Data == nil {
		buf.Data = []int{}
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize waveform header: %w", err)
	}
	return nil
}

func formatOf(d *wav.Decoder) audio.WaveformFormat {
	return audio.WaveformFormat{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}
}

// Ensure Codec implements audio.WaveformCodec
var _ audio.WaveformCodec = (*Codec)(nil)
