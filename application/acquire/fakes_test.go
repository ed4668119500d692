package acquire

import (
	"context"
	"fmt"
	"os"
	"sync"

	"audioprep/domain/audio"
)

type fakeFetcher struct {
	asset *audio.DownloadedAsset
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, ref audio.SourceReference, destDir string) (*audio.DownloadedAsset, error) {
	f.calls++
	return f.asset, f.err
}

type fakeChecker struct {
	existing map[string]bool
}

func (c *fakeChecker) Exists(path string) bool {
	return c.existing[path]
}

// fakeTranscoder writes a placeholder file at the output path
type fakeTranscoder struct {
	err     error
	outputs []string
}

func (t *fakeTranscoder) Transcode(ctx context.Context, input, output string) error {
	t.outputs = append(t.outputs, output)
	if err := os.WriteFile(output, []byte("pcm"), 0644); err != nil {
		return err
	}
	return t.err
}

// memCodec keeps waveforms in memory keyed by path, and mirrors writes to
// disk so existence checks see them
type memCodec struct {
	mu       sync.Mutex
	files    map[string]*audio.Waveform
	formats  map[string]audio.WaveformFormat
	writeErr error
}

func newMemCodec() *memCodec {
	return &memCodec{
		files:   map[string]*audio.Waveform{},
		formats: map[string]audio.WaveformFormat{},
	}
}

func (c *memCodec) ReadFormat(path string) (audio.WaveformFormat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.formats[path]; ok {
		return f, nil
	}
	if w, ok := c.files[path]; ok {
		return w.Format, nil
	}
	return audio.NormalizedFormat, nil
}

func (c *memCodec) Read(path string) (*audio.Waveform, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return w, nil
}

func (c *memCodec) Write(path string, w *audio.Waveform) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.files[path] = w
	return nil
}

// scaleSuppressor multiplies every sample by factor
type scaleSuppressor struct {
	factor float64
	err    error
	trim   int
	got    []float64
}

func (s *scaleSuppressor) Suppress(ctx context.Context, samples []float64, sampleRate int) ([]float64, error) {
	s.got = samples
	if s.err != nil {
		return nil, s.err
	}
	out := make([]float64, len(samples)-s.trim)
	for i := range out {
		out[i] = samples[i] * s.factor
	}
	return out, nil
}
