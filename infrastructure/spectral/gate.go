// Package spectral implements a stationary spectral-gating noise suppressor.
//
// The noise profile is estimated from the signal itself: for every frequency
// bin the running mean and standard deviation of its level (dB) across all
// frames set a threshold. Bins under the threshold are attenuated, the binary
// mask is smoothed over time and frequency, and the signal is resynthesised
// chunk by chunk with weighted overlap-add.
package spectral

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"audioprep/domain/audio"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// ampFloor keeps silent bins finite in dB
	ampFloor = 1e-8
	// topDB limits how far below the loudest bin a level may sit
	topDB = 80.0
	// cancelCheckEvery is how many frames pass between context checks
	cancelCheckEvery = 256
	// defaultChunkFrames is how many frames are gated and resynthesised at once
	defaultChunkFrames = 256
)

// Config holds the spectral gate parameters
type Config struct {
	NFFT             int     `yaml:"n_fft"`               // frame length in samples
	NStdThresh       float64 `yaml:"n_std_thresh"`        // standard deviations above the mean a bin must exceed to count as signal
	PropDecrease     float64 `yaml:"prop_decrease"`       // 1.0 removes gated bins entirely, 0.0 leaves the signal untouched
	FreqMaskSmoothHz float64 `yaml:"freq_mask_smooth_hz"` // mask smoothing span across frequency
	TimeMaskSmoothMs float64 `yaml:"time_mask_smooth_ms"` // mask smoothing span across time
}

// DefaultConfig returns parameters matching common stationary noise-reduction defaults
func DefaultConfig() Config {
	return Config{
		NFFT:             1024,
		NStdThresh:       1.5,
		PropDecrease:     1.0,
		FreqMaskSmoothHz: 500,
		TimeMaskSmoothMs: 50,
	}
}

// Validate checks the parameters
func (c Config) Validate() error {
	if c.NFFT < 16 || c.NFFT%4 != 0 {
		return fmt.Errorf("n_fft must be a multiple of 4 and at least 16, got %d", c.NFFT)
	}
	if c.NStdThresh < 0 {
		return fmt.Errorf("n_std_thresh must not be negative, got %g", c.NStdThresh)
	}
	if c.PropDecrease < 0 || c.PropDecrease > 1 {
		return fmt.Errorf("prop_decrease must be within [0, 1], got %g", c.PropDecrease)
	}
	if c.FreqMaskSmoothHz < 0 || c.TimeMaskSmoothMs < 0 {
		return fmt.Errorf("mask smoothing spans must not be negative")
	}
	return nil
}

// Gate implements audio.NoiseSuppressor
type Gate struct {
	cfg    Config
	hop    int
	window []float64
	fft    *fourier.FFT

	chunkFrames int
}

// NewGate creates a spectral gate
func NewGate(cfg Config) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Gate{
		cfg:    cfg,
		hop:    cfg.NFFT / 4,
		window: hann(cfg.NFFT),
		fft:    fourier.NewFFT(cfg.NFFT),

		chunkFrames: defaultChunkFrames,
	}, nil
}

// Suppress implements audio.NoiseSuppressor.
// The spectrum is streamed three times (level peak, per-bin statistics,
// gating) so memory is bounded by the chunk size rather than the input length.
func (g *Gate) Suppress(ctx context.Context, samples []float64, sampleRate int) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if len(samples) == 0 {
		return []float64{}, nil
	}

	frames := frameCount(len(samples), g.cfg.NFFT, g.hop)
	floor, err := g.levelFloor(ctx, samples, frames)
	if err != nil {
		return nil, err
	}
	threshold, err := g.noiseThreshold(ctx, samples, frames, floor)
	if err != nil {
		return nil, err
	}

	freqRadius, timeRadius := g.smoothingRadii(sampleRate)
	return g.resynthesise(ctx, samples, frames, gateParams{
		floor:      floor,
		threshold:  threshold,
		timeRadius: timeRadius,
		freqRadius: freqRadius,
	})
}

type gateParams struct {
	floor      float64
	threshold  []float64
	timeRadius int
	freqRadius int
}

// analyse windows frame t of the signal, zero-padded by NFFT/2 on both
// sides, and writes its spectrum into dst
func (g *Gate) analyse(samples []float64, t int, buf []float64, dst []complex128) []complex128 {
	offset := t*g.hop - g.cfg.NFFT/2
	for i := range buf {
		j := offset + i
		if j < 0 || j >= len(samples) {
			buf[i] = 0
			continue
		}
		buf[i] = samples[j] * g.window[i]
	}
	return g.fft.Coefficients(dst, buf)
}

// eachFrame streams the spectrum one frame at a time. coeffs is reused
// between calls.
func (g *Gate) eachFrame(ctx context.Context, samples []float64, frames int, fn func(coeffs []complex128)) error {
	buf := make([]float64, g.cfg.NFFT)
	coeffs := make([]complex128, g.bins())
	for t := 0; t < frames; t++ {
		if t%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		fn(g.analyse(samples, t, buf, coeffs))
	}
	return nil
}

// levelFloor returns the lowest level a bin may sit at: topDB below the loudest bin
func (g *Gate) levelFloor(ctx context.Context, samples []float64, frames int) (float64, error) {
	peak := math.Inf(-1)
	err := g.eachFrame(ctx, samples, frames, func(coeffs []complex128) {
		for _, c := range coeffs {
			peak = math.Max(peak, levelDB(c))
		}
	})
	return peak - topDB, err
}

// noiseThreshold returns mean + nStd*std of every bin's level across frames
func (g *Gate) noiseThreshold(ctx context.Context, samples []float64, frames int, floor float64) ([]float64, error) {
	stats := newBinStats(g.bins())
	levels := make([]float64, g.bins())
	err := g.eachFrame(ctx, samples, frames, func(coeffs []complex128) {
		for f, c := range coeffs {
			levels[f] = math.Max(levelDB(c), floor)
		}
		stats.push(levels)
	})
	if err != nil {
		return nil, err
	}
	return stats.threshold(g.cfg.NStdThresh), nil
}

// resynthesise gates the spectrum in chunks of frames and rebuilds the signal
// by weighted overlap-add. Each chunk is analysed with timeRadius extra frames
// on both sides so the time smoothing sees the same neighbours it would over
// the whole signal.
func (g *Gate) resynthesise(ctx context.Context, samples []float64, frames int, p gateParams) ([]float64, error) {
	n := g.cfg.NFFT
	bins := g.bins()
	chunk := min(g.chunkFrames, frames)
	span := min(chunk+2*p.timeRadius, frames)

	coeffs := make([][]complex128, span)
	mask := make([][]float64, span)
	for i := range coeffs {
		coeffs[i] = make([]complex128, bins)
		mask[i] = make([]float64, bins)
	}
	row := make([]float64, bins)
	smoothed := make([]float64, bins)
	buf := make([]float64, n)
	out := make([]float64, len(samples))
	keep := 1 - g.cfg.PropDecrease

	for start := 0; start < frames; start += chunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+chunk, frames)
		lo := max(start-p.timeRadius, 0)
		hi := min(end+p.timeRadius, frames)

		for t := lo; t < hi; t++ {
			frame := g.analyse(samples, t, buf, coeffs[t-lo])
			for f, c := range frame {
				mask[t-lo][f] = 0
				if math.Max(levelDB(c), p.floor) > p.threshold[f] {
					mask[t-lo][f] = 1
				}
			}
		}

		for t := start; t < end; t++ {
			timeAverage(row, mask[:hi-lo], t-lo, p.timeRadius)
			triangularAverage(smoothed, row, p.freqRadius)

			frame := coeffs[t-lo]
			for f := range frame {
				frame[f] *= complex(smoothed[f]*g.cfg.PropDecrease+keep, 0)
			}
			// Sequence is unnormalized; scale by 1/n
			g.fft.Sequence(buf, frame)
			offset := t*g.hop - n/2
			for i := 0; i < n; i++ {
				j := offset + i
				if j < 0 || j >= len(out) {
					continue
				}
				out[j] += buf[i] / float64(n) * g.window[i]
			}
		}
	}

	for j := range out {
		if w := g.overlapNorm(j+n/2, frames); w > 1e-10 {
			out[j] /= w
		} else {
			out[j] = 0
		}
	}
	return out, nil
}

// overlapNorm is the summed squared window over every frame covering padded
// position p
func (g *Gate) overlapNorm(p, frames int) float64 {
	first := 0
	if p >= g.cfg.NFFT {
		first = (p-g.cfg.NFFT)/g.hop + 1
	}
	last := min(p/g.hop, frames-1)

	var sum float64
	for t := first; t <= last; t++ {
		w := g.window[p-t*g.hop]
		sum += w * w
	}
	return sum
}

func (g *Gate) bins() int {
	return g.cfg.NFFT/2 + 1
}

func (g *Gate) smoothingRadii(sampleRate int) (freq, time int) {
	binHz := float64(sampleRate) / float64(g.cfg.NFFT)
	hopMs := float64(g.hop) / float64(sampleRate) * 1000
	freq = int(math.Round(g.cfg.FreqMaskSmoothHz / binHz / 2))
	time = int(math.Round(g.cfg.TimeMaskSmoothMs / hopMs / 2))
	return freq, time
}

// frameCount returns the number of hops needed to cover length samples plus
// NFFT/2 padding on both sides
func frameCount(length, n, hop int) int {
	padded := length + n
	if padded <= n {
		return 1
	}
	return 1 + (padded-n+hop-1)/hop
}

// hann returns a periodic Hann window
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func levelDB(c complex128) float64 {
	return 20 * math.Log10(math.Max(cmplx.Abs(c), ampFloor))
}

// binStats accumulates per-bin mean and variance with Welford's method
type binStats struct {
	n    float64
	mean []float64
	m2   []float64
}

func newBinStats(bins int) *binStats {
	return &binStats{mean: make([]float64, bins), m2: make([]float64, bins)}
}

func (s *binStats) push(levels []float64) {
	s.n++
	for f, x := range levels {
		d := x - s.mean[f]
		s.mean[f] += d / s.n
		s.m2[f] += d * (x - s.mean[f])
	}
}

func (s *binStats) threshold(nStd float64) []float64 {
	out := make([]float64, len(s.mean))
	for f := range out {
		var std float64
		if s.n > 0 {
			std = math.Sqrt(s.m2[f] / s.n)
		}
		out[f] = s.mean[f] + nStd*std
	}
	return out
}

// timeAverage writes into dst the triangular average of mask rows around row
// i. Rows missing from mask are skipped and the weights renormalized, which
// matches the signal edges because callers only trim at frame 0 and the last
// frame.
func timeAverage(dst []float64, mask [][]float64, i, radius int) {
	for f := range dst {
		dst[f] = 0
	}
	var weights float64
	for d := -radius; d <= radius; d++ {
		j := i + d
		if j < 0 || j >= len(mask) {
			continue
		}
		w := float64(radius + 1 - abs(d))
		weights += w
		for f, m := range mask[j] {
			dst[f] += m * w
		}
	}
	for f := range dst {
		dst[f] /= weights
	}
}

// triangularAverage writes the triangular moving average of xs into dst.
// Cells near the edges are normalized over the neighbours that exist.
func triangularAverage(dst, xs []float64, radius int) {
	for i := range xs {
		var sum, weights float64
		for d := -radius; d <= radius; d++ {
			j := i + d
			if j < 0 || j >= len(xs) {
				continue
			}
			w := float64(radius + 1 - abs(d))
			sum += xs[j] * w
			weights += w
		}
		dst[i] = sum / weights
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Ensure Gate implements audio.NoiseSuppressor
var _ audio.NoiseSuppressor = (*Gate)(nil)
