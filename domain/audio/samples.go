package audio

import "math"

// 16-bit signed sample range
const (
	MinInt16Sample = math.MinInt16
	MaxInt16Sample = math.MaxInt16
)

// StrideDownmix reduces interleaved multi-channel samples to one channel by
// keeping every Nth sample, N being the channel count. For stereo this is
// the left channel; the other channels are discarded, not averaged.
func StrideDownmix(samples []int, channels int) []int {
	if channels <= 1 {
		return samples
	}
	out := make([]int, 0, (len(samples)+channels-1)/channels)
	for i := 0; i < len(samples); i += channels {
		out = append(out, samples[i])
	}
	return out
}

// ToFloat converts integer samples to float64 without rescaling
func ToFloat(samples []int) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}

// ClipToInt16 converts a transformed sample back to the 16-bit range.
// The value is truncated toward zero and then saturated, so 40000 becomes
// 32767 and -40000 becomes -32768. NaN maps to 0.
func ClipToInt16(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= MaxInt16Sample:
		return MaxInt16Sample
	case v <= MinInt16Sample:
		return MinInt16Sample
	}
	return int(math.Trunc(v))
}

// ClipAllToInt16 applies ClipToInt16 to every sample
func ClipAllToInt16(samples []float64) []int {
	out := make([]int, len(samples))
	for i, v := range samples {
		out[i] = ClipToInt16(v)
	}
	return out
}
