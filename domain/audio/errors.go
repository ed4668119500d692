package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch is returned when a source cannot be resolved or saved
	ErrFetch = errors.New("fetch failed")

	// ErrNoAudioStream is returned when the source has no audio-only stream
	ErrNoAudioStream = errors.New("no audio streams available for this video")

	// ErrTranscode is returned when decoding or encoding fails
	ErrTranscode = errors.New("transcode failed")

	// ErrDenoise is returned when the noise-reduction stage fails
	ErrDenoise = errors.New("noise reduction failed")

	// ErrPublish is returned when the cleaned waveform cannot be published
	ErrPublish = errors.New("publish failed")

	// ErrFormatMismatch is returned when a waveform header is not the expected format
	ErrFormatMismatch = errors.New("unexpected waveform format")

	// ErrUnsupportedSampleWidth is returned for waveforms that are not 16-bit PCM
	ErrUnsupportedSampleWidth = errors.New("unsupported sample width")
)

// Stage names a pipeline step
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageTranscode Stage = "transcode"
	StageDenoise   Stage = "denoise"
	StagePublish   Stage = "publish"
	StageNotify    Stage = "notify"
)

// stageSentinels maps each stage to the sentinel its failures wrap
var stageSentinels = map[Stage]error{
	StageFetch:     ErrFetch,
	StageTranscode: ErrTranscode,
	StageDenoise:   ErrDenoise,
	StagePublish:   ErrPublish,
}

// StageError records which pipeline stage failed and why
type StageError struct {
	Stage Stage
	Err   error
}

// NewStageError wraps err for stage. A nil err yields nil.
func NewStageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the stage sentinel even when Err does not wrap it
func (e *StageError) Is(target error) bool {
	sentinel, ok := stageSentinels[e.Stage]
	return ok && target == sentinel
}

// FailedStage returns the stage recorded in err, or "" if err is not a StageError
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
