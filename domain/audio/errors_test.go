package audio

import (
	"errors"
	"fmt"
	"testing"
)

func TestStageError_Is(t *testing.T) {
	err := NewStageError(StageTranscode, fmt.Errorf("ffmpeg exited 1"))

	if !errors.Is(err, ErrTranscode) {
		t.Error("expected errors.Is(err, ErrTranscode)")
	}
	if errors.Is(err, ErrFetch) {
		t.Error("transcode failure should not match ErrFetch")
	}
	if got := FailedStage(err); got != StageTranscode {
		t.Errorf("FailedStage() = %q, want %q", got, StageTranscode)
	}
}

func TestStageError_WrappedCause(t *testing.T) {
	err := NewStageError(StageFetch, ErrNoAudioStream)
	if !errors.Is(err, ErrNoAudioStream) {
		t.Error("expected cause to be reachable")
	}
	if err.Error() != "fetch stage: no audio streams available for this video" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNewStageError_Nil(t *testing.T) {
	if err := NewStageError(StageDenoise, nil); err != nil {
		t.Errorf("NewStageError(nil) = %v, want nil", err)
	}
	if got := FailedStage(errors.New("plain")); got != "" {
		t.Errorf("FailedStage(plain) = %q, want empty", got)
	}
}

func TestNewSourceReference(t *testing.T) {
	ref, err := NewSourceReference("  https://www.youtube.com/shorts/kCyX3MeHBaw ")
	if err != nil {
		t.Fatalf("NewSourceReference() error = %v", err)
	}
	if ref.String() != "https://www.youtube.com/shorts/kCyX3MeHBaw" {
		t.Errorf("ref = %q", ref)
	}

	if _, err := NewSourceReference("   "); !errors.Is(err, ErrFetch) {
		t.Errorf("empty reference error = %v, want ErrFetch", err)
	}
}
