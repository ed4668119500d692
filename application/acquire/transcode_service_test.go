package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"audioprep/domain/audio"
	"audioprep/infrastructure/filesystem"
)

func writeSource(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("compressed"), 0644); err != nil {
		t.Fatal(err)
	}
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be absent, stat err = %v", path, err)
	}
}

func TestTranscodeService_Transcode(t *testing.T) {
	t.Run("writes and verifies normalized output", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "talk.webm")
		out := filepath.Join(dir, "talk.wav")
		writeSource(t, in)

		transcoder := &fakeTranscoder{}
		svc := NewTranscodeService(transcoder, newMemCodec(), filesystem.NewChecker(), nil)

		result, err := svc.Transcode(context.Background(), in, out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.OutputPath != out || result.Format != audio.NormalizedFormat {
			t.Errorf("unexpected result %+v", result)
		}
		if len(transcoder.outputs) != 1 || transcoder.outputs[0] != out {
			t.Errorf("transcoder outputs = %v", transcoder.outputs)
		}
		if _, err := os.Stat(out); err != nil {
			t.Errorf("output not written: %v", err)
		}
	})

	t.Run("missing input", func(t *testing.T) {
		dir := t.TempDir()
		transcoder := &fakeTranscoder{}
		svc := NewTranscodeService(transcoder, newMemCodec(), filesystem.NewChecker(), nil)

		_, err := svc.Transcode(context.Background(), filepath.Join(dir, "nope.webm"), filepath.Join(dir, "nope.wav"))
		if !errors.Is(err, audio.ErrTranscode) {
			t.Fatalf("expected ErrTranscode, got %v", err)
		}
		if len(transcoder.outputs) != 0 {
			t.Errorf("transcoder should not run, got %v", transcoder.outputs)
		}
	})

	t.Run("in place input is staged and replaced", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "talk.wav")
		writeSource(t, path)

		transcoder := &fakeTranscoder{}
		svc := NewTranscodeService(transcoder, newMemCodec(), filesystem.NewChecker(), nil)

		if _, err := svc.Transcode(context.Background(), path, path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(transcoder.outputs) != 1 || transcoder.outputs[0] != path+stagingSuffix {
			t.Errorf("expected staged output, got %v", transcoder.outputs)
		}
		assertNoFile(t, path+stagingSuffix)

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "pcm" {
			t.Errorf("content = %q, want pcm", data)
		}
	})

	t.Run("transcoder failure removes partial output", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "talk.webm")
		out := filepath.Join(dir, "talk.wav")
		writeSource(t, in)

		transcoder := &fakeTranscoder{err: errors.New("ffmpeg transcode failed: exit status 1")}
		svc := NewTranscodeService(transcoder, newMemCodec(), filesystem.NewChecker(), nil)

		_, err := svc.Transcode(context.Background(), in, out)
		if stage := audio.FailedStage(err); stage != audio.StageTranscode {
			t.Fatalf("stage = %v, err = %v", stage, err)
		}
		assertNoFile(t, out)
	})

	t.Run("wrong output format is rejected", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "talk.webm")
		out := filepath.Join(dir, "talk.wav")
		writeSource(t, in)

		codec := newMemCodec()
		codec.formats[out] = audio.WaveformFormat{SampleRate: 48000, Channels: 2, BitDepth: 16}
		svc := NewTranscodeService(&fakeTranscoder{}, codec, filesystem.NewChecker(), nil)

		_, err := svc.Transcode(context.Background(), in, out)
		if !errors.Is(err, audio.ErrTranscode) || !errors.Is(err, audio.ErrFormatMismatch) {
			t.Fatalf("expected ErrTranscode wrapping ErrFormatMismatch, got %v", err)
		}
		assertNoFile(t, out)
	})
}
