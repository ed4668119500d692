package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockRunner records invocations
type mockRunner struct {
	calls     [][]string
	runErr    error
	outputErr error
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) error {
	m.calls = append(m.calls, append([]string{name}, args...))
	return m.runErr
}

func (m *mockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	if m.outputErr != nil {
		return nil, m.outputErr
	}
	return []byte("ffmpeg version 6.1"), nil
}

func TestTranscoder_BuildArgs(t *testing.T) {
	tr := NewTranscoder()
	args := tr.BuildArgs("/in/clip.webm", "/in/clip.wav")

	expected := []string{
		"-nostdin",
		"-i", "/in/clip.webm",
		"-vn",
		"-ac", "1",
		"-ar", "44100",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		"-y",
		"/in/clip.wav",
	}

	if len(args) != len(expected) {
		t.Fatalf("expected %d args, got %d: %v", len(expected), len(args), args)
	}
	for i := range expected {
		if args[i] != expected[i] {
			t.Errorf("arg %d: expected %q, got %q", i, expected[i], args[i])
		}
	}
}

func TestTranscoder_Transcode(t *testing.T) {
	runner := &mockRunner{}
	tr := NewTranscoder(WithCommandRunner(runner), WithFFmpegPath("/opt/ffmpeg"))

	if err := tr.Transcode(context.Background(), "a.m4a", "a.wav"); err != nil {
		t.Fatalf("Transcode() error = %v", err)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(runner.calls))
	}
	if runner.calls[0][0] != "/opt/ffmpeg" {
		t.Errorf("expected custom ffmpeg path, got %q", runner.calls[0][0])
	}
}

func TestTranscoder_TranscodeFailure(t *testing.T) {
	runner := &mockRunner{runErr: errors.New("exit status 1: Invalid data found when processing input")}
	tr := NewTranscoder(WithCommandRunner(runner))

	err := tr.Transcode(context.Background(), "bad.bin", "bad.wav")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "ffmpeg transcode failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTranscoder_VerifyInstalled(t *testing.T) {
	ok := NewTranscoder(WithCommandRunner(&mockRunner{}))
	if err := ok.VerifyInstalled(context.Background()); err != nil {
		t.Errorf("VerifyInstalled() error = %v", err)
	}

	missing := NewTranscoder(WithCommandRunner(&mockRunner{outputErr: errors.New("executable file not found")}))
	if err := missing.VerifyInstalled(context.Background()); err == nil {
		t.Error("expected error when ffmpeg is missing")
	}
}

func TestWithFFmpegPath_EmptyKeepsDefault(t *testing.T) {
	tr := NewTranscoder(WithFFmpegPath(""))
	if tr.ffmpegPath != DefaultFFmpegCmd {
		t.Errorf("ffmpegPath = %q, want %q", tr.ffmpegPath, DefaultFFmpegCmd)
	}
}

func TestLastLine(t *testing.T) {
	if got := lastLine("a\nb\n  c  \n"); got != "c" {
		t.Errorf("lastLine() = %q", got)
	}
	if got := lastLine(""); got != "" {
		t.Errorf("lastLine(empty) = %q", got)
	}
}
