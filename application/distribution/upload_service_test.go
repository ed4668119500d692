package distribution

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audioprep/domain/distribution"
)

// mockPublisher publishes without a quota or replace support
type mockPublisher struct {
	requests []distribution.UploadRequest
	err      error
}

func (m *mockPublisher) Publish(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResult, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &distribution.UploadResult{
		FileID:       "id-" + req.FileName,
		FileName:     req.FileName,
		ShareableURL: "https://example.com/" + req.FileName,
	}, nil
}

// mockDrive behaves like a quota-bound folder
type mockDrive struct {
	mockPublisher
	files     []distribution.FileInfo
	total     int64
	used      int64
	deleted   []string
	quotaErr  error
	deleteErr error
}

func (m *mockDrive) GetStorageQuota(ctx context.Context) (*distribution.StorageInfo, error) {
	if m.quotaErr != nil {
		return nil, m.quotaErr
	}
	return &distribution.StorageInfo{TotalBytes: m.total, UsedBytes: m.used, AvailableBytes: m.total - m.used}, nil
}

func (m *mockDrive) ListFiles(ctx context.Context, destination string) ([]distribution.FileInfo, error) {
	return m.files, nil
}

func (m *mockDrive) FindFileByName(ctx context.Context, destination, name string) (*distribution.FileInfo, error) {
	for _, f := range m.files {
		if f.Name == name {
			f := f
			return &f, nil
		}
	}
	return nil, nil
}

func (m *mockDrive) DeletePermanently(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	for i, f := range m.files {
		if f.ID == id {
			m.used -= f.Size
			m.files = append(m.files[:i], m.files[i+1:]...)
			break
		}
	}
	return nil
}

func writeFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Talk_clean.wav")
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadService_Upload(t *testing.T) {
	t.Run("publishes with derived name and mime type", func(t *testing.T) {
		path := writeFile(t, 10)
		pub := &mockPublisher{}
		svc := NewUploadService(pub, "folder", nil)

		result, err := svc.Upload(context.Background(), path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ShareableURL != "https://example.com/Talk_clean.wav" {
			t.Errorf("unexpected URL %q", result.ShareableURL)
		}
		req := pub.requests[0]
		if req.FileName != "Talk_clean.wav" || req.MimeType != distribution.MimeTypeWAV || req.Destination != "folder" {
			t.Errorf("unexpected request %+v", req)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		svc := NewUploadService(&mockPublisher{}, "", nil)
		_, err := svc.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.wav"))
		if !errors.Is(err, distribution.ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound, got %v", err)
		}
	})

	t.Run("replaces existing file of the same name", func(t *testing.T) {
		path := writeFile(t, 10)
		drive := &mockDrive{files: []distribution.FileInfo{{ID: "old", Name: "Talk_clean.wav", Size: 5}}}
		var out bytes.Buffer
		svc := NewUploadService(drive, "folder", &out)

		if _, err := svc.Upload(context.Background(), path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(drive.deleted) != 1 || drive.deleted[0] != "old" {
			t.Errorf("expected old file deleted, got %v", drive.deleted)
		}
		if !strings.Contains(out.String(), "Replacing existing Talk_clean.wav") {
			t.Errorf("missing replace message in %q", out.String())
		}
	})

	t.Run("never replaces without a destination", func(t *testing.T) {
		path := writeFile(t, 10)
		drive := &mockDrive{files: []distribution.FileInfo{{ID: "other-folder", Name: "Talk_clean.wav", Size: 5}}}
		svc := NewUploadService(drive, "", nil)

		if _, err := svc.Upload(context.Background(), path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(drive.deleted) != 0 {
			t.Errorf("nothing should be deleted, got %v", drive.deleted)
		}
		if len(drive.requests) != 1 {
			t.Errorf("expected the file to be published once, got %d", len(drive.requests))
		}
	})

	t.Run("never prunes without a destination", func(t *testing.T) {
		path := writeFile(t, 100)
		drive := &mockDrive{
			files: []distribution.FileInfo{{ID: "a", Name: "Old_clean.wav", Size: 60}},
			total: 100,
			used:  60,
		}
		svc := NewUploadService(drive, "", nil)

		_, err := svc.Upload(context.Background(), path)
		if !errors.Is(err, distribution.ErrInsufficientSpace) {
			t.Fatalf("expected ErrInsufficientSpace, got %v", err)
		}
		if len(drive.deleted) != 0 {
			t.Errorf("nothing should be deleted, got %v", drive.deleted)
		}
	})

	t.Run("prunes oldest cleaned waveforms when full", func(t *testing.T) {
		path := writeFile(t, 100)
		drive := &mockDrive{
			total: 1000,
			used:  1000,
			files: []distribution.FileInfo{
				{ID: "notes", Name: "notes.txt", Size: 500},
				{ID: "a", Name: "A_clean.wav", Size: 50},
				{ID: "b", Name: "B_clean.wav", Size: 80},
				{ID: "c", Name: "C_clean.wav", Size: 300},
			},
		}
		svc := NewUploadService(drive, "folder", nil)

		if _, err := svc.Upload(context.Background(), path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"a", "b"}
		if strings.Join(drive.deleted, ",") != strings.Join(want, ",") {
			t.Errorf("deleted %v, want %v", drive.deleted, want)
		}
	})

	t.Run("fails when nothing can be pruned", func(t *testing.T) {
		path := writeFile(t, 100)
		drive := &mockDrive{
			total: 1000,
			used:  1000,
			files: []distribution.FileInfo{{ID: "notes", Name: "notes.txt", Size: 500}},
		}
		svc := NewUploadService(drive, "folder", nil)

		_, err := svc.Upload(context.Background(), path)
		if !errors.Is(err, distribution.ErrInsufficientSpace) {
			t.Errorf("expected ErrInsufficientSpace, got %v", err)
		}
		if len(drive.requests) != 0 {
			t.Error("should not publish")
		}
	})

	t.Run("publish error", func(t *testing.T) {
		path := writeFile(t, 10)
		svc := NewUploadService(&mockPublisher{err: errors.New("boom")}, "", nil)

		_, err := svc.Upload(context.Background(), path)
		if err == nil || !strings.Contains(err.Error(), "failed to publish Talk_clean.wav") {
			t.Errorf("unexpected error %v", err)
		}
	})
}
