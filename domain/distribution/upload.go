package distribution

import "strings"

// UploadRequest contains the parameters needed to publish a file
type UploadRequest struct {
	LocalPath   string // Full path to the local file
	FileName    string // Target name at the destination
	Destination string // Drive folder ID or object key prefix
	MimeType    string // MIME type of the file
}

// UploadResult contains the result of a successful upload
type UploadResult struct {
	FileID       string // Remote identifier (Drive file ID or object key)
	FileName     string // Name of the uploaded file
	ShareableURL string // URL for sharing the file
	Size         int64  // Size of the uploaded file in bytes
}

// MIME type constants for published artifacts
const (
	MimeTypeWAV = "audio/wav"
	MimeTypeMP3 = "audio/mpeg"
)

// MimeTypeFor guesses the MIME type from a file name
func MimeTypeFor(name string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(name), ".mp3"):
		return MimeTypeMP3
	case strings.HasSuffix(strings.ToLower(name), ".wav"):
		return MimeTypeWAV
	default:
		return "application/octet-stream"
	}
}
