package audio

import (
	"fmt"
	"strings"
)

// SourceReference identifies a remote video by URL.
// No validation happens here beyond rejecting an empty value; whether the
// reference resolves is decided by the MediaFetcher.
type SourceReference string

// NewSourceReference creates a SourceReference from raw user input
func NewSourceReference(raw string) (SourceReference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: source URL is required", ErrFetch)
	}
	return SourceReference(raw), nil
}

// String returns the URL
func (r SourceReference) String() string {
	return string(r)
}

// DownloadedAsset is the compressed audio file produced by the fetch stage.
// Its container and codec are whatever the remote service offered.
type DownloadedAsset struct {
	Path  string
	Title string
}
