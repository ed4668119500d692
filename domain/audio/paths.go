package audio

import (
	"path/filepath"
	"strings"
)

// Suffixes appended to the downloaded asset's base name
const (
	NormalizedSuffix = ".wav"
	CleanedSuffix    = "_clean.wav"
)

// ArtifactPaths holds the three files a pipeline run produces
type ArtifactPaths struct {
	Raw        string
	Normalized string
	Cleaned    string
}

// DeriveArtifactPaths computes the normalized and cleaned paths from the
// downloaded asset path by replacing its extension. It never touches the
// filesystem.
func DeriveArtifactPaths(raw string) ArtifactPaths {
	base := strings.TrimSuffix(raw, filepath.Ext(raw))
	return ArtifactPaths{
		Raw:        raw,
		Normalized: base + NormalizedSuffix,
		Cleaned:    base + CleanedSuffix,
	}
}

// NormalizedCollides reports whether the raw asset already sits at the
// normalized path, so transcoding cannot write its output in place.
func (p ArtifactPaths) NormalizedCollides() bool {
	return filepath.Clean(p.Raw) == filepath.Clean(p.Normalized)
}

// Intermediates returns the artifacts that may be removed after a successful run
func (p ArtifactPaths) Intermediates() []string {
	if p.NormalizedCollides() {
		return []string{p.Raw}
	}
	return []string{p.Raw, p.Normalized}
}
