package acquire

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"audioprep/domain/audio"
	"audioprep/infrastructure/logging"
)

// FetchResult contains the result of a fetch operation
type FetchResult struct {
	Asset   audio.DownloadedAsset
	Paths   audio.ArtifactPaths
	Elapsed time.Duration
}

// FetchService downloads the audio track of a remote video
type FetchService struct {
	fetcher     audio.MediaFetcher
	fileChecker audio.FileChecker
	logger      *zap.Logger
}

// NewFetchService creates a new FetchService
func NewFetchService(fetcher audio.MediaFetcher, fileChecker audio.FileChecker, logger *zap.Logger) *FetchService {
	return &FetchService{
		fetcher:     fetcher,
		fileChecker: fileChecker,
		logger:      logging.OrNop(logger),
	}
}

// Fetch downloads url into destDir. Every failure is a fetch-stage error.
func (s *FetchService) Fetch(ctx context.Context, url, destDir string) (*FetchResult, error) {
	start := time.Now()

	ref, err := audio.NewSourceReference(url)
	if err != nil {
		return nil, audio.NewStageError(audio.StageFetch, err)
	}

	asset, err := s.fetcher.Fetch(ctx, ref, destDir)
	if err != nil {
		return nil, audio.NewStageError(audio.StageFetch, err)
	}

	if asset == nil || asset.Path == "" || !s.fileChecker.Exists(asset.Path) {
		return nil, audio.NewStageError(audio.StageFetch, fmt.Errorf("downloaded file is missing"))
	}

	s.logger.Info("fetched source",
		zap.String("stage", string(audio.StageFetch)),
		zap.String("title", asset.Title),
		zap.String("path", asset.Path),
	)

	return &FetchResult{
		Asset:   *asset,
		Paths:   audio.DeriveArtifactPaths(asset.Path),
		Elapsed: time.Since(start),
	}, nil
}
