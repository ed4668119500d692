package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"audioprep/domain/audio"
	"audioprep/domain/distribution"
	domainhistory "audioprep/domain/history"
	"audioprep/domain/notification"
	"audioprep/infrastructure/config"
	"audioprep/infrastructure/drive"
	"audioprep/infrastructure/ffmpeg"
	"audioprep/infrastructure/filesystem"
	"audioprep/infrastructure/gmail"
	"audioprep/infrastructure/history"
	"audioprep/infrastructure/objectstore"
	"audioprep/infrastructure/spectral"
	"audioprep/infrastructure/wavfile"
	"audioprep/infrastructure/ytdlp"
)

// ffmpegVerifyTimeout bounds the "ffmpeg -version" check
const ffmpegVerifyTimeout = 5 * time.Second

// installer is implemented by adapters that can check their external binary
type installer interface {
	VerifyInstalled(ctx context.Context) error
}

// verifyTranscoder checks ffmpeg is runnable when the transcoder supports it
func verifyTranscoder(ctx context.Context, transcoder audio.AudioTranscoder) error {
	verifiable, ok := transcoder.(installer)
	if !ok {
		return nil
	}
	verifyCtx, cancel := context.WithTimeout(ctx, ffmpegVerifyTimeout)
	defer cancel()
	if err := verifiable.VerifyInstalled(verifyCtx); err != nil {
		return fmt.Errorf("ffmpeg verification failed: %w", err)
	}
	return nil
}

func newFetcher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ytdlp.Fetcher, error) {
	if cfg.Fetch.AutoInstall {
		if err := ytdlp.Install(ctx); err != nil {
			return nil, err
		}
	}
	return ytdlp.NewFetcher(
		ytdlp.WithDownloader(ytdlp.NewCommandDownloader(cfg.Fetch.Format)),
		ytdlp.WithRetries(cfg.Fetch.Retries),
		ytdlp.WithLogger(logger),
	), nil
}

func newTranscoder(cfg *config.Config) *ffmpeg.Transcoder {
	return ffmpeg.NewTranscoder(ffmpeg.WithFFmpegPath(cfg.FFmpeg.Path))
}

func newSuppressor(cfg *config.Config) (*spectral.Gate, error) {
	gate, err := spectral.NewGate(cfg.Denoise)
	if err != nil {
		return nil, fmt.Errorf("invalid denoise settings: %w", err)
	}
	return gate, nil
}

// newAcquirePorts builds the production adapters for the three stages
func newAcquirePorts(ctx context.Context, cfg *config.Config, logger *zap.Logger) (audio.MediaFetcher, audio.AudioTranscoder, audio.NoiseSuppressor, audio.WaveformCodec, audio.FileChecker, error) {
	fetcher, err := newFetcher(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	gate, err := newSuppressor(cfg)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	return fetcher, newTranscoder(cfg), gate, wavfile.NewCodec(), filesystem.NewChecker(), nil
}

// newPublisher returns the configured publisher and its destination, or a
// nil publisher when publishing is off
func newPublisher(ctx context.Context, cfg *config.Config) (distribution.Publisher, string, error) {
	switch cfg.Publish.Target {
	case config.PublishNone:
		return nil, "", nil
	case config.PublishDrive:
		if cfg.Google.FolderID == "" {
			return nil, "", fmt.Errorf("%w: set google.folder_id when publish.target is drive", distribution.ErrNoDestination)
		}
		client, err := drive.NewClientWithOAuth(ctx, cfg.Google.CredentialsFile, cfg.Google.TokenFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Google Drive client: %w", err)
		}
		return client, cfg.Google.FolderID, nil
	case config.PublishS3:
		pub, err := objectstore.NewPublisher(cfg.S3)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create S3 publisher: %w", err)
		}
		return pub, cfg.S3.Prefix, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", distribution.ErrUnknownTarget, cfg.Publish.Target)
	}
}

func newEmailSender(ctx context.Context, cfg *config.Config) (notification.EmailSender, error) {
	from := notification.Recipient{
		Name:    cfg.Email.FromName,
		Address: cfg.Email.FromAddress,
	}
	client, err := gmail.NewClientWithOAuth(ctx, from, cfg.Google.CredentialsFile, cfg.Google.GmailTokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}
	return client, nil
}

// openRecorder opens the run history database, or a no-op recorder when
// history is disabled. The returned close function is never nil.
func openRecorder(cfg *config.Config) (domainhistory.Recorder, func() error, error) {
	if !cfg.History.Enabled {
		return domainhistory.NopRecorder{}, func() error { return nil }, nil
	}
	store, err := history.Open(cfg.History.Database)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}
