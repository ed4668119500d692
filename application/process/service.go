package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"audioprep/application/acquire"
	appdist "audioprep/application/distribution"
	appnotif "audioprep/application/notification"
	"audioprep/domain/audio"
	"audioprep/domain/distribution"
	"audioprep/domain/history"
	"audioprep/domain/notification"
	"audioprep/infrastructure/config"
	"audioprep/infrastructure/filesystem"
	"audioprep/infrastructure/logging"
)

// Config holds the driver settings. Nothing is read from globals.
type Config struct {
	DownloadDirectory   string
	LockFile            string
	CleanupIntermediate bool
	PublishDestination  string // Drive folder ID or object key prefix
	SenderName          string
}

// RecipientResolver maps config keys or names to email recipients
type RecipientResolver interface {
	LookupRecipients(queries []string) ([]notification.Recipient, error)
	ResolveCC(to []notification.Recipient, queries []string) ([]notification.Recipient, error)
}

// Ports bundles the adapters the three acquisition stages run on
type Ports struct {
	Fetcher     audio.MediaFetcher
	Transcoder  audio.AudioTranscoder
	Suppressor  audio.NoiseSuppressor
	Codec       audio.WaveformCodec
	FileChecker audio.FileChecker
}

// Service orchestrates the complete processing workflow
type Service struct {
	cfg        Config
	fetch      *acquire.FetchService
	transcode  *acquire.TranscodeService
	denoise    *acquire.DenoiseService
	publisher  distribution.Publisher
	sender     notification.EmailSender
	recipients RecipientResolver
	recorder   history.Recorder
	logger     *zap.Logger
	output     io.Writer
	now        func() time.Time
}

// Option configures optional collaborators
type Option func(*Service)

// WithPublisher enables the publish step
func WithPublisher(p distribution.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithNotifier enables the email step
func WithNotifier(sender notification.EmailSender, recipients RecipientResolver) Option {
	return func(s *Service) {
		s.sender = sender
		s.recipients = recipients
	}
}

// WithRecorder records every run
func WithRecorder(r history.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrNop(logger)
	}
}

// WithOutput sets where progress lines are written
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.output = w
		}
	}
}

// NewService creates a new process service
func NewService(cfg Config, ports Ports, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		recorder: history.NopRecorder{},
		logger:   zap.NewNop(),
		output:   io.Discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.fetch = acquire.NewFetchService(ports.Fetcher, ports.FileChecker, s.logger)
	s.transcode = acquire.NewTranscodeService(ports.Transcoder, ports.Codec, ports.FileChecker, s.logger)
	s.denoise = acquire.NewDenoiseService(ports.Suppressor, ports.Codec, s.logger)
	return s
}

// Input contains all input parameters for the process command
type Input struct {
	URL        string   // Remote video URL
	Directory  string   // Overrides Config.DownloadDirectory
	Publish    bool     // Publish the cleaned waveform
	Recipients []string // Recipient config keys; requires Publish
	CC         []string // Extra CC config keys
	Cleanup    bool     // Remove raw and normalized artifacts on success
}

// Result contains the results of a successful process run
type Result struct {
	RunID    string
	Title    string
	Paths    audio.ArtifactPaths
	ShareURL string
	// SizeBytes is the published size; zero when not published
	SizeBytes int64
	Elapsed   time.Duration
}

// ValidationError contains details about a validation failure with suggestions
type ValidationError struct {
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s\n\nTo fix this, run:\n  %s", e.Message, e.Suggestion)
	}
	return e.Message
}

// plan is the validated form of Input
type plan struct {
	url       string
	dir       string
	publish   bool
	notify    bool
	cleanup   bool
	to        []notification.Recipient
	cc        []notification.Recipient
	recipKeys []string
	steps     []string
}

// Process runs fetch, transcode and denoise, then the optional steps.
// Any stage failure stops the run and is returned as an *audio.StageError.
func (s *Service) Process(ctx context.Context, input Input) (*Result, error) {
	startTime := s.now()

	p, err := s.validateInputs(input)
	if err != nil {
		return nil, err
	}

	lock, err := filesystem.AcquireLock(s.cfg.LockFile)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn("failed to release lock", zap.Error(err))
		}
	}()

	runID := newRunID()
	logger := s.logger.With(zap.String("run_id", runID))
	run := history.Run{
		ID:        runID,
		SourceURL: p.url,
		Status:    history.StatusRunning,
		StartedAt: startTime,
	}
	if err := s.recorder.Start(ctx, run); err != nil {
		logger.Warn("failed to record run start", zap.Error(err))
	}

	fmt.Fprintf(s.output, "Source: %s\n", p.url)
	fmt.Fprintf(s.output, "Run: %s\n\n", runID)

	result, err := s.run(ctx, p, runID, logger, &run)

	run.FinishedAt = s.now()
	if err != nil {
		run.Status = history.StatusFailed
		run.FailedStage = string(audio.FailedStage(err))
		run.Error = err.Error()
	} else {
		run.Status = history.StatusSucceeded
	}
	// Record the outcome even when ctx was cancelled
	if ferr := s.recorder.Finish(context.WithoutCancel(ctx), run); ferr != nil {
		logger.Warn("failed to record run outcome", zap.Error(ferr))
	}
	if err != nil {
		return nil, err
	}

	result.Elapsed = run.FinishedAt.Sub(startTime)
	fmt.Fprintf(s.output, "Done! Completed in %s\n", formatDuration(result.Elapsed))
	return result, nil
}

func (s *Service) run(ctx context.Context, p *plan, runID string, logger *zap.Logger, run *history.Run) (*Result, error) {
	total := len(p.steps)
	step := 0
	next := func() {
		step++
		fmt.Fprintf(s.output, "[%d/%d] %s...\n", step, total, p.steps[step-1])
	}

	// Fetch
	next()
	fetched, err := s.fetch.Fetch(ctx, p.url, p.dir)
	if err != nil {
		logger.Error("failed to download audio", zap.String("url", p.url), zap.Error(err))
		s.showRecoveryCommands(audio.StageFetch, p, audio.ArtifactPaths{}, "")
		return nil, err
	}
	paths := fetched.Paths
	run.Title = fetched.Asset.Title
	run.RawPath = paths.Raw
	fmt.Fprintf(s.output, "      Downloaded: %s\n\n", paths.Raw)

	// Transcode
	next()
	if _, err := s.transcode.Transcode(ctx, paths.Raw, paths.Normalized); err != nil {
		logger.Error("failed to normalize audio", zap.String("path", paths.Raw), zap.Error(err))
		s.showRecoveryCommands(audio.StageTranscode, p, paths, fetched.Asset.Title)
		return nil, err
	}
	fmt.Fprintf(s.output, "      Created: %s\n\n", paths.Normalized)

	// Denoise
	next()
	denoised, err := s.denoise.Denoise(ctx, paths.Normalized, paths.Cleaned)
	if err != nil {
		logger.Error("failed to reduce noise", zap.String("path", paths.Normalized), zap.Error(err))
		s.showRecoveryCommands(audio.StageDenoise, p, paths, fetched.Asset.Title)
		return nil, err
	}
	run.CleanedPath = paths.Cleaned
	fmt.Fprintf(s.output, "      Created: %s\n\n", paths.Cleaned)

	result := &Result{RunID: runID, Title: fetched.Asset.Title, Paths: paths}

	if p.publish {
		next()
		uploaded, err := appdist.NewUploadService(s.publisher, s.cfg.PublishDestination, s.output).Upload(ctx, paths.Cleaned)
		if err != nil {
			err = audio.NewStageError(audio.StagePublish, err)
			logger.Error("failed to publish audio", zap.String("path", paths.Cleaned), zap.Error(err))
			s.showRecoveryCommands(audio.StagePublish, p, paths, fetched.Asset.Title)
			return nil, err
		}
		result.ShareURL = uploaded.ShareableURL
		result.SizeBytes = uploaded.Size
		run.ShareURL = uploaded.ShareableURL
		fmt.Fprintf(s.output, "      Link: %s\n\n", uploaded.ShareableURL)
	}

	if p.notify {
		next()
		err := appnotif.NewService(s.sender, s.cfg.SenderName).Send(ctx, appnotif.SendRequest{
			To:        p.to,
			CC:        p.cc,
			Title:     fetched.Asset.Title,
			AudioURL:  result.ShareURL,
			SourceURL: p.url,
			Length:    denoised.Length(),
			SizeBytes: result.SizeBytes,
		})
		if err != nil {
			err = audio.NewStageError(audio.StageNotify, err)
			logger.Error("failed to send notification", zap.Error(err))
			s.showRecoveryCommands(audio.StageNotify, p, paths, fetched.Asset.Title, result.ShareURL)
			return nil, err
		}
		for _, r := range p.to {
			fmt.Fprintf(s.output, "      Sent to: %s <%s>\n", r.Name, r.Address)
		}
		fmt.Fprintln(s.output)
	}

	if p.cleanup {
		next()
		removed, err := filesystem.RemoveFiles(paths.Intermediates()...)
		for _, path := range removed {
			fmt.Fprintf(s.output, "      Removed: %s\n", path)
		}
		if err != nil {
			logger.Warn("failed to remove intermediates", zap.Error(err))
		}
		fmt.Fprintln(s.output)
	}

	logger.Info("processing complete",
		zap.String("title", fetched.Asset.Title),
		zap.String("path", paths.Cleaned),
	)
	return result, nil
}

func (s *Service) validateInputs(input Input) (*plan, error) {
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return nil, &ValidationError{Message: "a source URL is required", Suggestion: "audioprep process --url <URL>"}
	}

	p := &plan{
		url:       url,
		dir:       input.Directory,
		publish:   input.Publish,
		cleanup:   input.Cleanup || s.cfg.CleanupIntermediate,
		recipKeys: input.Recipients,
		steps:     []string{"Fetching audio", "Normalizing waveform", "Reducing noise"},
	}
	if p.dir == "" {
		p.dir = s.cfg.DownloadDirectory
	}
	if p.dir == "" {
		return nil, &ValidationError{
			Message:    "no download directory configured",
			Suggestion: "audioprep process --url <URL> --dir downloads",
		}
	}

	if p.publish && s.publisher == nil {
		return nil, &ValidationError{
			Message:    "publishing requested but no publish target is configured",
			Suggestion: "set publish.target to drive or s3 in config, or run: audioprep setup",
		}
	}
	if p.publish {
		p.steps = append(p.steps, "Publishing")
	}

	if len(input.Recipients) > 0 {
		if !p.publish {
			return nil, &ValidationError{
				Message:    "recipients need a share link but publishing is off",
				Suggestion: "add --publish",
			}
		}
		if s.sender == nil || s.recipients == nil {
			return nil, &ValidationError{
				Message:    "email requested but no email sender is configured",
				Suggestion: "set email.from_address in config, or run: audioprep setup",
			}
		}

		to, err := s.recipients.LookupRecipients(input.Recipients)
		if err != nil {
			return nil, recipientError("recipient", input.Recipients, err, config.SuggestAddRecipientCommand)
		}
		cc, err := s.recipients.ResolveCC(to, input.CC)
		if err != nil {
			return nil, recipientError("cc recipient", input.CC, err, config.SuggestAddCCCommand)
		}
		p.notify = true
		p.to = to
		p.cc = cc
		p.steps = append(p.steps, "Sending email")
	}

	if p.cleanup {
		p.steps = append(p.steps, "Removing intermediates")
	}
	return p, nil
}

func recipientError(kind string, keys []string, err error, suggest func(string) string) error {
	key := "recipients"
	if len(keys) == 1 {
		key = keys[0]
	}
	if errors.Is(err, notification.ErrAmbiguousRecipient) {
		return &ValidationError{Message: fmt.Sprintf("%s '%s' matches more than one entry: %v", kind, key, err)}
	}
	return &ValidationError{
		Message:    fmt.Sprintf("%s '%s' not found in config", kind, key),
		Suggestion: suggest(key),
	}
}

// showRecoveryCommands prints the commands that finish the run by hand,
// starting at the stage that failed
func (s *Service) showRecoveryCommands(failed audio.Stage, p *plan, paths audio.ArtifactPaths, title string, shareURL ...string) {
	fmt.Fprintln(s.output)
	fmt.Fprintln(s.output, "To complete manually:")

	raw, normalized, cleaned := paths.Raw, paths.Normalized, paths.Cleaned
	if raw == "" {
		raw, normalized, cleaned = "<downloaded file>", "<normalized .wav>", "<cleaned _clean.wav>"
	}
	if title == "" {
		title = "<title>"
	}
	link := "<URL>"
	if len(shareURL) > 0 && shareURL[0] != "" {
		link = shareURL[0]
	}

	order := map[audio.Stage]int{
		audio.StageFetch:     1,
		audio.StageTranscode: 2,
		audio.StageDenoise:   3,
		audio.StagePublish:   4,
		audio.StageNotify:    5,
	}
	failedAt := order[failed]

	step := 1
	if failedAt <= 1 {
		fmt.Fprintf(s.output, "  %d. Fetch:      audioprep fetch --url %q --dir %q\n", step, p.url, p.dir)
		step++
	}
	if failedAt <= 2 {
		fmt.Fprintf(s.output, "  %d. Transcode:  audioprep transcode --source %q\n", step, raw)
		step++
	}
	if failedAt <= 3 {
		fmt.Fprintf(s.output, "  %d. Denoise:    audioprep denoise --source %q\n", step, normalized)
		step++
	}
	if p.publish && failedAt <= 4 {
		fmt.Fprintf(s.output, "  %d. Upload:     audioprep upload --file %q\n", step, cleaned)
		step++
	}
	if p.notify && failedAt <= 5 {
		var recipientArgs strings.Builder
		for _, r := range p.recipKeys {
			fmt.Fprintf(&recipientArgs, " --recipient %s", r)
		}
		fmt.Fprintf(s.output, "  %d. Notify:     audioprep notify --url %s --title %q%s\n", step, link, title, recipientArgs.String())
	}
	fmt.Fprintln(s.output)
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
