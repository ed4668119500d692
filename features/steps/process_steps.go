//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cucumber/godog"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	googledrive "google.golang.org/api/drive/v3"
	googlegmail "google.golang.org/api/gmail/v1"

	appprocess "audioprep/application/process"
	"audioprep/cmd"
	"audioprep/domain/audio"
	"audioprep/domain/history"
	"audioprep/domain/notification"
	"audioprep/infrastructure/config"
	"audioprep/infrastructure/drive"
	"audioprep/infrastructure/filesystem"
	"audioprep/infrastructure/gmail"
	"audioprep/infrastructure/spectral"
	"audioprep/infrastructure/wavfile"
)

// processContext holds test state for process scenarios
type processContext struct {
	tempDir string
	cfg     *config.Config

	fetcher      *processMockFetcher
	transcoder   *processMockTranscoder
	driveService *processMockDriveService
	gmailService *processMockGmailService

	output *bytes.Buffer
	logs   *observer.ObservedLogs
	err    error
}

// SharedProcessContext is reset before each scenario via Before hook
var SharedProcessContext *processContext

// --- Mock implementations ---

// processMockFetcher serves known URLs by writing a fake compressed file
type processMockFetcher struct {
	titles map[string]string
}

func (m *processMockFetcher) Fetch(ctx context.Context, ref audio.SourceReference, destDir string) (*audio.DownloadedAsset, error) {
	title, ok := m.titles[ref.String()]
	if !ok {
		return nil, fmt.Errorf("%w: ERROR: Unable to download webpage", audio.ErrFetch)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(destDir, title+".webm")
	if err := os.WriteFile(path, []byte("webm "+ref.String()), 0644); err != nil {
		return nil, err
	}
	return &audio.DownloadedAsset{Path: path, Title: title}, nil
}

// processMockTranscoder writes one second of a tone burst over low hiss
type processMockTranscoder struct {
	failError error
}

func (m *processMockTranscoder) Transcode(ctx context.Context, input, output string) error {
	if m.failError != nil {
		return m.failError
	}
	n := audio.NormalizedSampleRate
	samples := make([]int, n)
	for i := range samples {
		hiss := float64((i*7919)%61 - 30)
		var tone float64
		if i > n/3 && i < 2*n/3 {
			tone = 8000 * math.Sin(2*math.Pi*440*float64(i)/float64(n))
		}
		samples[i] = int(hiss + tone)
	}
	return wavfile.NewCodec().Write(output, &audio.Waveform{Format: audio.NormalizedFormat, Samples: samples})
}

type processMockDriveService struct {
	uploaded []string
}

func (m *processMockDriveService) ListFiles(ctx context.Context, query, fields, orderBy string) ([]*googledrive.File, error) {
	return nil, nil
}

func (m *processMockDriveService) GetAbout(ctx context.Context, fields string) (*googledrive.About, error) {
	return &googledrive.About{StorageQuota: &googledrive.AboutStorageQuota{Limit: 15 << 30, Usage: 1 << 30}}, nil
}

func (m *processMockDriveService) DeleteFile(ctx context.Context, fileID string) error {
	return nil
}

func (m *processMockDriveService) UploadFile(ctx context.Context, name, mimeType, folderID string, content io.Reader) (*googledrive.File, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	m.uploaded = append(m.uploaded, name)
	return &googledrive.File{
		Id:          "drive-file-1",
		Name:        name,
		Size:        int64(len(data)),
		WebViewLink: "https://drive.google.com/file/d/drive-file-1/view",
	}, nil
}

func (m *processMockDriveService) CreatePermission(ctx context.Context, fileID string, permission *googledrive.Permission) error {
	return nil
}

type processMockGmailService struct {
	messages []string
}

func (m *processMockGmailService) SendMessage(ctx context.Context, userID string, message *googlegmail.Message) (*googlegmail.Message, error) {
	raw, err := base64.URLEncoding.DecodeString(message.Raw)
	if err != nil {
		return nil, err
	}
	m.messages = append(m.messages, string(raw))
	return &googlegmail.Message{Id: "msg-1"}, nil
}

// --- Scenario wiring ---

func InitializeProcessScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "process-test-*")
		if err != nil {
			return c, err
		}
		cfg := config.Default()
		cfg.Paths.DownloadDirectory = filepath.Join(tempDir, "downloads")
		cfg.Paths.LockFile = filepath.Join(tempDir, "audioprep.lock")
		cfg.History.Enabled = false
		cfg.Email.FromName = "Lecture Bot"
		cfg.Email.FromAddress = "bot@example.com"
		cfg.Email.SenderName = "Lecture Bot"
		cfg.Email.Recipients = map[string]config.RecipientConfig{}

		SharedProcessContext = &processContext{
			tempDir:      tempDir,
			cfg:          cfg,
			fetcher:      &processMockFetcher{titles: map[string]string{}},
			transcoder:   &processMockTranscoder{},
			driveService: &processMockDriveService{},
			gmailService: &processMockGmailService{},
			output:       &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedProcessContext != nil && SharedProcessContext.tempDir != "" {
			os.RemoveAll(SharedProcessContext.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^a clean download directory$`, aCleanDownloadDirectory)
	ctx.Step(`^a video titled "([^"]*)" is available at "([^"]*)"$`, aVideoTitledIsAvailableAt)
	ctx.Step(`^no video is available at "([^"]*)"$`, noVideoIsAvailableAt)
	ctx.Step(`^the transcoder fails with "([^"]*)"$`, theTranscoderFailsWith)
	ctx.Step(`^a recipient "([^"]*)" named "([^"]*)" with email "([^"]*)"$`, aRecipientNamedWithEmail)
	ctx.Step(`^I run process for "([^"]*)"$`, iRunProcessFor)
	ctx.Step(`^I run process for "([^"]*)" publishing to recipient "([^"]*)"$`, iRunProcessForPublishingToRecipient)
	ctx.Step(`^the process should succeed$`, theProcessShouldSucceed)
	ctx.Step(`^the process should fail at stage "([^"]*)"$`, theProcessShouldFailAtStage)
	ctx.Step(`^the download directory should contain exactly:$`, theDownloadDirectoryShouldContainExactly)
	ctx.Step(`^the download directory should be empty$`, theDownloadDirectoryShouldBeEmpty)
	ctx.Step(`^"([^"]*)" should be a mono 44100 Hz 16-bit waveform$`, shouldBeANormalizedWaveform)
	ctx.Step(`^the log should contain "([^"]*)"$`, theLogShouldContain)
	ctx.Step(`^the log should not contain "([^"]*)"$`, theLogShouldNotContain)
	ctx.Step(`^the output should contain "([^"]*)"$`, theOutputShouldContain)
	ctx.Step(`^"([^"]*)" should have been uploaded to Drive$`, shouldHaveBeenUploadedToDrive)
	ctx.Step(`^an email should have been sent to "([^"]*)" with the Drive link$`, anEmailShouldHaveBeenSentWithTheDriveLink)
}

func aCleanDownloadDirectory() error {
	return os.RemoveAll(SharedProcessContext.cfg.Paths.DownloadDirectory)
}

func aVideoTitledIsAvailableAt(title, url string) error {
	SharedProcessContext.fetcher.titles[url] = title
	return nil
}

func noVideoIsAvailableAt(url string) error {
	delete(SharedProcessContext.fetcher.titles, url)
	return nil
}

func theTranscoderFailsWith(msg string) error {
	SharedProcessContext.transcoder.failError = errors.New("ffmpeg transcode failed: " + msg)
	return nil
}

func aRecipientNamedWithEmail(key, name, email string) error {
	SharedProcessContext.cfg.Email.Recipients[key] = config.RecipientConfig{Name: name, Address: email}
	return nil
}

func iRunProcessFor(url string) error {
	return runProcess(cmd.ProcessInput{URL: url})
}

func iRunProcessForPublishingToRecipient(url, key string) error {
	return runProcess(cmd.ProcessInput{URL: url, Publish: true, RecipientKeys: []string{key}})
}

func runProcess(input cmd.ProcessInput) error {
	p := SharedProcessContext
	ctx := context.Background()

	gate, err := spectral.NewGate(p.cfg.Denoise)
	if err != nil {
		return err
	}
	driveClient, err := drive.NewClient(ctx, "", drive.WithDriveService(p.driveService))
	if err != nil {
		return err
	}
	gmailClient := gmail.NewClient(
		notification.Recipient{Name: p.cfg.Email.FromName, Address: p.cfg.Email.FromAddress},
		gmail.WithGmailService(p.gmailService),
	)

	core, logs := observer.New(zap.InfoLevel)
	p.logs = logs
	p.output.Reset()

	deps := cmd.ProcessDependencies{
		Ports: appprocess.Ports{
			Fetcher:     p.fetcher,
			Transcoder:  p.transcoder,
			Suppressor:  gate,
			Codec:       wavfile.NewCodec(),
			FileChecker: filesystem.NewChecker(),
		},
		Recorder: history.NopRecorder{},
		Logger:   zap.New(core),
	}
	if input.Publish {
		deps.Publisher = driveClient
		deps.Destination = "folder-123"
	}
	if len(input.RecipientKeys) > 0 {
		deps.Sender = gmailClient
	}

	p.err = cmd.RunProcessWithDependencies(ctx, p.cfg, deps, input, p.output)
	return nil
}

func theProcessShouldSucceed() error {
	if err := SharedProcessContext.err; err != nil {
		return fmt.Errorf("expected success, got: %w\noutput:\n%s", err, SharedProcessContext.output.String())
	}
	return nil
}

func theProcessShouldFailAtStage(stage string) error {
	err := SharedProcessContext.err
	if err == nil {
		return fmt.Errorf("expected failure at %s, but the process succeeded", stage)
	}
	if got := audio.FailedStage(err); string(got) != stage {
		return fmt.Errorf("expected failure at stage %q, got %q (%v)", stage, got, err)
	}
	return nil
}

func listDownloads() ([]string, error) {
	entries, err := os.ReadDir(SharedProcessContext.cfg.Paths.DownloadDirectory)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func theDownloadDirectoryShouldContainExactly(table *godog.Table) error {
	var want []string
	for _, row := range table.Rows {
		want = append(want, row.Cells[0].Value)
	}
	sort.Strings(want)

	got, err := listDownloads()
	if err != nil {
		return err
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		return fmt.Errorf("expected files %v, got %v", want, got)
	}
	return nil
}

func theDownloadDirectoryShouldBeEmpty() error {
	got, err := listDownloads()
	if err != nil {
		return err
	}
	if len(got) != 0 {
		return fmt.Errorf("expected no files, got %v", got)
	}
	return nil
}

func shouldBeANormalizedWaveform(name string) error {
	path := filepath.Join(SharedProcessContext.cfg.Paths.DownloadDirectory, name)
	format, err := wavfile.NewCodec().ReadFormat(path)
	if err != nil {
		return err
	}
	return format.Validate(audio.NormalizedFormat)
}

func theLogShouldContain(msg string) error {
	if SharedProcessContext.logs.FilterMessage(msg).Len() == 0 {
		return fmt.Errorf("expected a log entry %q", msg)
	}
	return nil
}

func theLogShouldNotContain(msg string) error {
	if n := SharedProcessContext.logs.FilterMessage(msg).Len(); n != 0 {
		return fmt.Errorf("expected no log entry %q, found %d", msg, n)
	}
	return nil
}

func theOutputShouldContain(text string) error {
	if !strings.Contains(SharedProcessContext.output.String(), text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, SharedProcessContext.output.String())
	}
	return nil
}

func shouldHaveBeenUploadedToDrive(name string) error {
	for _, u := range SharedProcessContext.driveService.uploaded {
		if u == name {
			return nil
		}
	}
	return fmt.Errorf("expected %q to be uploaded, got %v", name, SharedProcessContext.driveService.uploaded)
}

func anEmailShouldHaveBeenSentWithTheDriveLink(address string) error {
	msgs := SharedProcessContext.gmailService.messages
	if len(msgs) != 1 {
		return fmt.Errorf("expected one email, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0], address) {
		return fmt.Errorf("email is not addressed to %s:\n%s", address, msgs[0])
	}
	if !strings.Contains(msgs[0], "https://drive.google.com/file/d/drive-file-1/view") {
		return fmt.Errorf("email does not contain the Drive link:\n%s", msgs[0])
	}
	return nil
}
