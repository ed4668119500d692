package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appprocess "audioprep/application/process"
	"audioprep/domain/distribution"
	"audioprep/domain/history"
	"audioprep/domain/notification"
	"audioprep/infrastructure/config"
)

var (
	processURL           string
	processDir           string
	processPublish       bool
	processCleanup       bool
	processRecipientKeys []string
	processCCKeys        []string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the complete fetch, normalize and denoise workflow",
	Long: `Process an online video through the complete workflow:
1. Download the best audio-only stream
2. Normalize it to mono 44.1 kHz 16-bit WAV
3. Reduce stationary background noise
4. Publish the cleaned file (--publish)
5. Email the link to recipients (--recipient)
6. Remove the downloaded and normalized files (--cleanup)

Files are written to the download directory as:
  <title>.<ext>, <title>.wav, <title>_clean.wav

Re-running for the same URL overwrites the same three files.

Example:
  audioprep process --url "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

  audioprep process \
    --url "https://youtu.be/dQw4w9WgXcQ" \
    --dir ./lectures \
    --publish \
    --recipient jane --cc mary`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVar(&processURL, "url", "", "Video URL (required)")
	processCmd.Flags().StringVar(&processDir, "dir", "", "Download directory (defaults to paths.download_directory)")
	processCmd.Flags().BoolVar(&processPublish, "publish", false, "Publish the cleaned file to the configured target")
	processCmd.Flags().BoolVar(&processCleanup, "cleanup", false, "Remove intermediate files after success")
	processCmd.Flags().StringArrayVar(&processRecipientKeys, "recipient", nil, "Recipient config key(s) to email the link to (can be repeated)")
	processCmd.Flags().StringArrayVar(&processCCKeys, "cc", nil, "Additional CC config key(s)")

	processCmd.MarkFlagRequired("url")
}

// ProcessInput contains the input parameters for process command
type ProcessInput struct {
	URL           string
	Directory     string
	Publish       bool
	Cleanup       bool
	RecipientKeys []string
	CCKeys        []string
}

// ProcessDependencies holds the adapters the process command runs on
type ProcessDependencies struct {
	Ports       appprocess.Ports
	Publisher   distribution.Publisher // nil when publishing is off
	Destination string
	Sender      notification.EmailSender // nil when no email is sent
	Recorder    history.Recorder
	Logger      *zap.Logger
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()
	logger := GetLogger()

	fetcher, transcoder, suppressor, codec, checker, err := newAcquirePorts(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := verifyTranscoder(ctx, transcoder); err != nil {
		return err
	}

	deps := ProcessDependencies{
		Ports: appprocess.Ports{
			Fetcher:     fetcher,
			Transcoder:  transcoder,
			Suppressor:  suppressor,
			Codec:       codec,
			FileChecker: checker,
		},
		Logger: logger,
	}

	if processPublish {
		deps.Publisher, deps.Destination, err = newPublisher(ctx, cfg)
		if err != nil {
			return err
		}
	}
	if len(processRecipientKeys) > 0 {
		deps.Sender, err = newEmailSender(ctx, cfg)
		if err != nil {
			return err
		}
	}

	recorder, closeRecorder, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRecorder(); err != nil {
			logger.Warn("failed to close history", zap.Error(err))
		}
	}()
	deps.Recorder = recorder

	input := ProcessInput{
		URL:           processURL,
		Directory:     processDir,
		Publish:       processPublish,
		Cleanup:       processCleanup,
		RecipientKeys: processRecipientKeys,
		CCKeys:        processCCKeys,
	}

	return RunProcessWithDependencies(ctx, cfg, deps, input, os.Stdout)
}

// RunProcessWithDependencies runs the process command with injected dependencies (for testing)
func RunProcessWithDependencies(
	ctx context.Context,
	cfg *config.Config,
	deps ProcessDependencies,
	input ProcessInput,
	output OutputWriter,
) error {
	opts := []appprocess.Option{
		appprocess.WithLogger(deps.Logger),
		appprocess.WithOutput(output),
		appprocess.WithRecorder(deps.Recorder),
	}
	if deps.Publisher != nil {
		opts = append(opts, appprocess.WithPublisher(deps.Publisher))
	}
	if deps.Sender != nil {
		opts = append(opts, appprocess.WithNotifier(deps.Sender, config.NewRecipientLookup(cfg)))
	}

	service := appprocess.NewService(appprocess.Config{
		DownloadDirectory:   cfg.Paths.DownloadDirectory,
		LockFile:            cfg.Paths.LockFile,
		CleanupIntermediate: cfg.Pipeline.CleanupIntermediate,
		PublishDestination:  deps.Destination,
		SenderName:          cfg.Email.SenderName,
	}, deps.Ports, opts...)

	result, err := service.Process(ctx, appprocess.Input{
		URL:        input.URL,
		Directory:  input.Directory,
		Publish:    input.Publish,
		Recipients: input.RecipientKeys,
		CC:         input.CCKeys,
		Cleanup:    input.Cleanup,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Cleaned audio: %s\n", result.Paths.Cleaned)
	if result.ShareURL != "" {
		fmt.Fprintf(output, "Link: %s\n", result.ShareURL)
	}
	return nil
}
