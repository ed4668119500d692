package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"audioprep/infrastructure/config"
	"audioprep/infrastructure/logging"
)

// DotEnvFile is loaded before the config so its variables can override it
const DotEnvFile = ".env"

var (
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
)

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

var rootCmd = &cobra.Command{
	Use:   "audioprep",
	Short: "Download, normalize and clean up the audio of online videos",
	Long: `audioprep prepares the audio track of an online video for listening or
transcription:

  - Download the best audio-only stream with yt-dlp
  - Normalize it to a mono 44.1 kHz 16-bit WAV with ffmpeg
  - Remove stationary background noise
  - Optionally publish the result and email a link

Example:
  audioprep process --url "https://www.youtube.com/watch?v=dQw4w9WgXcQ"`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command and exits non-zero on failure
func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigPath, "config file")
}

func initConfig(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(DotEnvFile); err != nil {
		return err
	}

	loaded, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}
	loaded.ApplyEnv()
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", cfgFile, err)
	}

	l, err := logging.New(loaded.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	cfg = loaded
	logger = l
	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}

// GetLogger returns the command logger, never nil
func GetLogger() *zap.Logger {
	return logging.OrNop(logger)
}
