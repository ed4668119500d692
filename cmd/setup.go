package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"audioprep/infrastructure/config"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var errPromptCancelled = errors.New("prompt cancelled")

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

Walks through the download directory, pipeline options, where cleaned audio
is published and who gets emailed. Values you skip keep their defaults.
S3 keys are never written; set AUDIOPREP_S3_ACCESS_KEY and
AUDIOPREP_S3_SECRET_KEY instead.`,
	// Setup must work even when the existing config does not load
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunSetupWithPrompter(DefaultPrompter, cfgFile, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// wizard asks questions until the first failure; later calls are no-ops
type wizard struct {
	prompter Prompter
	out      OutputWriter
	err      error
}

func (w *wizard) section(title string) {
	if w.err == nil {
		fmt.Fprintf(w.out, "\n%s\n", title)
	}
}

func (w *wizard) ask(message, defaultValue string) string {
	if w.err != nil {
		return ""
	}
	answer, err := w.prompter.Input(message, defaultValue)
	if err != nil {
		w.err = errPromptCancelled
	}
	return answer
}

// require is ask, failing with "<field> is required" on an empty answer
func (w *wizard) require(field, message, defaultValue string) string {
	answer := w.ask(message, defaultValue)
	if w.err == nil && answer == "" {
		w.err = fmt.Errorf("%s is required", field)
	}
	return answer
}

func (w *wizard) confirm(message string, defaultValue bool) bool {
	if w.err != nil {
		return false
	}
	answer, err := w.prompter.Confirm(message, defaultValue)
	if err != nil {
		w.err = errPromptCancelled
	}
	return answer
}

// repeat runs body while the user keeps confirming question
func (w *wizard) repeat(question string, body func()) {
	for w.err == nil && w.confirm(question, false) {
		body()
	}
}

func (w *wizard) contact(withKey bool) (key string, rc config.RecipientConfig) {
	if withKey {
		key = w.ask("  Key (blank to use the first name):", "")
	}
	rc.Name = w.require("name", "  Full name:", "")
	rc.Address = w.require("email", "  Email:", "")
	if w.err == nil {
		w.err = config.ValidateEmail(rc.Address)
	}
	return key, rc
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, out OutputWriter) error {
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm(filepath.Base(configPath)+" already exists. Overwrite?", false)
		if err != nil {
			return errPromptCancelled
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(out, "Welcome to audioprep setup!")

	cfg := config.Default()
	w := &wizard{prompter: prompter, out: out}

	w.section("Files")
	cfg.Paths.DownloadDirectory = w.require("download directory", "Where should downloaded audio go?", cfg.Paths.DownloadDirectory)
	cfg.Pipeline.CleanupIntermediate = w.confirm("Delete downloaded and normalized files after a successful run?", false)
	cfg.Fetch.AutoInstall = w.confirm("Install yt-dlp automatically if it is missing?", true)

	w.section("Publishing")
	setupPublish(w, cfg)

	w.section("Email")
	setupEmail(w, cfg)

	if w.err != nil {
		return w.err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration saved to %s\n", configPath)
	return nil
}

func setupPublish(w *wizard, cfg *config.Config) {
	cfg.Publish.Target = w.ask("Publish cleaned audio to (drive, s3, or empty for none)?", "")

	switch cfg.Publish.Target {
	case config.PublishNone:
	case config.PublishDrive:
		if credentials := w.ask("Path to Google credentials file?", cfg.Google.CredentialsFile); credentials != "" {
			cfg.Google.CredentialsFile = credentials
		}
		cfg.Google.FolderID = w.require("folder ID", "Google Drive folder ID for cleaned audio?", "")
	case config.PublishS3:
		cfg.S3.Endpoint = w.require("endpoint", "S3 endpoint (host:port)?", "")
		cfg.S3.Bucket = w.require("bucket", "Bucket name?", "")
		cfg.S3.UseSSL = w.confirm("Use TLS?", true)
	default:
		if w.err == nil {
			w.err = fmt.Errorf("unknown publish target %q", cfg.Publish.Target)
		}
	}
}

func setupEmail(w *wizard, cfg *config.Config) {
	if !w.confirm("Send email notifications?", false) {
		return
	}

	cfg.Email.FromName = w.require("from name", "Display name for outgoing emails?", "")
	cfg.Email.SenderName = cfg.Email.FromName
	cfg.Email.FromAddress = w.require("from address", "Gmail address to send from?", "")
	if w.err == nil {
		w.err = config.ValidateEmail(cfg.Email.FromAddress)
	}

	cfg.Email.DefaultCC = []config.RecipientConfig{}
	w.repeat("Add a CC recipient?", func() {
		key, rc := w.contact(true)
		rc.Key = key
		cfg.Email.DefaultCC = append(cfg.Email.DefaultCC, rc)
	})

	cfg.Email.Recipients = make(map[string]config.RecipientConfig)
	w.repeat("Add a quick-lookup recipient?", func() {
		nickname := w.require("nickname", "  Nickname:", "")
		_, rc := w.contact(false)
		cfg.Email.Recipients[nickname] = rc
	})
}
