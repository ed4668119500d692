package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appnotif "audioprep/application/notification"
	"audioprep/domain/notification"
	"audioprep/infrastructure/config"
)

var (
	notifyTo        []string
	notifyCC        []string
	notifyTitle     string
	notifyAudioURL  string
	notifySourceURL string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Email a link to a cleaned recording",
	Long: `Send an email with the link to a published cleaned recording.

Recipients can be specified by name (first name, last name, or full name) or by
their config key. Multiple recipients can be specified using multiple --recipient
flags or comma-separated values. Default CCs from the config are always added.

Examples:
  audioprep notify --recipient jane --title "Lecture 1" --url "https://..."
  audioprep notify --recipient "jane,john" --cc mary --title "Lecture 1" \
    --url "https://..." --source "https://youtu.be/..."`,
	RunE: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.Flags().StringArrayVar(&notifyTo, "recipient", nil, "Recipient(s) by name or config key (can be repeated or comma-separated)")
	notifyCmd.Flags().StringArrayVar(&notifyCC, "cc", nil, "Additional CC recipient(s)")
	notifyCmd.Flags().StringVar(&notifyTitle, "title", "", "Recording title (required)")
	notifyCmd.Flags().StringVar(&notifyAudioURL, "url", "", "Shareable link to the cleaned audio (required)")
	notifyCmd.Flags().StringVar(&notifySourceURL, "source", "", "Original video URL")

	notifyCmd.MarkFlagRequired("recipient")
	notifyCmd.MarkFlagRequired("title")
	notifyCmd.MarkFlagRequired("url")
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	lookup := config.NewRecipientLookup(cfg)
	recipients, err := lookup.LookupRecipients(notifyTo)
	if err != nil {
		return fmt.Errorf("failed to lookup recipients: %w", err)
	}
	ccRecipients, err := lookup.ResolveCC(recipients, notifyCC)
	if err != nil {
		return fmt.Errorf("failed to lookup cc recipients: %w", err)
	}

	ctx := cmd.Context()
	sender, err := newEmailSender(ctx, cfg)
	if err != nil {
		return err
	}

	return RunNotifyWithDependencies(ctx, sender, cfg.Email.SenderName, NotifyInput{
		To:        recipients,
		CC:        ccRecipients,
		Title:     notifyTitle,
		AudioURL:  notifyAudioURL,
		SourceURL: notifySourceURL,
	}, os.Stdout)
}

// NotifyInput contains the resolved parameters for the notify command
type NotifyInput struct {
	To        []notification.Recipient
	CC        []notification.Recipient
	Title     string
	AudioURL  string
	SourceURL string
}

// RunNotifyWithDependencies runs the notify command with injected dependencies (for testing)
func RunNotifyWithDependencies(
	ctx context.Context,
	sender notification.EmailSender,
	senderName string,
	input NotifyInput,
	output OutputWriter,
) error {
	service := appnotif.NewService(sender, senderName)

	fmt.Fprintf(output, "Sending email to: %s\n", formatRecipients(input.To))
	if len(input.CC) > 0 {
		fmt.Fprintf(output, "CC: %s\n", formatRecipients(input.CC))
	}
	fmt.Fprintf(output, "Title: %s\n", input.Title)
	fmt.Fprintf(output, "Audio URL: %s\n", input.AudioURL)
	if input.SourceURL != "" {
		fmt.Fprintf(output, "Source URL: %s\n", input.SourceURL)
	}
	fmt.Fprintln(output)

	fmt.Fprintf(output, "Sending email...\n")
	err := service.Send(ctx, appnotif.SendRequest{
		To:        input.To,
		CC:        input.CC,
		Title:     input.Title,
		AudioURL:  input.AudioURL,
		SourceURL: input.SourceURL,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Fprintf(output, "Email sent successfully!\n")
	return nil
}

func formatRecipients(rs []notification.Recipient) string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = fmt.Sprintf("%s <%s>", r.Name, r.Address)
	}
	return strings.Join(names, ", ")
}
