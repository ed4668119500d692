package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"audioprep/infrastructure/config"
)

// DefaultOutput is the default output writer for config commands
var DefaultOutput OutputWriter = os.Stdout

// redacted replaces secrets in "config show"
const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the configuration and manage email recipients",
	Long: `Show the effective configuration and manage the two address books used
by "process" and "notify": quick-lookup recipients and default CCs.

Examples:
  audioprep config show
  audioprep config list recipients
  audioprep config add recipient --key jane --name "Jane Doe" --email "jane@example.com"
  audioprep config update cc archive --email "archive@example.com"
  audioprep config remove cc archive`,
}

var (
	entryKey   string
	entryName  string
	entryEmail string
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file, .env and
AUDIOPREP_* environment variables have been applied. Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunConfigShowWithDependencies(GetConfig(), DefaultOutput)
	},
}

var configAddCmd = &cobra.Command{
	Use:   "add recipient|cc",
	Short: "Add a recipient or default CC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunConfigAddWithDependencies(GetConfig(), cfgFile, args[0], entryKey, entryName, entryEmail, DefaultOutput)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list recipients|ccs",
	Short: "List recipients or default CCs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunConfigListWithDependencies(GetConfig(), cfgFile, args[0], DefaultOutput)
	},
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove recipient|cc <key>",
	Short: "Remove a recipient or default CC",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunConfigRemoveWithDependencies(GetConfig(), cfgFile, args[0], args[1], DefaultOutput)
	},
}

var configUpdateCmd = &cobra.Command{
	Use:   "update recipient|cc <key>",
	Short: "Change the name or email of a recipient or default CC",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if entryName == "" && entryEmail == "" {
			return fmt.Errorf("at least one of --name or --email is required")
		}
		return RunConfigUpdateWithDependencies(GetConfig(), cfgFile, args[0], args[1], entryName, entryEmail, DefaultOutput)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configAddCmd, configListCmd, configRemoveCmd, configUpdateCmd)

	configAddCmd.Flags().StringVar(&entryKey, "key", "", "Short key used on the command line (required)")
	configAddCmd.Flags().StringVar(&entryName, "name", "", "Display name (required)")
	configAddCmd.Flags().StringVar(&entryEmail, "email", "", "Email address (required)")
	configAddCmd.MarkFlagRequired("key")
	configAddCmd.MarkFlagRequired("name")
	configAddCmd.MarkFlagRequired("email")

	configUpdateCmd.Flags().StringVar(&entryName, "name", "", "New display name")
	configUpdateCmd.Flags().StringVar(&entryEmail, "email", "", "New email address")
}

// RunConfigShowWithDependencies prints cfg as YAML with S3 credentials masked
func RunConfigShowWithDependencies(cfg *config.Config, out OutputWriter) error {
	masked := *cfg
	if masked.S3.AccessKey != "" {
		masked.S3.AccessKey = redacted
	}
	if masked.S3.SecretKey != "" {
		masked.S3.SecretKey = redacted
	}

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func kindLabel(kind config.Kind) string {
	if kind == config.KindCC {
		return "CC"
	}
	return "recipient"
}

// RunConfigAddWithDependencies runs the add command with injected dependencies
func RunConfigAddWithDependencies(cfg *config.Config, configPath, entityType, key, name, email string, out OutputWriter) error {
	kind, err := config.ParseKind(entityType)
	if err != nil {
		return err
	}
	if err := config.NewConfigManager(cfg, configPath).Add(kind, key, name, email); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added %s %q: %s <%s>\n", kindLabel(kind), key, name, email)
	return nil
}

// RunConfigListWithDependencies prints one address book as a table
func RunConfigListWithDependencies(cfg *config.Config, configPath, entityType string, out OutputWriter) error {
	kind, err := config.ParseKind(entityType)
	if err != nil {
		return err
	}
	entries, err := config.NewConfigManager(cfg, configPath).List(kind)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "No %ss configured.\n", kindLabel(kind))
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, r := range entries {
		rows = append(rows, []string{r.Key, r.Name, r.Address})
	}
	fmt.Fprintln(out, renderTable([]string{"KEY", "NAME", "EMAIL"}, rows, nil))
	return nil
}

// RunConfigRemoveWithDependencies runs the remove command with injected dependencies
func RunConfigRemoveWithDependencies(cfg *config.Config, configPath, entityType, key string, out OutputWriter) error {
	kind, err := config.ParseKind(entityType)
	if err != nil {
		return err
	}
	if err := config.NewConfigManager(cfg, configPath).Remove(kind, key); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %s %q\n", kindLabel(kind), key)
	return nil
}

// RunConfigUpdateWithDependencies runs the update command with injected dependencies
func RunConfigUpdateWithDependencies(cfg *config.Config, configPath, entityType, key, name, email string, out OutputWriter) error {
	kind, err := config.ParseKind(entityType)
	if err != nil {
		return err
	}
	if err := config.NewConfigManager(cfg, configPath).Update(kind, key, name, email); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated %s %q\n", kindLabel(kind), key)
	return nil
}
