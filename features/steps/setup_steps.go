//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"audioprep/cmd"
	"audioprep/infrastructure/config"

	"github.com/cucumber/godog"
)

type setupContext struct {
	tempDir         string
	configPath      string
	originalContent string
	output          *bytes.Buffer
	err             error
}

var SharedSetupContext = &setupContext{}

type scriptedAnswer struct {
	prompt string
	answer string
}

// ScriptedPrompter implements cmd.Prompter by matching prompt text.
// Each answer is used once, in order; unmatched prompts take their default.
type ScriptedPrompter struct {
	answers []scriptedAnswer
}

func NewScriptedPrompter(table *godog.Table) *ScriptedPrompter {
	p := &ScriptedPrompter{}
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		p.answers = append(p.answers, scriptedAnswer{
			prompt: strings.TrimSpace(row.Cells[0].Value),
			answer: strings.TrimSpace(row.Cells[1].Value),
		})
	}
	return p
}

func (p *ScriptedPrompter) take(message string) (string, bool) {
	for i, a := range p.answers {
		if strings.Contains(message, a.prompt) {
			p.answers = append(p.answers[:i], p.answers[i+1:]...)
			return a.answer, true
		}
	}
	return "", false
}

func (p *ScriptedPrompter) Input(message string, defaultValue string) (string, error) {
	if answer, ok := p.take(message); ok {
		return answer, nil
	}
	return defaultValue, nil
}

func (p *ScriptedPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if answer, ok := p.take(message); ok {
		return strings.EqualFold(answer, "y"), nil
	}
	return defaultValue, nil
}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		SharedSetupContext = &setupContext{
			tempDir:    tempDir,
			configPath: filepath.Join(tempDir, "config", "config.yaml"),
			output:     &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedSetupContext.tempDir != "" {
			os.RemoveAll(SharedSetupContext.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^no config file exists for setup$`, func() error { return SharedSetupContext.noConfigFileExistsForSetup() })
	ctx.Step(`^a config file already exists for setup$`, func() error { return SharedSetupContext.aConfigFileAlreadyExistsForSetup() })
	ctx.Step(`^I run the setup command with answers:$`, func(table *godog.Table) error {
		return SharedSetupContext.iRunTheSetupCommandWithAnswers(table)
	})
	ctx.Step(`^a config file should exist$`, func() error { return SharedSetupContext.aConfigFileShouldExist() })
	ctx.Step(`^the config should have download_directory "([^"]*)"$`, func(expected string) error {
		return SharedSetupContext.expectConfig("download_directory", func(c *config.Config) string { return c.Paths.DownloadDirectory }, expected)
	})
	ctx.Step(`^the config should have publish target "([^"]*)"$`, func(expected string) error {
		return SharedSetupContext.expectConfig("publish.target", func(c *config.Config) string { return c.Publish.Target }, expected)
	})
	ctx.Step(`^the config should have folder_id "([^"]*)"$`, func(expected string) error {
		return SharedSetupContext.expectConfig("google.folder_id", func(c *config.Config) string { return c.Google.FolderID }, expected)
	})
	ctx.Step(`^the config should have a CC recipient "([^"]*)"$`, func(name string) error {
		return SharedSetupContext.theConfigShouldHaveACCRecipient(name)
	})
	ctx.Step(`^the config should have a quick-lookup recipient "([^"]*)"$`, func(nickname string) error {
		return SharedSetupContext.theConfigShouldHaveAQuickLookupRecipient(nickname)
	})
	ctx.Step(`^the existing config should be unchanged$`, func() error { return SharedSetupContext.theExistingConfigShouldBeUnchanged() })
	ctx.Step(`^the output should mention "([^"]*)"$`, func(text string) error {
		if !strings.Contains(SharedSetupContext.output.String(), text) {
			return fmt.Errorf("expected output to mention %q, got:\n%s", text, SharedSetupContext.output.String())
		}
		return nil
	})
}

func (s *setupContext) noConfigFileExistsForSetup() error {
	return os.MkdirAll(filepath.Dir(s.configPath), 0755)
}

func (s *setupContext) aConfigFileAlreadyExistsForSetup() error {
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0755); err != nil {
		return err
	}

	content := `paths:
  download_directory: "/original/downloads"
publish:
  target: drive
google:
  credentials_file: "original-creds.json"
  folder_id: "original-folder-id"
email:
  from_name: "Original Bot"
  from_address: "original@example.com"
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0644)
}

func (s *setupContext) iRunTheSetupCommandWithAnswers(table *godog.Table) error {
	s.err = cmd.RunSetupWithPrompter(NewScriptedPrompter(table), s.configPath, s.output)
	if s.err != nil {
		return fmt.Errorf("setup command failed: %w", s.err)
	}
	return nil
}

func (s *setupContext) aConfigFileShouldExist() error {
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist at %s", s.configPath)
	}
	return nil
}

func (s *setupContext) expectConfig(key string, get func(*config.Config) string, expected string) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if actual := get(cfg); actual != expected {
		return fmt.Errorf("expected %s %q, got %q", key, expected, actual)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveACCRecipient(expectedName string) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	for _, cc := range cfg.Email.DefaultCC {
		if cc.Name == expectedName {
			return nil
		}
	}
	return fmt.Errorf("CC recipient %q not found in %v", expectedName, cfg.Email.DefaultCC)
}

func (s *setupContext) theConfigShouldHaveAQuickLookupRecipient(nickname string) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if _, ok := cfg.Email.Recipients[nickname]; !ok {
		return fmt.Errorf("quick-lookup recipient %q not found in %v", nickname, cfg.Email.Recipients)
	}
	return nil
}

func (s *setupContext) theExistingConfigShouldBeUnchanged() error {
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("config content was changed")
	}
	return nil
}
