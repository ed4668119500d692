//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"audioprep/infrastructure/config"

	"github.com/cucumber/godog"
)

type configContext struct {
	tempDir    string
	configPath string
	cfg        *config.Config
	loadErr    error
	restoreEnv map[string]*string
}

// SharedConfigContext is reset before each scenario via Before hook
var SharedConfigContext = &configContext{}

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-test-*")
		if err != nil {
			return c, err
		}
		SharedConfigContext = &configContext{
			tempDir:    tempDir,
			configPath: filepath.Join(tempDir, "config.yaml"),
			restoreEnv: map[string]*string{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		SharedConfigContext.cleanup()
		return c, nil
	})

	ctx.Step(`^no configuration file exists$`, func() error { return SharedConfigContext.noConfigurationFileExists() })
	ctx.Step(`^a configuration file containing:$`, func(doc *godog.DocString) error {
		return SharedConfigContext.aConfigurationFileContaining(doc)
	})
	ctx.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, func(key, value string) error {
		return SharedConfigContext.theEnvironmentVariableIs(key, value)
	})
	ctx.Step(`^I load the configuration or defaults$`, func() error { return SharedConfigContext.iLoadTheConfigurationOrDefaults() })
	ctx.Step(`^I attempt to load the configuration$`, func() error { return SharedConfigContext.iAttemptToLoadTheConfiguration() })
	ctx.Step(`^the download directory should be "([^"]*)"$`, func(expected string) error {
		return SharedConfigContext.expectField("download directory", SharedConfigContext.field(func(c *config.Config) string { return c.Paths.DownloadDirectory }), expected)
	})
	ctx.Step(`^the fetch format should be "([^"]*)"$`, func(expected string) error {
		return SharedConfigContext.expectField("fetch format", SharedConfigContext.field(func(c *config.Config) string { return c.Fetch.Format }), expected)
	})
	ctx.Step(`^the publish target should be "([^"]*)"$`, func(expected string) error {
		return SharedConfigContext.expectField("publish target", SharedConfigContext.field(func(c *config.Config) string { return c.Publish.Target }), expected)
	})
	ctx.Step(`^I should receive a configuration error$`, func() error { return SharedConfigContext.iShouldReceiveAConfigurationError() })
}

func (c *configContext) cleanup() {
	for key, prev := range c.restoreEnv {
		if prev == nil {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, *prev)
		}
	}
	if c.tempDir != "" {
		os.RemoveAll(c.tempDir)
	}
}

func (c *configContext) noConfigurationFileExists() error {
	if err := os.Remove(c.configPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *configContext) aConfigurationFileContaining(doc *godog.DocString) error {
	return os.WriteFile(c.configPath, []byte(doc.Content), 0644)
}

func (c *configContext) theEnvironmentVariableIs(key, value string) error {
	if _, seen := c.restoreEnv[key]; !seen {
		if prev, ok := os.LookupEnv(key); ok {
			c.restoreEnv[key] = &prev
		} else {
			c.restoreEnv[key] = nil
		}
	}
	return os.Setenv(key, value)
}

func (c *configContext) iLoadTheConfigurationOrDefaults() error {
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.ApplyEnv()
	c.cfg = cfg
	return nil
}

func (c *configContext) iAttemptToLoadTheConfiguration() error {
	c.cfg, c.loadErr = config.Load(c.configPath)
	return nil
}

func (c *configContext) field(get func(*config.Config) string) func() (string, error) {
	return func() (string, error) {
		if c.cfg == nil {
			return "", fmt.Errorf("configuration was not loaded")
		}
		return get(c.cfg), nil
	}
}

func (c *configContext) expectField(name string, get func() (string, error), expected string) error {
	actual, err := get()
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("expected %s %q, got %q", name, expected, actual)
	}
	return nil
}

func (c *configContext) iShouldReceiveAConfigurationError() error {
	if c.loadErr == nil {
		return fmt.Errorf("expected an error but got none")
	}
	return nil
}
