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

type configCrudContext struct {
	tempDir    string
	configPath string
	config     *config.Config
	output     *bytes.Buffer
	err        error
}

var SharedConfigCrudContext = &configCrudContext{}

func InitializeConfigCrudScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-crud-test-*")
		if err != nil {
			return c, err
		}
		SharedConfigCrudContext = &configCrudContext{
			tempDir:    tempDir,
			configPath: filepath.Join(tempDir, "config.yaml"),
			output:     &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedConfigCrudContext.tempDir != "" {
			os.RemoveAll(SharedConfigCrudContext.tempDir)
		}
		return c, nil
	})

	c := func() *configCrudContext { return SharedConfigCrudContext }

	// Background
	ctx.Step(`^a config file exists with initial data$`, func() error { return c().aConfigFileExistsWithInitialData() })

	// Recipient steps
	ctx.Step(`^I run config add recipient with key "([^"]*)" name "([^"]*)" and email "([^"]*)"$`, func(key, name, email string) error {
		return c().run(func(cfg *config.Config, out *bytes.Buffer) error {
			return cmd.RunConfigAddWithDependencies(cfg, c().configPath, "recipient", key, name, email, out)
		})
	})
	ctx.Step(`^recipient "([^"]*)" exists with name "([^"]*)" and email "([^"]*)"$`, func(key, name, email string) error {
		return c().seed(func(cfg *config.Config) {
			cfg.Email.Recipients[key] = config.RecipientConfig{Name: name, Address: email}
		})
	})
	ctx.Step(`^I run config list recipients$`, func() error {
		return c().run(func(cfg *config.Config, out *bytes.Buffer) error {
			return cmd.RunConfigListWithDependencies(cfg, c().configPath, "recipients", out)
		})
	})
	ctx.Step(`^I run config list senders$`, func() error {
		return c().run(func(cfg *config.Config, out *bytes.Buffer) error {
			return cmd.RunConfigListWithDependencies(cfg, c().configPath, "senders", out)
		})
	})
	ctx.Step(`^I run config remove recipient "([^"]*)"$`, func(key string) error {
		return c().run(func(cfg *config.Config, out *bytes.Buffer) error {
			return cmd.RunConfigRemoveWithDependencies(cfg, c().configPath, "recipient", key, out)
		})
	})
	ctx.Step(`^I run config update recipient "([^"]*)" with email "([^"]*)"$`, func(key, email string) error {
		return c().run(func(cfg *config.Config, out *bytes.Buffer) error {
			return cmd.RunConfigUpdateWithDependencies(cfg, c().configPath, "recipient", key, "", email, out)
		})
	})
	ctx.Step(`^the config should contain recipient "([^"]*)" with name "([^"]*)" and email "([^"]*)"$`, func(key, name, email string) error {
		return c().theConfigShouldContainRecipient(key, name, email)
	})
	ctx.Step(`^the config should not contain recipient "([^"]*)"$`, func(key string) error {
		return c().theConfigShouldNotContainRecipient(key)
	})

	// CC steps
	ctx.Step(`^I run config add cc with key "([^"]*)" name "([^"]*)" and email "([^"]*)"$`, func(key, name, email string) error {
		return c().run(func(cfg *config.Config, out *bytes.Buffer) error {
			return cmd.RunConfigAddWithDependencies(cfg, c().configPath, "cc", key, name, email, out)
		})
	})
	ctx.Step(`^cc exists with name "([^"]*)" and email "([^"]*)"$`, func(name, email string) error {
		return c().seed(func(cfg *config.Config) {
			cfg.Email.DefaultCC = append(cfg.Email.DefaultCC, config.RecipientConfig{Name: name, Address: email})
		})
	})
	ctx.Step(`^I run config list ccs$`, func() error {
		return c().run(func(cfg *config.Config, out *bytes.Buffer) error {
			return cmd.RunConfigListWithDependencies(cfg, c().configPath, "ccs", out)
		})
	})
	ctx.Step(`^I run config remove cc "([^"]*)"$`, func(key string) error {
		return c().run(func(cfg *config.Config, out *bytes.Buffer) error {
			return cmd.RunConfigRemoveWithDependencies(cfg, c().configPath, "cc", key, out)
		})
	})
	ctx.Step(`^I run config update cc "([^"]*)" with email "([^"]*)"$`, func(key, email string) error {
		return c().run(func(cfg *config.Config, out *bytes.Buffer) error {
			return cmd.RunConfigUpdateWithDependencies(cfg, c().configPath, "cc", key, "", email, out)
		})
	})
	ctx.Step(`^the config should contain cc with name "([^"]*)" and email "([^"]*)"$`, func(name, email string) error {
		return c().theConfigShouldContainCC(name, email)
	})
	ctx.Step(`^the config should not contain cc with name "([^"]*)"$`, func(name string) error {
		return c().theConfigShouldNotContainCC(name)
	})

	// Common assertions
	ctx.Step(`^the command should succeed$`, func() error { return c().theCommandShouldSucceed() })
	ctx.Step(`^the command should fail with "([^"]*)"$`, func(msg string) error { return c().theCommandShouldFailWith(msg) })
	ctx.Step(`^the command output should contain "([^"]*)"$`, func(text string) error { return c().theCommandOutputShouldContain(text) })
}

func (c *configCrudContext) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.config = cfg
	return nil
}

// run reloads the file and invokes a config command against it, keeping the error for later assertions
func (c *configCrudContext) run(command func(*config.Config, *bytes.Buffer) error) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = command(c.config, c.output)
	return nil
}

// seed edits the file directly, bypassing the manager's validation
func (c *configCrudContext) seed(edit func(*config.Config)) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	if c.config.Email.Recipients == nil {
		c.config.Email.Recipients = map[string]config.RecipientConfig{}
	}
	edit(c.config)
	return config.Save(c.config, c.configPath)
}

// --- Background ---

func (c *configCrudContext) aConfigFileExistsWithInitialData() error {
	cfg := config.Default()
	cfg.Paths.DownloadDirectory = filepath.Join(c.tempDir, "downloads")
	cfg.Email = config.EmailConfig{
		FromName:    "Lecture Bot",
		FromAddress: "bot@example.com",
		SenderName:  "Lecture Bot",
		Recipients:  map[string]config.RecipientConfig{},
	}
	c.config = cfg
	return config.Save(cfg, c.configPath)
}

// --- Assertions ---

func (c *configCrudContext) theConfigShouldContainRecipient(key, name, email string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	r, ok := c.config.Email.Recipients[key]
	if !ok {
		return fmt.Errorf("recipient %q not found in config", key)
	}
	if r.Name != name || r.Address != email {
		return fmt.Errorf("expected recipient %q to be %s <%s>, got %s <%s>", key, name, email, r.Name, r.Address)
	}
	return nil
}

func (c *configCrudContext) theConfigShouldNotContainRecipient(key string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	if _, ok := c.config.Email.Recipients[key]; ok {
		return fmt.Errorf("recipient %q should not exist in config", key)
	}
	return nil
}

func (c *configCrudContext) theConfigShouldContainCC(name, email string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	for _, cc := range c.config.Email.DefaultCC {
		if cc.Name == name {
			if cc.Address != email {
				return fmt.Errorf("expected cc %q to have email %q, got %q", name, email, cc.Address)
			}
			return nil
		}
	}
	return fmt.Errorf("cc %q not found in config", name)
}

func (c *configCrudContext) theConfigShouldNotContainCC(name string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	for _, cc := range c.config.Email.DefaultCC {
		if cc.Name == name {
			return fmt.Errorf("cc %q should not exist in config", name)
		}
	}
	return nil
}

func (c *configCrudContext) theCommandShouldSucceed() error {
	if c.err != nil {
		return fmt.Errorf("expected command to succeed, got error: %v", c.err)
	}
	return nil
}

func (c *configCrudContext) theCommandShouldFailWith(msg string) error {
	if c.err == nil {
		return fmt.Errorf("expected command to fail with %q, but it succeeded", msg)
	}
	if !strings.Contains(c.err.Error(), msg) {
		return fmt.Errorf("expected error containing %q, got: %v", msg, c.err)
	}
	return nil
}

func (c *configCrudContext) theCommandOutputShouldContain(text string) error {
	if !strings.Contains(c.output.String(), text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, c.output.String())
	}
	return nil
}
