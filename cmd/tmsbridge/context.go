package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tmsbridge/internal/config"
	"tmsbridge/internal/daemonrun"
	"tmsbridge/internal/logging"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/tms"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	// client replaces the configured HTTP TMS client; tests set it.
	client tms.Client

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool, client tms.Client) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		client:     client,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withRuntime opens the store and broker for the duration of fn. CLI logs go
// to stderr only, at warn level unless configured lower.
func (c *commandContext) withRuntime(fn func(*daemonrun.Runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Level:       cliLogLevel(cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	rt, err := daemonrun.Open(cfg, logger, c.client)
	if err != nil {
		return err
	}
	return errors.Join(fn(rt), rt.Close())
}

func cliLogLevel(configured string) string {
	if strings.EqualFold(strings.TrimSpace(configured), "debug") {
		return "debug"
	}
	return "warn"
}

// refFlags binds the --kind/--id pair most commands share.
type refFlags struct {
	kind string
	id   string
}

func (r *refFlags) bind(cmd *cobra.Command, required bool) {
	cmd.Flags().StringVar(&r.kind, "kind", "", "Host entity kind (e.g. node)")
	cmd.Flags().StringVar(&r.id, "id", "", "Host entity id")
	if required {
		_ = cmd.MarkFlagRequired("kind")
		_ = cmd.MarkFlagRequired("id")
	}
}

func (r *refFlags) set() bool {
	return strings.TrimSpace(r.kind) != "" || strings.TrimSpace(r.id) != ""
}

func (r *refFlags) ref() (metadata.Ref, error) {
	ref := metadata.Ref{Kind: strings.TrimSpace(r.kind), ID: strings.TrimSpace(r.id)}
	if err := ref.Validate(); err != nil {
		return metadata.Ref{}, err
	}
	return ref, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
