package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
	"github.com/fyrsmithlabs/thinkd/internal/config"
	"github.com/fyrsmithlabs/thinkd/internal/features"
	"github.com/fyrsmithlabs/thinkd/internal/logging"
	"github.com/fyrsmithlabs/thinkd/internal/session"
	"github.com/fyrsmithlabs/thinkd/internal/telemetry"
)

// effectiveConfig is what `thinkd config` prints. Secrets marshal redacted.
type effectiveConfig struct {
	Chain      chain.Config            `json:"chain"`
	Features   features.Flags          `json:"features"`
	Session    session.Config          `json:"session"`
	Server     config.ServerConfig     `json:"server"`
	Coherence  config.CoherenceConfig  `json:"coherence"`
	Embeddings config.EmbeddingsConfig `json:"embeddings"`
	Logging    *logging.Config         `json:"logging"`
	Telemetry  *telemetry.Config       `json:"telemetry"`
}

func newConfigCmd(configPath *string) *cobra.Command {
	var initDir bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration thinkd would run with after merging defaults, the
config file and environment variables. API keys are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if initDir {
				if err := config.EnsureConfigDir(); err != nil {
					return err
				}
			}
			eff, err := loadEffective(*configPath)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(eff); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&initDir, "init", false, "create ~/.config/thinkd if it does not exist")
	return cmd
}

// loadEffective loads the main config and the sections owned by the
// logging and telemetry packages.
func loadEffective(path string) (*effectiveConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logCfg := logging.NewDefaultConfig()
	if err := cfg.Section("logging", logCfg); err != nil {
		return nil, err
	}
	if err := logCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	telCfg := telemetry.NewDefaultConfig()
	if err := cfg.Section("telemetry", telCfg); err != nil {
		return nil, err
	}
	if err := telCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	return &effectiveConfig{
		Chain:      cfg.Chain,
		Features:   cfg.Features,
		Session:    cfg.Session,
		Server:     cfg.Server,
		Coherence:  cfg.Coherence,
		Embeddings: cfg.Embeddings,
		Logging:    logCfg,
		Telemetry:  telCfg,
	}, nil
}
