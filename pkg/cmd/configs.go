package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/quickdrop/pkg/configs"
)

const redacted = "******"

var (
	showSecrets bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect and generate configuration",
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			used := configs.GetViper().ConfigFileUsed()
			if used == "" {
				used = "(none, defaults and QUICKDROP_* environment only)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), used)

			return nil
		},
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "print the effective config as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			cfg := *configs.GetConfig()
			if !showSecrets {
				redact(&cfg)
			}

			b, err := sonic.ConfigStd.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	configCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "load and validate the config without starting anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "config ok")

			return nil
		},
	}

	configInitCmd = &cobra.Command{
		Use:   "init <file>",
		Short: "write the default config to a new file (yaml, json or toml by extension)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.WriteDefaults(args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "wrote", args[0])

			return nil
		},
	}
)

// redact 隐藏密码、密钥与 token.
func redact(cfg *configs.AppConfig) {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}

	mask(&cfg.DB.Password)
	mask(&cfg.DB.DSN)
	mask(&cfg.S3.SecretKey)
	mask(&cfg.S3.SessionToken)
	mask(&cfg.KV.Redis.Password)
	mask(&cfg.KV.NATS.Password)
	mask(&cfg.MQ.NATS.Password)
	mask(&cfg.MQ.NATS.JWT)
	mask(&cfg.MQ.NATS.Seed)
	mask(&cfg.MQ.Redis.Password)

	tokens := make([]string, len(cfg.Auth.Tokens))
	for i := range tokens {
		tokens[i] = redacted
	}

	cfg.Auth.Tokens = tokens
}

func registerConfigsCommands() {
	configShowCmd.Flags().BoolVar(&showSecrets, "secrets", false, "print passwords and tokens in clear text")

	configCmd.AddCommand(configPathCmd, configShowCmd, configCheckCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
