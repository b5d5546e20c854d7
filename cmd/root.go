package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/crediq/selfheal/internal/config"
	"github.com/crediq/selfheal/internal/observability"
)

var (
	cfgFile string
	// cfg is populated by PersistentPreRunE and read by subcommands.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:     "selfheal",
	Short:   "Self-healing element resolution for browser test suites.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env file is optional; real env vars win either way.
		_ = godotenv.Load()

		if err := initializeConfig(); err != nil {
			return err
		}

		cfg = config.Default()
		if err := viper.Unmarshal(&cfg); err != nil {
			observability.InitializeLogger(config.Default().Logger)
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			observability.InitializeLogger(cfg.Logger)
			return fmt.Errorf("invalid configuration: %w", err)
		}

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("configuration loaded",
			zap.String("driver", cfg.Driver.Kind),
			zap.String("config_file", viper.ConfigFileUsed()))
		return nil
	},
}

// Execute runs the root command under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./selfheal.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func initializeConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("selfheal")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SELFHEAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}
	return nil
}
