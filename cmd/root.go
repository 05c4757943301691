package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nephila016/emailvalidate/internal/config"
	"github.com/nephila016/emailvalidate/internal/logging"
)

var (
	cfgFile    string
	debugLevel int
	quiet      bool
	noColor    bool
	version    string
	buildTime  string

	// set by PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "emailvalidate",
	Short: "Email validation service and CLI",
	Long: `emailvalidate validates email addresses for signup forms: format,
blacklisted keywords, free/disposable/role classification, a remote
disposable-domain lookup and an optional Mailosaur verification simulation.

Examples:
  emailvalidate serve --port 3000
  emailvalidate check user@example.com
  emailvalidate bulk -f emails.txt -o results.csv
  emailvalidate domain mailinator.com`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}

		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		if err := readConfigFile(); err != nil {
			return err
		}

		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if debugLevel > 0 {
			loaded.LogLevel = "debug"
		}
		cfg = loaded

		// one-shot commands print to the console; only serve logs at the
		// configured level unless -d is given
		if cmd.Name() != serveCmd.Name() && debugLevel == 0 {
			logger = logging.Quiet(cfg.Env)
			return nil
		}
		logger, err = logging.BuildLogger(cfg.LogLevel, cfg.Env)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		if debugLevel > 1 {
			logger.Debug("effective configuration", zap.String("config", cfg.Dump()))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersionInfo sets version information
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", v, bt)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default $HOME/.emailvalidate.yaml)")
	rootCmd.PersistentFlags().CountVarP(&debugLevel, "debug", "d", "Enable debug logging (-dd also dumps the effective config)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode - minimal output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().String("env", "", "Environment: dev or prod (env ENV)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (env LOG_LEVEL)")
	rootCmd.PersistentFlags().String("lists-file", "", "YAML file overriding the reference lists (env LISTS_FILE)")

	bindFlag(rootCmd.PersistentFlags().Lookup("env"), "env")
	bindFlag(rootCmd.PersistentFlags().Lookup("log-level"), "log_level")
	bindFlag(rootCmd.PersistentFlags().Lookup("lists-file"), "lists_file")
}

// readConfigFile reads --config, or .emailvalidate.yaml from home or the
// working directory. A missing default file is not an error.
func readConfigFile() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".emailvalidate")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
