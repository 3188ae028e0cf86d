// Package commands implements the CLI commands for realty.
package commands

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/realty/internal/config"
	"github.com/jmylchreest/realty/internal/logger"
	"github.com/jmylchreest/realty/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "realty",
	Short: "Collect rental listings from realtylink.org",
	Long: `Realty walks the paginated rental search on realtylink.org in a headless
browser, collects listing links up to a limit, then fetches each listing and
extracts its title, location, description, photos, price, bedrooms and floor
area.

Configuration is read from flags, REALTY_* environment variables (LIMIT,
START_URL and APARTMENT_SCRAPE_LIMIT are also accepted), a .env file and
.realty.yaml, in that order of precedence.

Examples:
  # Collect 20 listings as JSON on stdout
  realty crawl --limit 20

  # Write CSV and upsert into Postgres
  LIMIT=100 realty crawl --format csv -o listings.csv \
      --postgres-dsn postgres://localhost/realty`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default ./.realty.yaml or $HOME/.realty.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("env_file", rootCmd.PersistentFlags().Lookup("env-file"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})

	if err := config.LoadDotEnv(viper.GetString("env_file")); err != nil {
		logger.Warn("failed to load env file", "error", err)
	}

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".realty")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logger.Warn("failed to read config file", "error", err)
		}
		return
	}
	logger.Debug("using config file", "path", viper.ConfigFileUsed())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
