package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/kinscan/internal/logging"
	"github.com/ppiankov/kinscan/internal/model"
)

// version is set at build time with -ldflags "-X".
var version = "v0.1.0"

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kinscan",
	Short: "Kinscan - genealogy microdata scanner",
	Long: `Kinscan reads the historical-data.org and schema.org Person microdata
embedded in genealogy pages and turns it into family trees.

For every person found it prints birth and death details and builds search
links for FamilySearch, WeRelate, MyHeritage, Geni and Google.

Kinscan reports what a page says. It does not judge whether it is right.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	defer logging.Sync()
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kinscan %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.kinscan/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit structured logs as JSON")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output.json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	_ = godotenv.Load(".env")

	if err := setupViper(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
	}

	verbose = viper.GetBool("output.verbose")
	if err := logging.Init(verbose, viper.GetBool("output.json_logs")); err != nil {
		fmt.Fprintf(os.Stderr, "Logging setup failed: %v\n", err)
	}

	if used := viper.ConfigFileUsed(); used != "" && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", used)
	}
}

// setupViper layers the built-in defaults, the config file and KINSCAN_*
// environment variables into v.
func setupViper(v *viper.Viper, file string) error {
	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return errors.Wrap(err, "marshal defaults")
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return errors.Wrap(err, "load defaults")
	}

	v.SetEnvPrefix("KINSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(filepath.Join(home, ".kinscan"))
		v.SetConfigName("config")
	}

	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrapf(err, "read config %s", v.ConfigFileUsed())
	}
	return nil
}

// loadConfig returns the effective configuration: defaults, config file,
// environment and any flags bound to v.
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

// bindFlags maps the named flags of cmd onto config keys. Only flags the user
// set override the lower layers.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return errors.Newf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind --%s", flag)
		}
	}
	return nil
}
