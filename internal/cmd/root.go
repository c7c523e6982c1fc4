package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/IIExpanse/honest-sign-test-task/internal/appid"
	"github.com/IIExpanse/honest-sign-test-task/internal/config"
	"github.com/IIExpanse/honest-sign-test-task/internal/observability"
)

var (
	cfgFile string
	envFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appid.BinaryName,
	Short: appid.Description,
	Long: fmt.Sprintf(`%s - %s

Documents are posted to the registry through a shared sliding-window rate
gate. Use the subcommands to submit documents, run the HTTP service or
inspect the submission journal.`, appid.BinaryName, appid.Description),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", appid.ConfigName))
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before environment overrides (default ./.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

// initConfig points the config loader at the flag-selected files.
func initConfig() {
	observability.InitCLILogger(appid.BinaryName, verbose)

	config.SetConfigFile(cfgFile)
	if envFile != "" {
		config.SetEnvFile(envFile)
	}

	if cfgFile != "" {
		observability.CLILogger.Debug("Using config file", zap.String("path", cfgFile))
	}
}

// loadConfig loads the layered configuration with changed flags applied as
// runtime overrides. bindings maps flag names to dotted config keys.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	cfg, err := config.Load(cmd.Context(), flagOverrides(cmd.Flags(), bindings))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func flagOverrides(flags *pflag.FlagSet, bindings map[string]string) map[string]any {
	overrides := map[string]any{}
	for name, key := range bindings {
		flag := flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		setNested(overrides, key, flag.Value.String())
	}
	return overrides
}

// setNested stores value under a dotted key as nested maps.
func setNested(target map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	current := target
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
