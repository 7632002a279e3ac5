package replica

import (
	"fmt"
	"os"

	"github.com/edgeflare/replica/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var cfgFile string
var envFile string
var logLevel string
var cfg *config.Config
var v = config.New()
var rootCmd = &cobra.Command{
	Use:   "replica",
	Short: "replica is a console for a Kafka Connect CDC replication topology",
	Long:  `replica draws the connectors of a replication topology and configures its source, targets and sinks`,
	Run: func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			fmt.Println(config.Version)
			return
		}

		// If no subcommand is provided, print help
		cmd.Help()
	},
}

func Main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/replica.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "info", "log at this level (debug, info, warn, error, fatal, none)")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Print the version number")

	f := rootCmd.PersistentFlags()
	f.String("connect.url", "", "Kafka Connect REST URL")
	f.String("ksql.url", "", "ksqlDB server URL")
	f.String("registry.url", "", "schema registry URL")
	f.StringSlice("kafka.brokers", nil, "Kafka brokers the console reads status from")
	v.BindPFlag("connect.url", f.Lookup("connect.url"))
	v.BindPFlag("ksql.url", f.Lookup("ksql.url"))
	v.BindPFlag("registry.url", f.Lookup("registry.url"))
	v.BindPFlag("kafka.brokers", f.Lookup("kafka.brokers"))

	rootCmd.AddCommand(serveCmd, diagramCmd, setupCmd, watchCmd)
}

func initConfig() {
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Println("Error loading env file:", err)
		os.Exit(1)
	}
	var err error
	cfg, err = config.LoadWith(v, cfgFile)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
}

// newLogger builds the production logger at --log-level.
func newLogger() (*zap.Logger, error) {
	if logLevel == "none" {
		return zap.NewNop(), nil
	}
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
