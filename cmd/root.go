package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/section-assign/section-assign/assign"
	"github.com/section-assign/section-assign/assign/roster"
	"github.com/section-assign/section-assign/internal/config"
)

var (
	logLevel   string // Log verbosity level
	configPath string // YAML run configuration

	// Shared input flags
	rosterPath   string // Roster CSV
	topologyPath string // Slot topology YAML
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "section-assign",
	Short: "Assign people to time slots by optimal preference matching",
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, --config file and environment, then applies the
// log level. An explicit --log flag wins over every other source.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if cmd.Flags().Changed("log") {
		cfg.LogLevel = logLevel
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", cfg.LogLevel)
	}
	logrus.SetLevel(level)
	return cfg
}

// loadInputs reads the topology and the roster named by flags or config.
func loadInputs(cmd *cobra.Command, cfg *config.Config) (*assign.Topology, []assign.Record) {
	if cmd.Flags().Changed("topology") {
		cfg.TopologyFile = topologyPath
	}
	if cfg.TopologyFile == "" {
		logrus.Fatalf("--topology is required (or set topology_file in the config)")
	}
	if rosterPath == "" {
		logrus.Fatalf("--roster is required")
	}
	topo, err := assign.LoadTopology(cfg.TopologyFile)
	if err != nil {
		logrus.Fatalf("Failed to load topology: %v", err)
	}
	records, err := roster.ReadFile(rosterPath, cfg.Roster)
	if err != nil {
		logrus.Fatalf("Failed to read roster: %v", err)
	}
	logrus.Infof("Loaded %d slot groups (%d seats) and %d roster rows",
		len(topo.Groups), topo.TotalCapacity(), len(records))
	return topo, records
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rosterPath, "roster", "", "Roster CSV exported from the sign-up form")
	cmd.Flags().StringVar(&topologyPath, "topology", "", "Slot topology YAML (overrides topology_file)")
}

// init sets up persistent flags
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML run configuration (default $"+config.EnvConfigFile+")")
}
