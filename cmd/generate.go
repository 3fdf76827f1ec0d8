package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/section-assign/section-assign/assign"
	"github.com/section-assign/section-assign/assign/roster"
)

var (
	generateCount  int    // Number of synthetic records
	generatePrefs  int    // Preferences per record
	generateSeed   int64  // Seed for the generator stream
	generateOutput string // Destination CSV, "-" for stdout
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic roster for a topology",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if cmd.Flags().Changed("topology") {
			cfg.TopologyFile = topologyPath
		}
		if cfg.TopologyFile == "" {
			logrus.Fatalf("--topology is required (or set topology_file in the config)")
		}
		topo, err := assign.LoadTopology(cfg.TopologyFile)
		if err != nil {
			logrus.Fatalf("Failed to load topology: %v", err)
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = generateSeed
		}

		rng := assign.NewStreams(cfg.Seed).For(assign.StreamGenerator)
		records, err := roster.Generate(rng, topo, generateCount, generatePrefs)
		if err != nil {
			logrus.Fatalf("Failed to generate roster: %v", err)
		}
		writeFile(generateOutput, func(w io.Writer) error {
			return roster.WriteRecordsCSV(w, records, generatePrefs)
		})
	},
}

func init() {
	generateCmd.Flags().StringVar(&topologyPath, "topology", "", "Slot topology YAML (overrides topology_file)")
	generateCmd.Flags().IntVar(&generateCount, "count", 1000, "Number of records")
	generateCmd.Flags().IntVar(&generatePrefs, "prefs", 5, "Preferences per record")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 42, "Seed for the generator")
	generateCmd.Flags().StringVar(&generateOutput, "out", "-", "Output CSV (- for stdout)")

	rootCmd.AddCommand(generateCmd)
}
