package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/section-assign/section-assign/assign"
	_ "github.com/section-assign/section-assign/assign/pbsolver"
	"github.com/section-assign/section-assign/assign/roster"
	"github.com/section-assign/section-assign/internal/config"
	"github.com/section-assign/section-assign/internal/metrics"
)

var (
	solveSeed       int64         // Seed for the sub-slot tie-break and shuffle order
	solvePrioritize bool          // Read priority tiers from the roster
	solveAnalyze    bool          // Print rank analytics
	solveTimeout    time.Duration // Solver deadline
	solveQuota      int           // Default required groups per entity
	solveTransform  string        // Rank-to-cost transform
	solveStrict     bool          // Abort on any invalid roster row
	solveOrder      string        // Cohort ordering

	assignmentOut string // Per-entity assignment CSV
	slotDir       string // Directory for per-slot rosters
	summaryOut    string // YAML run summary
	lpOut         string // LP dump of the built program
	metricsFile   string // Prometheus textfile
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Compute an optimal assignment for a roster",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		applySolveFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("%v", err)
		}
		topo, records := loadInputs(cmd, cfg)

		runID := uuid.NewString()
		logrus.WithField("run", runID).Infof("Starting assignment: seed=%d, transform=%s, quota=%d, prioritize=%v",
			cfg.Seed, cfg.CostTransform, cfg.Quota, cfg.Prioritize)

		res, err := assign.Run(cmd.Context(), records, topo, cfg.PipelineOptions(runID))
		if cfg.MetricsFile != "" {
			rec := metrics.NewRecorder()
			rec.ObserveRun(res, err)
			if werr := rec.WriteTextfile(cfg.MetricsFile); werr != nil {
				logrus.Errorf("Failed to write metrics to %s: %v", cfg.MetricsFile, werr)
			}
		}
		if res != nil && res.Program != nil && lpOut != "" {
			writeFile(lpOut, res.Program.WriteLP)
		}
		if err != nil {
			logrus.Fatalf("%s", runErrorMessage(err))
		}

		writeOutputs(os.Stdout, runID, cfg, topo, res)
		logrus.Info("Assignment complete.")
	},
}

// applySolveFlags copies explicitly set flags over the loaded config.
// Unset flags never overwrite file or environment values.
func applySolveFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = solveSeed
	}
	if flags.Changed("prioritize") {
		cfg.Prioritize = solvePrioritize
	}
	if flags.Changed("analyze") || flags.Changed("debug") {
		cfg.Analyze = solveAnalyze
	}
	if flags.Changed("timeout") {
		cfg.SolveTimeout = solveTimeout
	}
	if flags.Changed("quota") {
		cfg.Quota = solveQuota
	}
	if flags.Changed("cost") {
		cfg.CostTransform = solveTransform
	}
	if flags.Changed("strict") {
		cfg.Strict = solveStrict
	}
	if flags.Changed("order") {
		cfg.Order = solveOrder
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
}

// runErrorMessage turns a pipeline failure into an operator-facing message.
func runErrorMessage(err error) string {
	var capErr *assign.CapacityError
	switch {
	case errors.Is(err, assign.ErrInfeasible):
		return fmt.Sprintf("No feasible assignment exists; add capacity or lower quotas: %v", err)
	case errors.Is(err, assign.ErrSolverTimeout):
		return fmt.Sprintf("Solver did not finish in time; raise --timeout: %v", err)
	case errors.As(err, &capErr):
		return fmt.Sprintf("Solution could not be placed into slots (internal accounting error): %v", err)
	case errors.Is(err, assign.ErrInputInvalid):
		return fmt.Sprintf("Roster rejected: %v", err)
	case errors.Is(err, assign.ErrSolverUnavailable):
		return fmt.Sprintf("Solver failed: %v", err)
	}
	return fmt.Sprintf("Assignment failed: %v", err)
}

// writeOutputs writes every requested artifact of a successful run.
func writeOutputs(stdout io.Writer, runID string, cfg *config.Config, topo *assign.Topology, res *assign.Result) {
	if assignmentOut != "" {
		writeFile(assignmentOut, func(w io.Writer) error { return roster.WriteAssignmentCSV(w, res.Cohort) })
	} else if err := roster.WriteAssignmentCSV(stdout, res.Cohort); err != nil {
		logrus.Fatalf("Failed to write assignment: %v", err)
	}
	if slotDir != "" {
		if err := roster.WriteSlotRosters(slotDir, res.Assignment); err != nil {
			logrus.Fatalf("Failed to write slot rosters: %v", err)
		}
	}
	if summaryOut != "" {
		summary := roster.NewSummary(runID, cfg.Seed, res, topo)
		writeFile(summaryOut, func(w io.Writer) error { return roster.WriteSummaryYAML(w, summary) })
	}
	if res.Analytics != nil {
		res.Analytics.Print(os.Stderr)
	}
}

// writeFile creates path and fills it with write; "-" means stdout.
func writeFile(path string, write func(io.Writer) error) {
	if path == "-" {
		if err := write(os.Stdout); err != nil {
			logrus.Fatalf("Failed to write output: %v", err)
		}
		return
	}
	f, err := os.Create(path)
	if err != nil {
		logrus.Fatalf("Failed to create %s: %v", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		logrus.Fatalf("Failed to write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		logrus.Fatalf("Failed to close %s: %v", path, err)
	}
	logrus.Infof("Wrote %s", path)
}

func init() {
	addInputFlags(solveCmd)
	solveCmd.Flags().Int64Var(&solveSeed, "seed", 42, "Seed for the sub-slot tie-break and shuffle order")
	solveCmd.Flags().BoolVarP(&solvePrioritize, "prioritize", "p", false, "Read priority tiers from the roster (higher tier wins contested slots)")
	solveCmd.Flags().BoolVarP(&solveAnalyze, "analyze", "a", false, "Print rank analytics and log every placement")
	solveCmd.Flags().BoolVar(&solveAnalyze, "debug", false, "Alias for --analyze")
	solveCmd.Flags().DurationVar(&solveTimeout, "timeout", 0, "Solver deadline (0 = none)")
	solveCmd.Flags().IntVar(&solveQuota, "quota", 1, "Groups each entity must receive unless the roster overrides it")
	solveCmd.Flags().StringVar(&solveTransform, "cost", "linear", "Rank-to-cost transform (linear, quadratic, cubic)")
	solveCmd.Flags().BoolVar(&solveStrict, "strict", false, "Abort when any roster row is invalid")
	solveCmd.Flags().StringVar(&solveOrder, "order", "input", "Cohort order (input, last-name, shuffle)")

	solveCmd.Flags().StringVar(&assignmentOut, "out", "", "Assignment CSV (default stdout)")
	solveCmd.Flags().StringVar(&slotDir, "slot-dir", "", "Directory for one CSV roster per slot")
	solveCmd.Flags().StringVar(&summaryOut, "summary", "", "YAML run summary")
	solveCmd.Flags().StringVar(&lpOut, "lp-out", "", "Also write the built program in LP format")
	solveCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Prometheus textfile for run metrics")

	rootCmd.AddCommand(solveCmd)
}
