package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/section-assign/section-assign/assign"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a topology and roster without solving",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		topo, records := loadInputs(cmd, cfg)

		opts := cfg.NormalizeOptions()
		strict := opts.Strict
		opts.Strict = false
		cohort, report, err := assign.Normalize(records, topo, opts,
			assign.NewStreams(cfg.Seed).For(assign.StreamRoster))
		if err != nil {
			logrus.Fatalf("Normalization failed: %v", err)
		}
		printValidation(os.Stdout, topo, cohort, report)

		if need, have := cohort.TotalQuota(), topo.TotalCapacity(); need > have {
			logrus.Fatalf("Infeasible: required quota %d exceeds pooled capacity %d", need, have)
		}
		if strict && len(report.Rejected) > 0 {
			logrus.Fatalf("%d roster rows rejected", len(report.Rejected))
		}
	},
}

// printValidation writes the normalizer report and the first-choice demand
// per group next to its capacity.
func printValidation(w io.Writer, topo *assign.Topology, cohort *assign.Cohort, report *assign.InputReport) {
	fmt.Fprintln(w, "=== Roster Validation ===")
	fmt.Fprintf(w, "Records              : %d\n", report.Records)
	fmt.Fprintf(w, "Accepted             : %d\n", report.Accepted)
	fmt.Fprintf(w, "Replaced duplicates  : %d\n", report.Duplicates)
	fmt.Fprintf(w, "Rejected             : %d\n", len(report.Rejected))
	for _, re := range report.Rejected {
		fmt.Fprintf(w, "  %v\n", re)
	}
	fmt.Fprintf(w, "Entities             : %d (quota %d, capacity %d)\n",
		cohort.Len(), cohort.TotalQuota(), topo.TotalCapacity())

	demand := assign.TopChoiceDemand(cohort, 1)
	labels := topo.Labels()
	sort.SliceStable(labels, func(i, j int) bool { return demand[labels[i]] > demand[labels[j]] })
	fmt.Fprintln(w, "First-choice demand:")
	for _, label := range labels {
		gi, _ := topo.GroupIndex(label)
		fmt.Fprintf(w, "  %-32s %4d / %d\n", label, demand[label], topo.Groups[gi].Capacity())
	}
}

func init() {
	addInputFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}
