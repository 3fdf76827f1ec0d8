package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/section-assign/section-assign/assign"
)

const (
	lpFormatLP     = "lp"
	lpFormatMatrix = "matrix"
)

var (
	lpFormat string // Output format: lp or matrix
	lpOutput string // Destination file, "-" for stdout
)

var lpCmd = &cobra.Command{
	Use:   "lp",
	Short: "Build the optimization program for a roster and print it without solving",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		topo, records := loadInputs(cmd, cfg)

		res, err := assign.Prepare(records, topo, cfg.PipelineOptions(""))
		if err != nil {
			logrus.Fatalf("%s", runErrorMessage(err))
		}
		switch lpFormat {
		case lpFormatLP:
			writeFile(lpOutput, res.Program.WriteLP)
		case lpFormatMatrix:
			writeFile(lpOutput, func(w io.Writer) error { return writeMatrix(w, res.Program) })
		default:
			logrus.Fatalf("Unknown --format %q (want %s or %s)", lpFormat, lpFormatLP, lpFormatMatrix)
		}
	},
}

// writeMatrix prints the program as min c·x subject to A x (op) b.
func writeMatrix(w io.Writer, p *assign.Program) error {
	c, a, rel, b := p.Dense()
	if _, err := fmt.Fprintf(w, "c =\n%v\n\n", mat.Formatted(c.T(), mat.Squeeze())); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "A =\n%v\n\n", mat.Formatted(a, mat.Squeeze())); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "op, b ="); err != nil {
		return err
	}
	for i, r := range rel {
		if _, err := fmt.Fprintf(w, "%-8s %-3s %g\n", p.Constraints[i].Name, r, b.AtVec(i)); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	addInputFlags(lpCmd)
	lpCmd.Flags().StringVar(&lpFormat, "format", lpFormatLP, "Output format (lp, matrix)")
	lpCmd.Flags().StringVar(&lpOutput, "out", "-", "Output file (- for stdout)")

	rootCmd.AddCommand(lpCmd)
}
