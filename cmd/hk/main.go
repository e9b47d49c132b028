// hk is the batch driver for the opinion-dynamics engine: it simulates
// repeated independent realizations to convergence and appends each one's
// cluster statistics to an output file, without going through the HTTP API.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sociophysics/hk-engine/internal/config"
	"github.com/sociophysics/hk-engine/internal/runner"
	"github.com/sociophysics/hk-engine/pkg/models"
)

func main() {
	rootCmd := newRootCmd()
	rootCmd.AddCommand(newScanCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		numAgents     int
		minConfidence float64
		maxConfidence float64
		seed          uint64
		samples       int
		outname       string
	)

	cmd := &cobra.Command{
		Use:   "hk",
		Short: "Simulate the Hegselmann-Krause bounded-confidence model",
		Long: `hk runs repeated independent realizations of the Hegselmann-Krause
opinion model with heterogeneous confidences and synchronous update,
each to convergence, and appends the final cluster statistics of every
run to the output file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := models.RunParams{
				NumAgents:     numAgents,
				MinConfidence: minConfidence,
				MaxConfidence: maxConfidence,
				Seed:          seed,
				Samples:       samples,
			}
			if err := params.Validate(); err != nil {
				return err
			}

			out, err := os.Create(outname)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer out.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runner.RunSamples(ctx, params, out, nil)
		},
	}

	cmd.Flags().IntVarP(&numAgents, "num-agents", "n", 0, "number of interacting agents")
	cmd.Flags().Float64VarP(&minConfidence, "min-confidence", "l", 0.0, "minimum confidence of agents (uniformly distributed)")
	cmd.Flags().Float64VarP(&maxConfidence, "max-confidence", "u", 1.0, "maximum confidence of agents (uniformly distributed)")
	cmd.Flags().Uint64VarP(&seed, "seed", "s", 1, "seed to use for the simulation")
	cmd.Flags().IntVar(&samples, "samples", 1, "number of times to repeat the simulation")
	cmd.Flags().StringVarP(&outname, "outname", "o", "out", "name of the output data file")
	_ = cmd.MarkFlagRequired("num-agents")

	return cmd
}

func newScanCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the confidence axis and report the mean largest-cluster fraction",
		Long: `scan runs a batch of samples for every confidence value of an experiment
file, with all agents sharing that confidence, and prints one line per
value: the confidence and the mean largest-cluster fraction <S>. This
locates the consensus transition of the model.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if exp.OutDir != "" {
				if err := os.MkdirAll(exp.OutDir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for i, confidence := range exp.Points() {
				params := models.RunParams{
					NumAgents:     exp.NumAgents,
					MinConfidence: confidence,
					MaxConfidence: confidence,
					Seed:          exp.Seed + uint64(i) + 1,
					Samples:       exp.Samples,
				}

				var out *os.File
				if exp.OutDir != "" {
					name := fmt.Sprintf("out_n%d_e%.2f.dat", exp.NumAgents, confidence)
					out, err = os.Create(filepath.Join(exp.OutDir, name))
					if err != nil {
						return fmt.Errorf("create output file: %w", err)
					}
				}

				// A nil *os.File must not reach the writer parameter as a
				// typed-nil interface.
				var w io.Writer
				if out != nil {
					w = out
				}

				var sumS float64
				err = runner.RunSamples(ctx, params, w, func(r models.RunResult) {
					sumS += r.LargestFraction
				})
				if out != nil {
					out.Close()
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%g %g\n",
					confidence, sumS/float64(exp.Samples))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "experiment.yaml", "experiment definition file")

	return cmd
}
