package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arloliu/hicnorm/aggregate"
	"github.com/arloliu/hicnorm/balance"
	"github.com/arloliu/hicnorm/contact"
	"github.com/arloliu/hicnorm/internal/config"
	"github.com/arloliu/hicnorm/spill"
)

func newBalanceCmd() *cobra.Command {
	var (
		configPath string
		tolerance  float64
		threads    int
		bins       int
	)

	cmd := &cobra.Command{
		Use:   "balance FILE...",
		Short: "Aggregate spill files and print the balancing vector",
		Long: "Aggregates the records of the given spill files, builds the degree cutoff table, " +
			"balances the matrix and prints one \"bin<TAB>scale\" line per bin. Excluded bins print NaN.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = *loaded
			}

			// Explicit flags win over the file.
			if cmd.Flags().Changed("tol") {
				cfg.Balance.Tolerance = tolerance
			}
			if cmd.Flags().Changed("threads") {
				cfg.Balance.Threads = threads
			}
			if cmd.Flags().Changed("bins") {
				cfg.Bins = bins
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runBalance(cmd, &cfg, args)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration")
	cmd.Flags().Float64Var(&tolerance, "tol", balance.DefaultTolerance, "Convergence tolerance")
	cmd.Flags().IntVar(&threads, "threads", 1, "Matrix-vector worker count")
	cmd.Flags().IntVar(&bins, "bins", 0, "Matrix dimension (0 sizes it from the data)")

	return cmd
}

func runBalance(cmd *cobra.Command, cfg *config.Config, paths []string) error {
	var opts []aggregate.Option
	if cfg.Spill.Dir != "" {
		opts = append(opts, aggregate.WithSpill(cfg.Spill.Dir, cfg.Spill.MemoryLimit, cfg.Spill.FileLimit, cfg.SpillOptions()...))
	}
	acc, err := aggregate.NewAccumulator(cfg.Resolution, opts...)
	if err != nil {
		return err
	}
	if !cfg.Spill.Keep {
		defer func() {
			if err := acc.Cleanup(); err != nil {
				logrus.WithError(err).Warn("removing spill files failed")
			}
		}()
	}

	it := contact.NewPairIterator(spill.OpenAll(paths), contact.WholeGenome, contact.WholeGenome, cfg.Resolution)
	defer it.Close()
	if err := acc.Consume(it); err != nil {
		return err
	}

	m, err := acc.Matrix(cfg.Bins)
	if err != nil {
		return err
	}

	table, err := cfg.CutoffTable(m.Degree())
	if err != nil {
		return err
	}

	balancer, err := balance.NewBalancer(append(cfg.BalancerOptions(), balance.WithCutoffTable(table))...)
	if err != nil {
		return err
	}
	res, err := balancer.Balance(m)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"bins":        m.K,
		"contacts":    acc.Added(),
		"excluded":    res.Excluded(),
		"escalations": res.Escalations,
		"converged":   res.Converged,
	}).Info("balance complete")

	out := cmd.OutOrStdout()
	for g, v := range res.Scale {
		fmt.Fprintf(out, "%d\t%s\n", g, strconv.FormatFloat(v, 'g', -1, 64))
	}

	return nil
}
