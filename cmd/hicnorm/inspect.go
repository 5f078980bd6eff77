package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arloliu/hicnorm/spill"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Replay spill files and report record counts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			faults := 0

			for _, path := range args {
				r, err := spill.Open(path)
				if err != nil {
					return err
				}
				for range r.All() {
				}
				_ = r.Close()

				status := "ok"
				if r.Err() != nil {
					status = r.Err().Error()
					faults++
				}
				fmt.Fprintf(out, "%s\t%d\t%s\n", path, r.Count(), status)
			}

			if faults > 0 {
				return fmt.Errorf("%d of %d files ended early", faults, len(args))
			}

			return nil
		},
	}
}
