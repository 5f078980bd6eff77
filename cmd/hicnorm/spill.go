package main

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arloliu/hicnorm/contact"
	"github.com/arloliu/hicnorm/format"
	"github.com/arloliu/hicnorm/spill"
)

func newSpillCmd() *cobra.Command {
	var (
		outDir      string
		limit       int
		compression string
		prefix      string
	)

	cmd := &cobra.Command{
		Use:   "spill [FILE]",
		Short: "Write whitespace separated binX binY count triplets to spill files",
		Long: "Reads triplets from FILE, or standard input when FILE is absent or \"-\", " +
			"and writes them to spill files of at most --limit records. Created paths are printed in order.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := format.ParseCompression(compression)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			w, err := spill.NewWriter(outDir, spill.WithCompression(comp), spill.WithPrefix(prefix))
			if err != nil {
				return err
			}

			var parseErr error
			paths, err := w.Write(parseTriplets(in, &parseErr), limit)
			if err != nil {
				return err
			}
			if parseErr != nil {
				return parseErr
			}

			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			logrus.WithFields(logrus.Fields{
				"files":   len(paths),
				"session": w.Session(),
			}).Info("spill complete")

			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory")
	cmd.Flags().IntVar(&limit, "limit", 1_000_000, "Maximum records per spill file")
	cmd.Flags().StringVar(&compression, "compression", "none", "Spill compression (none, zstd, s2, lz4)")
	cmd.Flags().StringVar(&prefix, "prefix", spill.DefaultPrefix, "Spill file name prefix")

	return cmd
}

// parseTriplets yields one record per non-empty, non-comment line. The first
// malformed line stops the sequence and is reported through errp.
func parseTriplets(r io.Reader, errp *error) iter.Seq[contact.Record] {
	return func(yield func(contact.Record) bool) {
		scanner := bufio.NewScanner(r)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}

			rec, err := parseTriplet(text)
			if err != nil {
				*errp = fmt.Errorf("line %d: %w", line, err)
				return
			}
			if !yield(rec) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			*errp = err
		}
	}
}

func parseTriplet(text string) (contact.Record, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return contact.Record{}, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}

	x, err := strconv.ParseInt(fields[0], 10, 32)
	if err != nil {
		return contact.Record{}, err
	}
	y, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return contact.Record{}, err
	}
	c, err := strconv.ParseFloat(fields[2], 32)
	if err != nil {
		return contact.Record{}, err
	}

	return contact.Record{BinX: int32(x), BinY: int32(y), Count: float32(c)}, nil
}
