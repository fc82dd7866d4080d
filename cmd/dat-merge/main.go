// Command dat-merge reads three independent tape passes of the same
// DAT image and writes a single corrected frame stream to stdout,
// resolving byte-level disagreements by majority vote.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/quietloop/dat-recover/merge"
)

func main() {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "dat-merge <pass1> <pass2> <pass3>",
		Short: "Triple-merge three tape passes into one corrected frame stream",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, quiet)
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the final error-count summary")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(paths []string, quiet bool) error {
	logger := logrus.New()
	if quiet {
		logger.SetLevel(logrus.ErrorLevel)
	}
	entry := logger.WithField("run_id", uuid.New().String())

	files := make([]*os.File, 3)
	for i, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			for _, opened := range files[:i] {
				opened.Close()
			}
			return fmt.Errorf("dat-merge: open %s: %w", p, err)
		}
		files[i] = f
	}
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()

	m := merge.New(files[0], files[1], files[2])
	stats, err := m.Merge(os.Stdout)

	entry.Infof("merged %d frames: corrected [%d %d %d], uncorrected %d",
		stats.Frames, stats.CorrectedErrors[0], stats.CorrectedErrors[1], stats.CorrectedErrors[2], stats.UncorrectedErrors)

	if err != nil {
		return fmt.Errorf("dat-merge: %w", err)
	}
	return nil
}
