package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kristyvitulova/Publication/internal/ledger"
	"github.com/kristyvitulova/Publication/internal/pipeline"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Condition every recording under root_dir into batch artifacts",
		Long: `Discover recordings under root_dir, condition every segment and write the
batches. Files that fail are listed in the summary and do not stop the
run. A storage write failure or an interrupt ends the run with an error;
batches already written stay in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := a.setup(cmd, true)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var led *ledger.Ledger
			if cfg.LedgerDir != "" {
				led, err = ledger.Open(cfg.LedgerDir, log)
				if err != nil {
					return err
				}
				defer led.Close()
			}

			d, err := pipeline.New(cfg, pipeline.Deps{Fs: a.fs, Ledger: led, Log: log})
			if err != nil {
				return err
			}

			sum, runErr := d.Run(cmd.Context())
			if sum != nil {
				printSummary(cmd.OutOrStdout(), sum)
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.String("root-dir", "", "directory searched recursively for recordings")
	f.String("channel", "", "strain channel to read from each recording")
	f.String("output-dir", "", "directory receiving the batch artifacts")
	f.Int("batch-size", 0, "segments per batch artifact")
	f.Float64("sample-rate", 0, "expected sample rate in Hz")
	f.String("format", "", "artifact format: npy or msgpack")
	f.String("ledger-dir", "", "badger directory recording run outcomes")
	return cmd
}

func printSummary(w io.Writer, sum *pipeline.Summary) {
	sizes := make([]string, len(sum.Batches))
	for i, n := range sum.BatchSizes() {
		sizes[i] = fmt.Sprint(n)
	}

	fmt.Fprintf(w, "run:       %s\n", sum.RunID)
	fmt.Fprintf(w, "files:     %d found, %d succeeded, %d failed\n", sum.FilesFound, len(sum.Succeeded), sum.Failed())
	fmt.Fprintf(w, "segments:  %d\n", sum.Segments)
	fmt.Fprintf(w, "batches:   %d [%s]\n", len(sum.Batches), strings.Join(sizes, " "))
	fmt.Fprintf(w, "duration:  %s\n", sum.Duration.Round(time.Millisecond))
	for _, fe := range sum.Failures {
		fmt.Fprintf(w, "failed:    %s [%s] %v\n", fe.Path, fe.Kind, fe.Err)
	}
}
