package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kristyvitulova/Publication/internal/batch"
	timestats "github.com/kristyvitulova/Publication/stats/time"
)

func (a *app) inspectCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Summarize a batch artifact segment by segment",
		Long: `Decode a batch artifact (.npy or .msgpack) and print its shape and the
time-domain statistics of each segment. Conditioned segments should show
an RMS that is stable across the batch and an excess kurtosis near 0;
large kurtosis marks a glitch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format, err := batch.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
			if err != nil {
				return err
			}

			f, err := a.fs.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			art, err := batch.Decode(f, format)
			if err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "artifact:  %s (%s)\n", path, format)
			fmt.Fprintf(w, "shape:     %d x %d\n", art.Shape[0], art.Shape[1])
			if art.SampleRate > 0 {
				fmt.Fprintf(w, "rate:      %g Hz\n", art.SampleRate)
			}

			fmt.Fprintln(w)
			var all timestats.Streaming
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(tw, "row\trms\tpeak\tcrest\tkurtosis\tnon-finite\tsource\t\n")
			for i, row := range art.Data {
				timestats.Update(&all, row)
				if limit > 0 && i >= limit {
					continue
				}
				s := timestats.Calculate(row)
				fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.2f\t%.3f\t%d\t%s\t\n",
					i, s.RMS, s.Peak, s.CrestFactor, s.Kurtosis, s.NonFinite, source(art, i))
			}
			total := all.Result()
			fmt.Fprintf(tw, "all\t%.4f\t%.4f\t%.2f\t%.3f\t%d\t\t\n",
				total.RMS, total.Peak, total.CrestFactor, total.Kurtosis, total.NonFinite)
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to list, 0 for all")
	return cmd
}

// source returns the provenance of row i, which only msgpack artifacts carry.
func source(art *batch.Artifact, i int) string {
	if i >= len(art.Sources) {
		return "-"
	}
	return fmt.Sprintf("%s@%.3f", filepath.Base(art.Sources[i]), art.Starts[i])
}
