package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kristyvitulova/Publication/internal/recording"
	"github.com/kristyvitulova/Publication/internal/segment"
)

func (a *app) planCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "plan <recording>",
		Short: "Print how a recording would be cut into segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.setup(cmd, false)
			if err != nil {
				return err
			}
			if cfg.Channel == "" {
				return errors.New("channel is required")
			}

			rec, err := recording.NewMsgpackReader(a.fs).Read(cmd.Context(), args[0], cfg.Channel)
			if err != nil {
				return err
			}

			windows := segment.Plan(rec, cfg.SegmentDuration)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "recording:  %s [%s]\n", rec.Source, rec.Channel)
			fmt.Fprintf(w, "span:       GPS %.3f to %.3f (%g s at %g Hz)\n", rec.Start, rec.End(), rec.Duration(), rec.SampleRate)
			fmt.Fprintf(w, "segments:   %d of %g s (%d samples)\n",
				len(windows), cfg.SegmentDuration, segment.Length(rec.SampleRate, cfg.SegmentDuration))
			if n := segment.Count(rec, cfg.SegmentDuration); n != len(windows) {
				fmt.Fprintf(w, "dropped:    %d overshooting the recording end\n", n-len(windows))
			}
			fmt.Fprintf(w, "discarded:  %d trailing samples\n", segment.Remainder(rec, cfg.SegmentDuration))
			if len(windows) == 0 {
				return nil
			}

			fmt.Fprintln(w)
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(tw, "index\toffset\tstart [GPS]\tlength\t\n")
			for i, win := range windows {
				if limit > 0 && i == limit {
					fmt.Fprintf(tw, "...\t\t\t\t\n")
					break
				}
				fmt.Fprintf(tw, "%d\t%d\t%.3f\t%d\t\n", win.Index, win.Offset, win.Start, win.Length)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("channel", "", "strain channel to read")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum windows to list, 0 for all")
	return cmd
}
