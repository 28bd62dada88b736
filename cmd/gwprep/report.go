package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kristyvitulova/Publication/internal/ledger"
)

func (a *app) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "List recorded runs, or show the files and batches of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := a.setup(cmd, false)
			if err != nil {
				return err
			}
			if cfg.LedgerDir == "" {
				return errors.New("ledger_dir is not configured")
			}

			led, err := ledger.Open(cfg.LedgerDir, log)
			if err != nil {
				return err
			}
			defer led.Close()

			w := cmd.OutOrStdout()
			if len(args) == 0 {
				runs, err := led.Runs(cmd.Context())
				if err != nil {
					return err
				}
				return printRuns(w, runs)
			}

			rep, err := led.Report(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printReport(w, rep)
		},
	}

	cmd.Flags().String("ledger-dir", "", "badger directory recording run outcomes")
	return cmd
}

func printRuns(w io.Writer, runs []ledger.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "RUN\tSTARTED\tDURATION\tFILES\tSEGMENTS\tSTATUS\n")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), runDuration(r), r.FilesFound, r.Segments, runStatus(r))
	}
	return tw.Flush()
}

func printReport(w io.Writer, rep *ledger.Report) error {
	r := rep.Run
	fmt.Fprintf(w, "run:       %s\n", r.ID)
	fmt.Fprintf(w, "root:      %s [%s]\n", r.RootDir, r.Channel)
	fmt.Fprintf(w, "started:   %s (%s)\n", r.StartedAt.Format(time.RFC3339), runDuration(r))
	fmt.Fprintf(w, "status:    %s\n", runStatus(r))
	fmt.Fprintf(w, "segments:  %d from %d files\n\n", r.Segments, r.FilesFound)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tFILE\tSEGMENTS\tRESULT\n")
	for _, f := range rep.Files {
		result := "ok"
		if !f.OK {
			result = fmt.Sprintf("%s: %s", f.Kind, f.Err)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", f.Seq+1, f.Path, f.Segments, result)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "BATCH\tSEGMENTS\tLOCATION\n")
	for _, b := range rep.Batches {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", b.Index, b.Count, b.Location)
	}
	return tw.Flush()
}

func runDuration(r ledger.Run) string {
	if !r.Finished() {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

func runStatus(r ledger.Run) string {
	switch {
	case !r.Finished():
		return "incomplete"
	case r.Err != "":
		return "aborted: " + r.Err
	}
	return "complete"
}
