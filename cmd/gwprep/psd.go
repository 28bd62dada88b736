package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kristyvitulova/Publication/dsp/core"
	"github.com/kristyvitulova/Publication/dsp/filter/highpass"
	"github.com/kristyvitulova/Publication/dsp/spectrum"
	"github.com/kristyvitulova/Publication/dsp/whiten"
	"github.com/kristyvitulova/Publication/dsp/window"
	"github.com/kristyvitulova/Publication/internal/config"
	"github.com/kristyvitulova/Publication/internal/recording"
	"github.com/kristyvitulova/Publication/internal/segment"
	"github.com/kristyvitulova/Publication/stats/frequency"
	timestats "github.com/kristyvitulova/Publication/stats/time"
)

func (a *app) psdCmd() *cobra.Command {
	var (
		segIndex int
		table    bool
	)

	cmd := &cobra.Command{
		Use:   "psd <recording>",
		Short: "Print the Welch PSD of a recording and how white one conditioned segment is",
		Long: `Estimate the PSD of a recording with the configured Welch settings and
condition one of its segments exactly as "run" would. The band above the
high-pass cutoff is summarized for both: a well whitened segment has a
mean density near 1 and a flatness near 1.`,
		Args: cobra.ExactArgs(1),
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
			return psdReport(cmd.OutOrStdout(), cfg, rec, segIndex, table)
		},
	}

	cmd.Flags().String("channel", "", "strain channel to read")
	cmd.Flags().IntVar(&segIndex, "segment", 0, "segment to condition")
	cmd.Flags().BoolVar(&table, "table", false, "also print the raw PSD bin by bin")
	return cmd
}

func welchOptions(cfg *config.Config, maxLen int) ([]spectrum.WelchOption, error) {
	win, err := window.Parse(cfg.PSD.Window)
	if err != nil {
		return nil, err
	}
	return []spectrum.WelchOption{
		spectrum.WithSegmentLength(min(cfg.PSD.FFTLength, maxLen)),
		spectrum.WithOverlap(cfg.PSD.Overlap),
		spectrum.WithWindow(win),
	}, nil
}

func psdReport(w io.Writer, cfg *config.Config, rec *recording.Recording, segIndex int, table bool) error {
	opts, err := welchOptions(cfg, len(rec.Samples))
	if err != nil {
		return err
	}
	raw, err := spectrum.Welch(rec.Samples, rec.SampleRate, opts...)
	if err != nil {
		return err
	}

	windows := segment.Plan(rec, cfg.SegmentDuration)
	if segIndex < 0 || segIndex >= len(windows) {
		return fmt.Errorf("segment %d out of range: recording holds %d segments", segIndex, len(windows))
	}
	win := windows[segIndex]
	seg := rec.Samples[win.Offset : win.Offset+win.Length]

	hp, err := highpass.New(cfg.HighpassCutoffHz, rec.SampleRate, cfg.FilterOrder)
	if err != nil {
		return err
	}
	filtered, err := hp.Apply(seg)
	if err != nil {
		return err
	}
	whitened, err := whiten.Whiten(filtered, raw, rec.SampleRate, whiten.WithEpsilon(cfg.Whiten.Epsilon))
	if err != nil {
		return err
	}

	segOpts, err := welchOptions(cfg, len(whitened))
	if err != nil {
		return err
	}
	white, err := spectrum.Welch(whitened, rec.SampleRate, segOpts...)
	if err != nil {
		return err
	}

	rawBand, err := frequency.Calculate(raw.Freqs, raw.Power, cfg.HighpassCutoffHz, 0)
	if err != nil {
		return err
	}
	whiteBand, err := frequency.Calculate(white.Freqs, white.Power, cfg.HighpassCutoffHz, 0)
	if err != nil {
		return err
	}
	ts := timestats.Calculate(whitened)

	fmt.Fprintf(w, "recording:  %s [%s]\n", rec.Source, rec.Channel)
	fmt.Fprintf(w, "timing:     %g Hz, %g s from GPS %.3f, %d segments\n",
		rec.SampleRate, rec.Duration(), rec.Start, len(windows))
	fmt.Fprintf(w, "psd:        %d bins at %g Hz resolution (%s window)\n",
		raw.Len(), raw.Resolution(), cfg.PSD.Window)
	fmt.Fprintf(w, "highpass:   order %d in %d sections, %.2f dB at %g Hz (zero-phase)\n",
		hp.Order(), hp.Sections(), hp.MagnitudeDB(hp.Cutoff()), hp.Cutoff())
	fmt.Fprintf(w, "band:       %g-%g Hz\n\n", rawBand.Lo, rawBand.Hi)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\traw\tsegment %d conditioned\n", segIndex)
	fmt.Fprintf(tw, "mean density [dB]\t%.2f\t%.2f\n", rawBand.MeanDB(), whiteBand.MeanDB())
	fmt.Fprintf(tw, "median density\t%.4g\t%.4g\n", rawBand.Median, whiteBand.Median)
	fmt.Fprintf(tw, "peak at [Hz]\t%.2f\t%.2f\n", rawBand.MaxFreq, whiteBand.MaxFreq)
	fmt.Fprintf(tw, "flatness\t%.4f\t%.4f\n", rawBand.Flatness, whiteBand.Flatness)
	fmt.Fprintf(tw, "band rms\t%.4g\t%.4g\n", rawBand.BandRMS(), whiteBand.BandRMS())
	fmt.Fprintf(tw, "segment rms\t\t%.4f\n", ts.RMS)
	fmt.Fprintf(tw, "segment kurtosis\t\t%.4f\n", ts.Kurtosis)
	if err := tw.Flush(); err != nil {
		return err
	}

	if !table {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "freq [Hz]\tpsd [dB]\tasd [1/rtHz]\thighpass [dB]\t\n")
	for i, f := range raw.Freqs {
		fmt.Fprintf(tw, "%.3f\t%.2f\t%.4g\t%.2f\t\n",
			f, core.LinearPowerToDB(raw.Power[i]), core.ASD(raw.Power[i]), hp.MagnitudeDB(f))
	}
	return tw.Flush()
}
